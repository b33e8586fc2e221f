package models

import (
	"time"
)

// Goal holds a user's nutrition and body targets. One row per user.
type Goal struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	// Nutrition targets
	TargetCalories int     `gorm:"default:2000" json:"target_calories"`
	TargetProtein  float64 `gorm:"default:150" json:"target_protein"` // grams
	TargetCarbs    float64 `gorm:"default:200" json:"target_carbs"`   // grams
	TargetFat      float64 `gorm:"default:65" json:"target_fat"`      // grams
	TargetFiber    float64 `gorm:"default:30" json:"target_fiber"`    // grams

	// Body targets
	TargetWeight *float64 `json:"target_weight,omitempty"` // kg

	// Training routine preference: "ppl", "5day" or "custom"
	TrainingRoutine string `gorm:"default:'ppl'" json:"training_routine"`

	UpdatedAt time.Time `json:"updated_at"`
}
