package models

import (
	"time"
)

// Workout source values
const (
	WorkoutSourceManual = "manual"
	WorkoutSourceGarmin = "garmin"
)

// Workout is a single logged session, either entered manually or imported
// from Garmin Connect.
type Workout struct {
	ID              string   `gorm:"primaryKey" json:"id"`
	UserID          string   `gorm:"index;not null" json:"user_id"`
	Name            string   `gorm:"not null" json:"name"`
	Date            string   `gorm:"index;not null" json:"date"` // YYYY-MM-DD
	DurationMinutes int      `json:"duration_minutes"`
	CaloriesBurned  *float64 `json:"calories_burned,omitempty"`
	ActivityType    string   `gorm:"default:'strength'" json:"activity_type"` // run, cycle, swim, strength, ...
	PerceivedEffort *int     `json:"perceived_effort,omitempty"`              // 1-10, manual entries only
	Notes           string   `json:"notes,omitempty"`

	// Import metadata. GarminActivityID is unique across all workouts so a
	// re-run of the importer over an overlapping window cannot duplicate a
	// record. NULL for manual entries (unique index ignores NULLs).
	GarminActivityID *string `gorm:"uniqueIndex" json:"garmin_activity_id,omitempty"`
	Source           string  `gorm:"default:'manual'" json:"source"` // "manual" or "garmin"

	LoggedAt  time.Time `json:"logged_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Imported reports whether this workout came from Garmin.
func (w *Workout) Imported() bool {
	return w.Source == WorkoutSourceGarmin
}
