package models

import (
	"time"
)

const (
	AuthSourceLocal  = "local"
	AuthSourceGoogle = "google"
)

type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `json:"-"` // Google-only users have empty password
	Name         string `json:"name"`
	AvatarURL    string `json:"avatar_url,omitempty"`

	// External sign-in support
	AuthSource string `gorm:"default:'local'" json:"auth_source"` // "local" or "google"
	ExternalID string `gorm:"index" json:"-"`                     // provider user id for google accounts

	// Garmin Connect credentials (OAuth 1.0a access token pair). Both empty
	// until the user completes the connect flow. Never serialized into any
	// client-visible payload.
	GarminAccessToken       string     `gorm:"type:text" json:"-"`
	GarminAccessTokenSecret string     `gorm:"type:text" json:"-"`
	GarminConnectedAt       *time.Time `json:"garmin_connected_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GarminConnected reports whether a long-lived Garmin token pair is stored.
func (u *User) GarminConnected() bool {
	return u.GarminAccessToken != "" && u.GarminAccessTokenSecret != ""
}

// IsExternal returns true if the user signs in via an external provider.
func (u *User) IsExternal() bool {
	return u.AuthSource != AuthSourceLocal && u.AuthSource != ""
}
