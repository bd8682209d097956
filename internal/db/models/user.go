package models

import "time"

// User is an application account. Passwords are stored as bcrypt hashes and
// never serialized into API responses.
type User struct {
	ID                   string `gorm:"primaryKey"` // UUID
	Name                 string
	Email                string `gorm:"uniqueIndex"`
	PasswordHash         string `json:"-"`
	HealthSetupCompleted bool   `gorm:"default:false"`
	GoogleFitConnected   bool   `gorm:"default:false"`
	// TokenVersion invalidates all outstanding session tokens when bumped.
	TokenVersion int `gorm:"default:0"`
	LastLogin    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
