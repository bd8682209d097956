package models

import "time"

// Connection stores the Google Fit OAuth credential set for one user.
// At most one connection exists per user.
type Connection struct {
	ID          string `gorm:"primaryKey"` // UUID
	UserID      string `gorm:"uniqueIndex"`
	AccessToken string
	// RefreshToken is only issued by Google on the first consent; it must never
	// be overwritten with an empty value on later authorizations.
	RefreshToken string
	TokenExpiry  time.Time
	Scopes       string // JSON array of granted scope strings
	IsActive     bool
	LastSync     time.Time
	// SyncFailures counts consecutive non-auth sync failures; NextRetryAt is the
	// backoff deadline the reconciler honors before retrying this connection.
	SyncFailures int `gorm:"default:0"`
	NextRetryAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
