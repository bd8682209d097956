package models

import "time"

// PushToken is a device push-notification token registered by a client.
type PushToken struct {
	ID         string    `gorm:"primaryKey" json:"id"` // UUID
	UserID     string    `gorm:"index" json:"-"`
	Token      string    `gorm:"uniqueIndex" json:"token"`
	Platform   string    `json:"platform"` // ios, android, web, unknown
	LastUsedAt time.Time `json:"lastUsedAt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
