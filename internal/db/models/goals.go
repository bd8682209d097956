package models

import "time"

// Goals holds a user's daily targets for goal-progress notifications.
// Defaults come from code on first upsert; column defaults would make GORM
// drop explicit zero targets and a false PushEnabled from the insert.
type Goals struct {
	ID              string    `gorm:"primaryKey" json:"id"` // UUID
	UserID          string    `gorm:"uniqueIndex" json:"-"`
	Steps           int       `json:"steps"`
	Water           int       `json:"water"` // glasses
	Sleep           float64   `json:"sleep"` // hours
	Calories        int       `json:"calories"`
	PushEnabled     bool      `json:"pushEnabled"`
	LastEvaluatedAt time.Time `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
