package models

import "time"

// Settings stores per-user app preferences. Defaults are applied in code
// when a row is first created; column defaults would make GORM skip
// explicitly false flags on insert.
type Settings struct {
	ID           string `gorm:"primaryKey"` // UUID
	UserID       string `gorm:"uniqueIndex"`
	Language     string
	HighContrast bool
	FontSize     string

	NotificationsEnabled bool
	DailyReminders       bool
	GoalAlerts           bool
	HealthTips           bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
