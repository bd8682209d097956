package models

import "time"

// Meal types.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// MealLog is one logged meal with recognized food items and nutrition totals.
type MealLog struct {
	ID          string `gorm:"primaryKey"` // UUID
	UserID      string `gorm:"index"`
	MealType    string
	FoodItems   string // JSON array of {name, confidence}
	Nutrition   string // JSON blob {calories, carbs, protein, fat, sugar, fiber, sodium}
	ServingSize string
	Notes       string
	LoggedAt    time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
