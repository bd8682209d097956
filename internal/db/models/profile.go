package models

import "time"

// HealthProfile holds the one-time health setup data a user fills in:
// demographics, baseline measurements and lifestyle answers.
type HealthProfile struct {
	ID     string `gorm:"primaryKey" json:"id"` // UUID
	UserID string `gorm:"uniqueIndex" json:"-"`

	Age    int     `json:"age"`
	Gender string  `json:"gender"`
	Height float64 `json:"height"` // cm
	Weight float64 `json:"weight"` // kg
	BMI    float64 `json:"bmi"`

	BloodGlucose float64 `json:"bloodGlucose"` // mg/dL
	HbA1c        float64 `json:"hba1c"`        // %
	Systolic     int     `json:"systolic"`
	Diastolic    int     `json:"diastolic"`
	Cholesterol  string  `json:"cholesterol"`

	Smoking                 string `json:"smoking"`
	PhysicalActivityMinutes int    `json:"physicalActivityMinutes"` // per week
	DailySteps              int    `json:"dailySteps"`

	Hypertension        string `json:"hypertension"`
	HeartDiseaseHistory string `json:"heartDiseaseHistory"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
