package models

import "time"

// Metric sources.
const (
	SourceGoogleFit = "google_fit"
	SourceManual    = "manual"
)

// DailyMetric is the aggregated health snapshot for one user on one calendar
// day. Keyed by (UserID, Day) with upsert semantics: later syncs the same day
// update the row in place.
type DailyMetric struct {
	ID     string `gorm:"primaryKey" json:"id"` // UUID
	UserID string `gorm:"uniqueIndex:idx_user_day" json:"-"`
	Day    string `gorm:"uniqueIndex:idx_user_day" json:"day"` // YYYY-MM-DD
	Source string `gorm:"default:google_fit" json:"source"`

	Steps      int     `json:"steps"`
	Calories   int     `json:"calories"`
	SleepHours float64 `json:"sleepHours"`
	Water      int     `json:"water"` // glasses, manually tracked

	// Nullable fields: absent when the provider returned no samples or the
	// grant does not cover the data type.
	HeartRateAvg *int `json:"heartRateAvg"`
	BloodGlucose *int `json:"bloodGlucose"` // mg/dL
	Systolic     *int `json:"systolic"`
	Diastolic    *int `json:"diastolic"`

	SyncedAt  time.Time `json:"syncedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DayKey formats t as the calendar-day key used by DailyMetric.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
