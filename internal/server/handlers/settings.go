package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sweettrack/backend/internal/auth"
	"github.com/sweettrack/backend/internal/db/models"
	"gorm.io/gorm"
)

func applySettingsDefaults(s *models.Settings) {
	s.Language = "en"
	s.FontSize = "medium"
	s.NotificationsEnabled = true
	s.DailyReminders = true
	s.GoalAlerts = true
	s.HealthTips = true
}

type settingsPayload struct {
	Language      string `json:"language"`
	HighContrast  bool   `json:"highContrast"`
	FontSize      string `json:"fontSize"`
	Notifications struct {
		Enabled        bool `json:"enabled"`
		DailyReminders bool `json:"dailyReminders"`
		GoalAlerts     bool `json:"goalAlerts"`
		HealthTips     bool `json:"healthTips"`
	} `json:"notifications"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func settingsToPayload(s models.Settings) settingsPayload {
	var p settingsPayload
	p.Language = s.Language
	p.HighContrast = s.HighContrast
	p.FontSize = s.FontSize
	p.Notifications.Enabled = s.NotificationsEnabled
	p.Notifications.DailyReminders = s.DailyReminders
	p.Notifications.GoalAlerts = s.GoalAlerts
	p.Notifications.HealthTips = s.HealthTips
	p.UpdatedAt = s.UpdatedAt
	return p
}

// GetSettingsHandler returns the user's settings, creating defaults on first
// access.
func GetSettingsHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())

		var settings models.Settings
		err := database.Where("user_id = ?", userID).First(&settings).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			settings = models.Settings{ID: uuid.New().String(), UserID: userID}
			applySettingsDefaults(&settings)
			if err := database.Create(&settings).Error; err != nil {
				respondError(w, http.StatusInternalServerError, "Error fetching settings")
				return
			}
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "Error fetching settings")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"settings": settingsToPayload(settings),
		})
	}
}

// UpdateSettingsHandler applies a partial settings update.
func UpdateSettingsHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())

		var req struct {
			Language      *string `json:"language"`
			HighContrast  *bool   `json:"highContrast"`
			FontSize      *string `json:"fontSize"`
			Notifications *struct {
				Enabled        *bool `json:"enabled"`
				DailyReminders *bool `json:"dailyReminders"`
				GoalAlerts     *bool `json:"goalAlerts"`
				HealthTips     *bool `json:"healthTips"`
			} `json:"notifications"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var settings models.Settings
		err := database.Where("user_id = ?", userID).First(&settings).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			settings = models.Settings{ID: uuid.New().String(), UserID: userID}
			applySettingsDefaults(&settings)
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "Error updating settings")
			return
		}

		if req.Language != nil {
			switch *req.Language {
			case "en", "ne", "hi":
				settings.Language = *req.Language
			default:
				respondError(w, http.StatusBadRequest, "Unsupported language")
				return
			}
		}
		if req.HighContrast != nil {
			settings.HighContrast = *req.HighContrast
		}
		if req.FontSize != nil {
			switch *req.FontSize {
			case "small", "medium", "large":
				settings.FontSize = *req.FontSize
			default:
				respondError(w, http.StatusBadRequest, "Unsupported font size")
				return
			}
		}
		if req.Notifications != nil {
			if req.Notifications.Enabled != nil {
				settings.NotificationsEnabled = *req.Notifications.Enabled
			}
			if req.Notifications.DailyReminders != nil {
				settings.DailyReminders = *req.Notifications.DailyReminders
			}
			if req.Notifications.GoalAlerts != nil {
				settings.GoalAlerts = *req.Notifications.GoalAlerts
			}
			if req.Notifications.HealthTips != nil {
				settings.HealthTips = *req.Notifications.HealthTips
			}
		}

		if err := database.Save(&settings).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Error updating settings")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"settings": settingsToPayload(settings),
		})
	}
}
