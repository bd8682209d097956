package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sweettrack/backend/internal/auth"
	"github.com/sweettrack/backend/internal/db/models"
	"github.com/sweettrack/backend/internal/notify"
	"gorm.io/gorm"
)

func defaultGoals(userID string) models.Goals {
	return models.Goals{
		ID:          uuid.New().String(),
		UserID:      userID,
		Steps:       10000,
		Water:       8,
		Sleep:       8,
		Calories:    2000,
		PushEnabled: true,
	}
}

// GetGoalsHandler returns the user's goal targets, defaults when unset.
func GetGoalsHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())

		var goals models.Goals
		if err := database.Where("user_id = ?", userID).First(&goals).Error; err != nil {
			goals = defaultGoals(userID)
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"goals":   goals,
		})
	}
}

// UpsertGoalsHandler stores the user's goal targets.
func UpsertGoalsHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())

		var req struct {
			Steps       *int     `json:"steps"`
			Water       *int     `json:"water"`
			Sleep       *float64 `json:"sleep"`
			Calories    *int     `json:"calories"`
			PushEnabled *bool    `json:"pushEnabled"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var goals models.Goals
		err := database.Where("user_id = ?", userID).First(&goals).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			goals = defaultGoals(userID)
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "Error updating goals")
			return
		}

		if req.Steps != nil {
			goals.Steps = *req.Steps
		}
		if req.Water != nil {
			goals.Water = *req.Water
		}
		if req.Sleep != nil {
			goals.Sleep = *req.Sleep
		}
		if req.Calories != nil {
			goals.Calories = *req.Calories
		}
		if req.PushEnabled != nil {
			goals.PushEnabled = *req.PushEnabled
		}

		if err := database.Save(&goals).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Error updating goals")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"goals":   goals,
		})
	}
}

// ProgressHandler reports today's totals against the user's goals.
func ProgressHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())

		var goals models.Goals
		if err := database.Where("user_id = ?", userID).First(&goals).Error; err != nil {
			goals = defaultGoals(userID)
		}

		current := notify.TodayProgress(database, userID, time.Now())
		respondJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"goals":    goals,
			"metrics":  current,
			"messages": notify.ProgressMessages(current, goals),
		})
	}
}

// WaterHandler updates today's manually tracked water intake. Sync passes
// never touch this field.
func WaterHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())

		var req struct {
			Water *int `json:"water"`
		}
		if err := decodeJSON(r, &req); err != nil || req.Water == nil {
			respondError(w, http.StatusBadRequest, "water is required")
			return
		}

		now := time.Now()
		dayKey := models.DayKey(now)

		var metric models.DailyMetric
		err := database.Where("user_id = ? AND day = ?", userID, dayKey).First(&metric).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metric = models.DailyMetric{
				ID:     uuid.New().String(),
				UserID: userID,
				Day:    dayKey,
				Source: models.SourceManual,
			}
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "Error updating water intake")
			return
		}

		metric.Water = *req.Water
		metric.SyncedAt = now
		if err := database.Save(&metric).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Error updating water intake")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"metric":  metric,
		})
	}
}

// RegisterPushTokenHandler registers a device push token for the user.
func RegisterPushTokenHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token    string `json:"token"`
			Platform string `json:"platform"`
		}
		if err := decodeJSON(r, &req); err != nil || req.Token == "" {
			respondError(w, http.StatusBadRequest, "token is required")
			return
		}
		if !isExpoPushToken(req.Token) {
			respondError(w, http.StatusBadRequest, "Invalid Expo push token")
			return
		}

		platform := req.Platform
		switch platform {
		case "ios", "android", "web":
		default:
			platform = "unknown"
		}

		var existing models.PushToken
		err := database.Where("token = ?", req.Token).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			existing = models.PushToken{ID: uuid.New().String(), Token: req.Token}
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "Error registering push token")
			return
		}

		existing.UserID = auth.UserID(r.Context())
		existing.Platform = platform
		existing.LastUsedAt = time.Now()
		if err := database.Save(&existing).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Error registering push token")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"pushToken": existing,
		})
	}
}

func isExpoPushToken(token string) bool {
	return (strings.HasPrefix(token, "ExponentPushToken[") ||
		strings.HasPrefix(token, "ExpoPushToken[")) && strings.HasSuffix(token, "]")
}
