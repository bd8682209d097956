package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/sweettrack/backend/internal/auth"
	"github.com/sweettrack/backend/internal/db/models"
	"gorm.io/gorm"
)

type profileRequest struct {
	Age    *int     `json:"age"`
	Gender *string  `json:"gender"`
	Height *float64 `json:"height"`
	Weight *float64 `json:"weight"`
	BMI    *float64 `json:"bmi"`

	BloodGlucose *float64 `json:"bloodGlucose"`
	HbA1c        *float64 `json:"hba1c"`
	Systolic     *int     `json:"systolic"`
	Diastolic    *int     `json:"diastolic"`
	Cholesterol  *string  `json:"cholesterol"`

	Smoking                 *string `json:"smoking"`
	PhysicalActivityMinutes *int    `json:"physicalActivityMinutes"`
	DailySteps              *int    `json:"dailySteps"`

	Hypertension        *string `json:"hypertension"`
	HeartDiseaseHistory *string `json:"heartDiseaseHistory"`
}

// SaveProfileHandler upserts the user's health profile and marks health setup
// complete. Only fields present in the request are touched.
func SaveProfileHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())

		var req profileRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var profile models.HealthProfile
		err := database.Where("user_id = ?", userID).First(&profile).Error
		isNew := errors.Is(err, gorm.ErrRecordNotFound)
		if isNew {
			profile = models.HealthProfile{ID: uuid.New().String(), UserID: userID}
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "Error saving health data")
			return
		}

		if isNew && req.Age == nil {
			respondError(w, http.StatusBadRequest, "Age is required to complete health setup")
			return
		}

		applyProfile(&profile, req)

		if err := database.Save(&profile).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Error saving health data")
			return
		}
		database.Model(&models.User{}).Where("id = ?", userID).
			Update("health_setup_completed", true)

		respondJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"message":    "Health data saved successfully",
			"healthData": profile,
		})
	}
}

func applyProfile(profile *models.HealthProfile, req profileRequest) {
	if req.Age != nil {
		profile.Age = *req.Age
	}
	if req.Gender != nil {
		profile.Gender = *req.Gender
	}
	if req.Height != nil {
		profile.Height = *req.Height
	}
	if req.Weight != nil {
		profile.Weight = *req.Weight
	}
	if req.BMI != nil {
		profile.BMI = *req.BMI
	}
	if req.BloodGlucose != nil {
		profile.BloodGlucose = *req.BloodGlucose
	}
	if req.HbA1c != nil {
		profile.HbA1c = *req.HbA1c
	}
	if req.Systolic != nil {
		profile.Systolic = *req.Systolic
	}
	if req.Diastolic != nil {
		profile.Diastolic = *req.Diastolic
	}
	if req.Cholesterol != nil {
		profile.Cholesterol = *req.Cholesterol
	}
	if req.Smoking != nil {
		profile.Smoking = *req.Smoking
	}
	if req.PhysicalActivityMinutes != nil {
		profile.PhysicalActivityMinutes = *req.PhysicalActivityMinutes
	}
	if req.DailySteps != nil {
		profile.DailySteps = *req.DailySteps
	}
	if req.Hypertension != nil {
		profile.Hypertension = *req.Hypertension
	}
	if req.HeartDiseaseHistory != nil {
		profile.HeartDiseaseHistory = *req.HeartDiseaseHistory
	}
}

// GetProfileHandler returns the user's health profile.
func GetProfileHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var profile models.HealthProfile
		if err := database.Where("user_id = ?", auth.UserID(r.Context())).First(&profile).Error; err != nil {
			respondError(w, http.StatusNotFound, "Health data not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"healthData": profile,
		})
	}
}

// MetricsHistoryHandler lists recent daily metric snapshots, newest first.
func MetricsHistoryHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 7
		if v := r.URL.Query().Get("days"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 90 {
				days = n
			}
		}

		var rows []models.DailyMetric
		if err := database.Where("user_id = ?", auth.UserID(r.Context())).
			Order("day DESC").Limit(days).Find(&rows).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Error fetching metrics")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"metrics": rows,
		})
	}
}
