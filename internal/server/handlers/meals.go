package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sweettrack/backend/internal/auth"
	"github.com/sweettrack/backend/internal/db/models"
	"gorm.io/gorm"
)

var validMealTypes = map[string]bool{
	models.MealBreakfast: true,
	models.MealLunch:     true,
	models.MealDinner:    true,
	models.MealSnack:     true,
}

type mealPayload struct {
	ID          string          `json:"id"`
	MealType    string          `json:"mealType"`
	FoodItems   json.RawMessage `json:"foodItems"`
	Nutrition   json.RawMessage `json:"nutritionalInfo"`
	ServingSize string          `json:"servingSize,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	LoggedAt    time.Time       `json:"loggedAt"`
}

func mealToPayload(m models.MealLog) mealPayload {
	p := mealPayload{
		ID:          m.ID,
		MealType:    m.MealType,
		ServingSize: m.ServingSize,
		Notes:       m.Notes,
		LoggedAt:    m.LoggedAt,
	}
	if m.FoodItems != "" {
		p.FoodItems = json.RawMessage(m.FoodItems)
	} else {
		p.FoodItems = json.RawMessage("[]")
	}
	if m.Nutrition != "" {
		p.Nutrition = json.RawMessage(m.Nutrition)
	} else {
		p.Nutrition = json.RawMessage("{}")
	}
	return p
}

// CreateMealHandler logs one meal.
func CreateMealHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MealType    string          `json:"mealType"`
			FoodItems   json.RawMessage `json:"foodItems"`
			Nutrition   json.RawMessage `json:"nutritionalInfo"`
			ServingSize string          `json:"servingSize"`
			Notes       string          `json:"notes"`
			LoggedAt    *time.Time      `json:"loggedAt"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !validMealTypes[req.MealType] {
			respondError(w, http.StatusBadRequest, "mealType is required")
			return
		}

		loggedAt := time.Now()
		if req.LoggedAt != nil {
			loggedAt = *req.LoggedAt
		}

		meal := models.MealLog{
			ID:          uuid.New().String(),
			UserID:      auth.UserID(r.Context()),
			MealType:    req.MealType,
			FoodItems:   string(req.FoodItems),
			Nutrition:   string(req.Nutrition),
			ServingSize: req.ServingSize,
			Notes:       req.Notes,
			LoggedAt:    loggedAt,
		}
		if err := database.Create(&meal).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Error creating meal log")
			return
		}

		respondJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"mealLog": mealToPayload(meal),
		})
	}
}

// ListMealsHandler returns the user's meal logs, newest first.
func ListMealsHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}

		var meals []models.MealLog
		if err := database.Where("user_id = ?", auth.UserID(r.Context())).
			Order("logged_at DESC").Limit(limit).Find(&meals).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Error fetching meal logs")
			return
		}

		payload := make([]mealPayload, 0, len(meals))
		for _, m := range meals {
			payload = append(payload, mealToPayload(m))
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"mealLogs": payload,
		})
	}
}

// GetMealHandler returns one meal log owned by the user.
func GetMealHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var meal models.MealLog
		err := database.Where("id = ? AND user_id = ?",
			chi.URLParam(r, "id"), auth.UserID(r.Context())).First(&meal).Error
		if err != nil {
			respondError(w, http.StatusNotFound, "Meal log not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"mealLog": mealToPayload(meal),
		})
	}
}

// DeleteMealHandler removes one meal log owned by the user.
func DeleteMealHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := database.Where("id = ? AND user_id = ?",
			chi.URLParam(r, "id"), auth.UserID(r.Context())).Delete(&models.MealLog{})
		if res.Error != nil {
			respondError(w, http.StatusInternalServerError, "Error deleting meal log")
			return
		}
		if res.RowsAffected == 0 {
			respondError(w, http.StatusNotFound, "Meal log not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Meal log deleted",
		})
	}
}
