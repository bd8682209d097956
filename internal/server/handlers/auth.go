package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sweettrack/backend/internal/auth"
	"github.com/sweettrack/backend/internal/db/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userPayload struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Email                string `json:"email"`
	HealthSetupCompleted bool   `json:"healthSetupCompleted"`
	GoogleFitConnected   bool   `json:"isGoogleFitConnected"`
}

func sanitizeUser(u models.User) userPayload {
	return userPayload{
		ID:                   u.ID,
		Name:                 u.Name,
		Email:                u.Email,
		HealthSetupCompleted: u.HealthSetupCompleted,
		GoogleFitConnected:   u.GoogleFitConnected,
	}
}

// issueSession bumps the user's token version and signs a fresh pair, which
// invalidates every previously issued session token.
func issueSession(database *gorm.DB, tokens *auth.Manager, user *models.User) (*auth.TokenPair, error) {
	user.TokenVersion++
	if err := database.Save(user).Error; err != nil {
		return nil, err
	}
	return tokens.IssuePair(user.ID, user.TokenVersion)
}

// RegisterHandler creates a new account with default settings.
func RegisterHandler(database *gorm.DB, tokens *auth.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Name == "" || req.Email == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "Please provide all fields")
			return
		}
		if len(req.Password) < 6 {
			respondError(w, http.StatusBadRequest, "Password must be at least 6 characters")
			return
		}

		var existing models.User
		if err := database.Where("email = ?", req.Email).First(&existing).Error; err == nil {
			respondError(w, http.StatusBadRequest, "Email already exists")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error during signup")
			return
		}

		user := models.User{
			ID:           uuid.New().String(),
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: hash,
		}
		if err := database.Create(&user).Error; err != nil {
			logger.Error("create user", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Server error during signup")
			return
		}

		// Default settings are created eagerly so the first settings fetch
		// never races user creation.
		settings := models.Settings{ID: uuid.New().String(), UserID: user.ID}
		applySettingsDefaults(&settings)
		if err := database.Create(&settings).Error; err != nil {
			logger.Warn("create default settings", zap.String("user_id", user.ID), zap.Error(err))
		}

		pair, err := issueSession(database, tokens, &user)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error during signup")
			return
		}

		respondJSON(w, http.StatusCreated, map[string]any{
			"success":      true,
			"user":         sanitizeUser(user),
			"token":        pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		})
	}
}

// LoginHandler authenticates by email and password.
func LoginHandler(database *gorm.DB, tokens *auth.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Email == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "Please provide email and password")
			return
		}

		var user models.User
		if err := database.Where("email = ?", req.Email).First(&user).Error; err != nil {
			respondError(w, http.StatusUnauthorized, "Email not registered")
			return
		}
		if !auth.CheckPassword(user.PasswordHash, req.Password) {
			respondError(w, http.StatusUnauthorized, "Incorrect password")
			return
		}

		user.LastLogin = time.Now()
		pair, err := issueSession(database, tokens, &user)
		if err != nil {
			logger.Error("issue session", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Server error during login")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"user":         sanitizeUser(user),
			"token":        pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		})
	}
}

// MeHandler returns the authenticated user's profile.
func MeHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var user models.User
		if err := database.Where("id = ?", auth.UserID(r.Context())).First(&user).Error; err != nil {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"user":    sanitizeUser(user),
		})
	}
}

// RefreshSessionHandler exchanges a valid refresh token for a new pair.
func RefreshSessionHandler(database *gorm.DB, tokens *auth.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
			respondError(w, http.StatusBadRequest, "Refresh token required")
			return
		}

		claims, err := tokens.Verify(req.RefreshToken)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		var user models.User
		if err := database.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		if user.TokenVersion != claims.TokenVersion {
			respondError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		pair, err := issueSession(database, tokens, &user)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Unable to refresh session")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"user":         sanitizeUser(user),
			"token":        pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		})
	}
}
