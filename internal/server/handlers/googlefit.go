package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sweettrack/backend/internal/auth"
	"github.com/sweettrack/backend/internal/db/models"
	"github.com/sweettrack/backend/internal/googlefit"
	syncsvc "github.com/sweettrack/backend/internal/sync"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConnectHandler returns the Google consent URL for the authenticated user.
// The user ID rides in the OAuth state parameter.
func ConnectHandler(client *googlefit.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !client.Configured() {
			respondError(w, http.StatusInternalServerError,
				"Google OAuth not configured. Please set GOOGLE_FIT_CLIENT_ID.")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"success":          true,
			"authorizationUrl": client.AuthorizationURL(auth.UserID(r.Context())),
			"message":          "Redirect user to this URL to authorize Google Fit",
		})
	}
}

// CallbackHandler is the provider redirect target. It exchanges the code,
// upserts the user's connection and flips the connected flag. Public: Google
// calls it, authenticated context is carried by state.
func CallbackHandler(database *gorm.DB, client *googlefit.Client, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		userID := r.URL.Query().Get("state")
		if code == "" {
			respondError(w, http.StatusBadRequest, "Authorization code not provided")
			return
		}
		if userID == "" {
			respondError(w, http.StatusBadRequest, "User ID not provided in state parameter")
			return
		}

		token, err := client.ExchangeCode(r.Context(), code)
		if err != nil {
			logger.Error("code exchange failed", zap.String("user_id", userID), zap.Error(err))
			respondError(w, http.StatusInternalServerError,
				"Failed to connect Google Fit. Please try connecting again.")
			return
		}

		expiry := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
		scopes, _ := json.Marshal(googlefit.Scopes)

		var conn models.Connection
		err = database.Where("user_id = ?", userID).First(&conn).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			conn = models.Connection{ID: uuid.New().String(), UserID: userID}
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to save Google Fit connection")
			return
		}

		conn.AccessToken = token.AccessToken
		// Google withholds the refresh token on repeat authorizations; keep
		// the stored one in that case.
		if token.RefreshToken != "" {
			conn.RefreshToken = token.RefreshToken
		}
		conn.TokenExpiry = expiry
		conn.Scopes = string(scopes)
		conn.IsActive = true
		conn.SyncFailures = 0
		conn.NextRetryAt = time.Time{}

		if err := database.Save(&conn).Error; err != nil {
			logger.Error("save connection", zap.String("user_id", userID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to save Google Fit connection")
			return
		}
		if err := database.Model(&models.User{}).Where("id = ?", userID).
			Update("google_fit_connected", true).Error; err != nil {
			logger.Error("update user connection flag", zap.String("user_id", userID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to update user connection status")
			return
		}

		logger.Info("google fit connected", zap.String("user_id", userID))
		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Google Fit connected successfully",
			"userId":  userID,
			"saved":   true,
		})
	}
}

// DisconnectHandler deletes the user's connection and clears the flag.
func DisconnectHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())

		if err := database.Where("user_id = ?", userID).Delete(&models.Connection{}).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Error disconnecting Google Fit")
			return
		}
		if err := database.Model(&models.User{}).Where("id = ?", userID).
			Update("google_fit_connected", false).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Error disconnecting Google Fit")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Google Fit disconnected successfully",
		})
	}
}

// SyncHandler runs one on-demand sync pass and returns the snapshot. Fields
// the provider could not supply come back null; the call only hard-fails when
// the connection is missing (400) or irrecoverably revoked (401).
func SyncHandler(orch *syncsvc.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := orch.SyncUser(r.Context(), auth.UserID(r.Context()))
		switch {
		case errors.Is(err, syncsvc.ErrNotConnected):
			respondError(w, http.StatusBadRequest, "Google Fit not connected")
			return
		case errors.Is(err, syncsvc.ErrRevoked):
			respondError(w, http.StatusUnauthorized, "Google Fit access revoked. Please reconnect.")
			return
		case err != nil:
			respondError(w, http.StatusInternalServerError, "Error syncing health data from Google Fit")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    snap,
			"message": "Health data synced successfully",
		})
	}
}

// StatusHandler reports connection state for the authenticated user.
func StatusHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())

		var user models.User
		if err := database.Where("id = ?", userID).First(&user).Error; err != nil {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}

		var lastSync *time.Time
		isActive := false
		var conn models.Connection
		if err := database.Where("user_id = ?", userID).First(&conn).Error; err == nil {
			isActive = conn.IsActive
			if !conn.LastSync.IsZero() {
				ls := conn.LastSync
				lastSync = &ls
			}
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"connected": user.GoogleFitConnected,
			"isActive":  isActive,
			"lastSync":  lastSync,
		})
	}
}
