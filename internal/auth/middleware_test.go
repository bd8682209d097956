package auth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sweettrack/backend/internal/db/models"
	"gorm.io/gorm"
)

func newMiddlewareTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func TestRequireAuth(t *testing.T) {
	gdb := newMiddlewareTestDB(t)
	mgr := NewManager("test-secret", time.Minute, time.Hour)

	user := models.User{ID: uuid.New().String(), Email: "a@b.c", TokenVersion: 2}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	pair, err := mgr.IssuePair(user.ID, user.TokenVersion)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	stalePair, err := mgr.IssuePair(user.ID, user.TokenVersion-1)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	var gotUserID string
	handler := RequireAuth(mgr, gdb)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "no header", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", authHeader: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", authHeader: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "stale token version", authHeader: "Bearer " + stalePair.AccessToken, wantStatus: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer " + pair.AccessToken, wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotUserID = ""
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusOK && gotUserID != user.ID {
				t.Fatalf("context user id = %q, want %q", gotUserID, user.ID)
			}
		})
	}
}

func TestRequireAuth_UnknownUser(t *testing.T) {
	gdb := newMiddlewareTestDB(t)
	mgr := NewManager("test-secret", time.Minute, time.Hour)

	pair, err := mgr.IssuePair(uuid.New().String(), 0)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	handler := RequireAuth(mgr, gdb)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached for unknown user")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
