package googlefit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Options{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost/callback",
		TokenURL:     srv.URL,
		APIBase:      srv.URL,
		Timeout:      2 * time.Second,
	})
}

func TestExchangeCode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q, want authorization_code", got)
		}
		if got := r.PostForm.Get("code"); got != "auth-code-1" {
			t.Errorf("code = %q, want auth-code-1", got)
		}
		if got := r.PostForm.Get("redirect_uri"); got != "http://localhost/callback" {
			t.Errorf("redirect_uri = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":3599,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	token, err := newTestClient(srv).ExchangeCode(context.Background(), "auth-code-1")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if token.AccessToken != "at-1" || token.RefreshToken != "rt-1" || token.ExpiresIn != 3599 {
		t.Fatalf("unexpected token response: %+v", token)
	}
}

func TestExchangeCode_RejectedCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Malformed auth code."}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ExchangeCode(context.Background(), "bad-code")
	var exchErr *ExchangeError
	if !errors.As(err, &exchErr) {
		t.Fatalf("expected *ExchangeError, got %v", err)
	}
	if exchErr.Code != "invalid_grant" {
		t.Errorf("error code = %q, want invalid_grant", exchErr.Code)
	}
}

func TestExchangeCode_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ExchangeCode(context.Background(), "code")
	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("expected *TransientError, got %v", err)
	}
	if transient.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", transient.Status)
	}
}

func TestRefreshAccessToken_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "rt-1" {
			t.Errorf("refresh_token = %q, want rt-1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-2","expires_in":3599,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	token, err := newTestClient(srv).RefreshAccessToken(context.Background(), "rt-1")
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}
	if token.AccessToken != "at-2" {
		t.Errorf("access token = %q, want at-2", token.AccessToken)
	}
	// Google does not reissue a refresh token on this path.
	if token.RefreshToken != "" {
		t.Errorf("refresh token = %q, want empty", token.RefreshToken)
	}
}

func TestRefreshAccessToken_EmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called for an empty refresh token")
	}))
	defer srv.Close()

	_, err := newTestClient(srv).RefreshAccessToken(context.Background(), "  ")
	if !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected ErrInvalidGrant, got %v", err)
	}
}

func TestRefreshAccessToken_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		transient bool
	}{
		{
			name:    "invalid grant means revoked",
			status:  http.StatusBadRequest,
			body:    `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`,
			wantErr: ErrInvalidGrant,
		},
		{
			name:    "invalid client is a config error",
			status:  http.StatusUnauthorized,
			body:    `{"error":"invalid_client","error_description":"The OAuth client was not found."}`,
			wantErr: ErrInvalidClientConfig,
		},
		{
			name:    "unauthorized client is a config error",
			status:  http.StatusBadRequest,
			body:    `{"error":"unauthorized_client"}`,
			wantErr: ErrInvalidClientConfig,
		},
		{
			name:    "invalid request mentioning client is a config error",
			status:  http.StatusBadRequest,
			body:    `{"error":"invalid_request","error_description":"Could not determine client ID from request."}`,
			wantErr: ErrInvalidClientConfig,
		},
		{
			name:      "invalid request without client hint is transient",
			status:    http.StatusBadRequest,
			body:      `{"error":"invalid_request","error_description":"Missing parameter."}`,
			transient: true,
		},
		{
			name:      "server error is transient",
			status:    http.StatusInternalServerError,
			body:      `{"error":"internal_failure"}`,
			transient: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).RefreshAccessToken(context.Background(), "rt-1")
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.transient {
				var transient *TransientError
				if !errors.As(err, &transient) {
					t.Fatalf("expected *TransientError, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestAuthorizationURL(t *testing.T) {
	c := NewClient(Options{ClientID: "client-id", ClientSecret: "secret", RedirectURI: "http://localhost/callback"})
	u := c.AuthorizationURL("user-42")
	for _, want := range []string{"access_type=offline", "prompt=consent", "state=user-42", "client_id=client-id"} {
		if !strings.Contains(u, want) {
			t.Errorf("authorization URL missing %q: %s", want, u)
		}
	}
}
