// Package auth issues and validates session tokens and guards authenticated
// routes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired means the session token's lifetime has passed.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenInvalid covers bad signatures, malformed tokens and stale
	// token versions.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Claims carried by session tokens. TokenVersion must match the user record
// for the token to be accepted, which lets a single counter bump invalidate
// every outstanding session.
type Claims struct {
	UserID       string `json:"uid"`
	TokenVersion int    `json:"tv"`
	jwt.RegisteredClaims
}

// TokenPair is an access/refresh session token pair.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Manager signs and verifies session tokens with an HMAC secret.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager builds a token manager.
func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair signs a fresh access/refresh pair for the user.
func (m *Manager) IssuePair(userID string, tokenVersion int) (*TokenPair, error) {
	access, err := m.sign(userID, tokenVersion, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(userID, tokenVersion, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *Manager) sign(userID string, tokenVersion int, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:       userID,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
