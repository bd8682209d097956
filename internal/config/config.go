package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPHost    string
	HTTPPort    string
	DBPath      string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	ProviderTimeout   time.Duration
	SyncInterval      time.Duration
	GoalCheckInterval time.Duration

	ExpoPushURL string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" || secret == "your_jwt_secret" {
		return Config{}, fmt.Errorf("JWT_SECRET is required and must not be the default value")
	}

	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		HTTPHost:    getEnv("HOST", "127.0.0.1"),
		HTTPPort:    getEnv("PORT", "5000"),
		DBPath:      getEnv("DB_PATH", "sweettrack.db"),

		JWTSecret:       secret,
		AccessTokenTTL:  getDuration("JWT_EXPIRES_IN", 15*time.Minute),
		RefreshTokenTTL: getDuration("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),

		GoogleClientID:     os.Getenv("GOOGLE_FIT_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_FIT_CLIENT_SECRET"),
		GoogleRedirectURI:  getEnv("GOOGLE_FIT_REDIRECT_URI", "http://localhost:5000/api/google-fit/callback"),

		ProviderTimeout:   getDuration("PROVIDER_TIMEOUT", 15*time.Second),
		SyncInterval:      getDuration("SYNC_INTERVAL", 30*time.Minute),
		GoalCheckInterval: getDuration("GOAL_CHECK_INTERVAL", 10*time.Minute),

		ExpoPushURL: getEnv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
	}

	return cfg, nil
}

// Addr returns the host:port the HTTP server binds to.
func (c Config) Addr() string {
	return c.HTTPHost + ":" + c.HTTPPort
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
