// Package googlefit wraps the Google OAuth token endpoint and the Google Fit
// aggregate API: authorization-code exchange, refresh-before-expiry, and six
// best-effort metric fetchers.
package googlefit

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultTokenURL is Google's OAuth2 token endpoint.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	// DefaultAPIBase is the Google Fit REST API base URL.
	DefaultAPIBase = "https://www.googleapis.com/fitness/v1"

	defaultTimeout = 15 * time.Second
)

// Options configures a Client. TokenURL and APIBase exist so tests can point
// the client at a local server.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenURL     string
	APIBase      string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Client talks to the Google OAuth token endpoint and the fitness API.
type Client struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *zap.Logger
	clientID     string
	clientSecret string
	redirectURI  string
	tokenURL     string
	apiBase      string
}

// NewClient builds a Client with bounded per-call timeouts and a shared
// client-side rate limiter to keep provider load polite during reconciliation.
func NewClient(opts Options) *Client {
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.APIBase == "" {
		opts.APIBase = DefaultAPIBase
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		httpClient:   &http.Client{Timeout: opts.Timeout},
		limiter:      rate.NewLimiter(rate.Limit(10), 20),
		logger:       opts.Logger,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		redirectURI:  opts.RedirectURI,
		tokenURL:     opts.TokenURL,
		apiBase:      opts.APIBase,
	}
}

// Configured reports whether OAuth client credentials are present.
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}
