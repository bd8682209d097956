package googlefit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// TokenResponse is the provider's answer on both token grant paths. Google
// omits refresh_token on the refresh path and on repeat authorizations.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type tokenErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// ExchangeCode turns an OAuth authorization code into an access/refresh token
// pair. A rejected code surfaces as *ExchangeError and is never retried.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("code", code)
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("redirect_uri", c.redirectURI)
	data.Set("grant_type", "authorization_code")

	status, body, err := c.postForm(ctx, data)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	if status >= 300 {
		var oauthErr tokenErrorBody
		_ = json.Unmarshal(body, &oauthErr)
		if status >= 500 {
			return nil, &TransientError{Status: status}
		}
		return nil, &ExchangeError{Code: oauthErr.Error, Description: oauthErr.Description}
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &token, nil
}

// RefreshAccessToken exchanges a stored refresh token for a new access token.
// Google does not reissue a refresh token on this path. Error kinds:
// ErrInvalidGrant (revoked, re-authorize), ErrInvalidClientConfig (operator
// misconfiguration), *TransientError (retry next cycle).
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("empty refresh token: %w", ErrInvalidGrant)
	}

	data := url.Values{}
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("grant_type", "refresh_token")

	status, body, err := c.postForm(ctx, data)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	if status >= 300 {
		var oauthErr tokenErrorBody
		_ = json.Unmarshal(body, &oauthErr)
		if err := classifyRefreshError(status, oauthErr); err != nil {
			return nil, err
		}
		return nil, &TransientError{Status: status}
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	c.logger.Debug("access token refreshed", zap.Int64("expires_in", token.ExpiresIn))
	return &token, nil
}

// classifyRefreshError maps OAuth error bodies to the refresh taxonomy.
// Returns nil when the failure should be treated as transient.
func classifyRefreshError(status int, body tokenErrorBody) error {
	if status >= 500 {
		return nil
	}
	switch body.Error {
	case "invalid_grant":
		return fmt.Errorf("%s: %w", body.Description, ErrInvalidGrant)
	case "invalid_client", "unauthorized_client":
		return fmt.Errorf("%s: %w", body.Description, ErrInvalidClientConfig)
	case "invalid_request":
		if strings.Contains(strings.ToLower(body.Description), "client") {
			return fmt.Errorf("%s: %w", body.Description, ErrInvalidClientConfig)
		}
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, data url.Values) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read token response: %w", err)
	}
	return resp.StatusCode, body, nil
}
