package googlefit

import (
	"errors"
	"fmt"
)

// Sentinel errors for the token refresh path.
var (
	// ErrInvalidGrant means the refresh token was revoked or expired. The
	// connection must be deactivated and the user has to re-authorize.
	ErrInvalidGrant = errors.New("googlefit: refresh token is invalid or revoked")

	// ErrInvalidClientConfig means the OAuth client credentials are
	// misconfigured. Fatal for the operator, never retried.
	ErrInvalidClientConfig = errors.New("googlefit: oauth client configuration is invalid")

	// errPermissionUnavailable marks a 403 on a data type the current grant
	// does not cover. Expected steady-state, suppressed by the fetchers.
	errPermissionUnavailable = errors.New("googlefit: permission not granted for data type")
)

// ExchangeError is returned when the provider rejects an authorization code
// (expired, already used, redirect URI mismatch). Not retried.
type ExchangeError struct {
	Code        string
	Description string
}

func (e *ExchangeError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("googlefit: code exchange rejected: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("googlefit: code exchange rejected: %s", e.Code)
}

// TransientError covers network failures and provider 5xx responses. Safe to
// retry on the next scheduled cycle.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("googlefit: transient provider error: %v", e.Err)
	}
	return fmt.Sprintf("googlefit: transient provider error: status %d", e.Status)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FetchError is a non-suppressed provider failure on a single data type. The
// caller degrades the corresponding snapshot field instead of aborting.
type FetchError struct {
	DataType string
	Status   int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("googlefit: fetch %s failed: status %d", e.DataType, e.Status)
}

// IsAuthRevoked reports whether err indicates the provider no longer accepts
// this connection's credentials: a revoked refresh token, or a 401 on a data
// call. A 403 is a per-data-type permission gap, not revocation, and never
// reaches a FetchError. Callers mark the connection inactive when this
// returns true.
func IsAuthRevoked(err error) bool {
	if errors.Is(err, ErrInvalidGrant) {
		return true
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Status == 401
	}
	return false
}
