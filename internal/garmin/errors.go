package garmin

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials indicates the consumer key/secret are not
	// configured
	ErrMissingCredentials = errors.New("garmin: consumer credentials not configured")

	// ErrNotConnected indicates the user has no stored access token pair
	ErrNotConnected = errors.New("garmin: account not connected")
)

// UpstreamError reports a non-2xx or unparseable response from Garmin. The
// upstream status and body are kept for diagnostics; handlers surface the
// message and log the rest.
type UpstreamError struct {
	Op         string // "request_token", "access_token", "activities"
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("garmin: %s failed (status %d): %s", e.Op, e.StatusCode, e.Body)
}
