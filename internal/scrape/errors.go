package scrape

import (
	"errors"
	"fmt"
)

// ErrTierUnavailable signals that the browser tier could not even be
// started. The orchestrator treats it as a hard failure for the
// request; no third tier exists.
var ErrTierUnavailable = errors.New("fallback tier unavailable")

// NetworkError wraps a connection or timeout failure on either tier.
// The orchestrator absorbs it on the static tier (it triggers
// fallback) and reports it as a failed attempt on the browser tier.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is (or wraps) a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
