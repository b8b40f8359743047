package core

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedIdentifier = errors.New("malformed identifier")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrRateLimited         = errors.New("rate limited")
	ErrOriginUnavailable   = errors.New("origin unavailable")
)

// StatusError carries the HTTP status of a failed federation call so the
// engine can map it to a negative cache sentinel.
type StatusError struct {
	Code int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("federation request failed with status %d", e.Code)
}

// IsStatusError reports whether err carries an HTTP status from the remote
// server, as opposed to a transport-level failure.
func IsStatusError(err error) bool {
	var statusErr StatusError
	return errors.As(err, &statusErr)
}

// ErrorCode extracts the sentinel code for err. Transport failures without a
// status map to 503 so repeated callers fail fast until the sentinel expires.
func ErrorCode(err error) int {
	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 503
}
