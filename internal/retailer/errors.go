package retailer

import (
	"fmt"
)

// AuthError reports a failed authentication step.
type AuthError struct {
	Err    error
	Step   string
	Reason string
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("retailer auth failed at %s", e.Step)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// APIError reports a failed catalog API call. StatusCode is zero when the
// request never produced a response.
type APIError struct {
	Err        error
	Method     string
	Path       string
	Body       string
	StatusCode int
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("retailer API %s %s returned %d", e.Method, e.Path, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("retailer API %s %s failed: %v", e.Method, e.Path, e.Err)
	default:
		return fmt.Sprintf("retailer API %s %s failed", e.Method, e.Path)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}
