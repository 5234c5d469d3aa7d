package minimax

import (
	"errors"
	"fmt"
)

// Error is a failure reported by the MiniMax API.
type Error struct {
	// Code is the base_resp status code, or the HTTP status when the body
	// carried none.
	Code int

	// Message is the status message or the raw response body.
	Message string

	// TraceID identifies the request in MiniMax's logs.
	TraceID string

	// HTTPStatus is the HTTP status code of the response.
	HTTPStatus int
}

func (e *Error) Error() string {
	if e.TraceID == "" {
		return fmt.Sprintf("minimax: %s (code=%d)", e.Message, e.Code)
	}
	return fmt.Sprintf("minimax: %s (code=%d, trace=%s)", e.Message, e.Code, e.TraceID)
}

// IsRateLimit reports whether the request was throttled.
func (e *Error) IsRateLimit() bool {
	return e.Code == 1002 || e.HTTPStatus == 429
}

// IsAuth reports whether the API key was rejected.
func (e *Error) IsAuth() bool {
	return e.Code == 1004 || e.HTTPStatus == 401
}

// IsInvalidRequest reports whether the request parameters were rejected.
func (e *Error) IsInvalidRequest() bool {
	return e.Code >= 2000 && e.Code < 3000
}

// Retryable reports whether sending the same request again may succeed:
// throttling (1002), service timeout (1001) and server errors (1000, 1013,
// HTTP 5xx).
func (e *Error) Retryable() bool {
	switch e.Code {
	case 1000, 1001, 1002, 1013:
		return true
	}
	return e.HTTPStatus == 429 || e.HTTPStatus >= 500
}

// AsError extracts *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
