package speech

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrInvalidVoice is returned by ParseVoice for malformed voice names.
	ErrInvalidVoice = errors.New("speech: invalid voice")

	// ErrUnknownProvider is returned when no provider is registered under
	// the requested name.
	ErrUnknownProvider = errors.New("speech: unknown provider")

	// ErrUnknownVoice is returned when a provider does not offer the
	// requested voice.
	ErrUnknownVoice = errors.New("speech: unknown voice")

	// ErrUnsupportedFormat is returned when a provider cannot produce the
	// requested format.
	ErrUnsupportedFormat = errors.New("speech: unsupported format")

	// ErrEmptyAudio is returned when a provider answers without audio.
	ErrEmptyAudio = errors.New("speech: empty audio")

	// ErrMissingCredentials is returned by Open when a required credential
	// is not set.
	ErrMissingCredentials = errors.New("speech: missing credentials")
)

// Error is a failure reported by a provider.
type Error struct {
	// Provider is the provider name.
	Provider string

	// Status is the HTTP status code, or 0 when the request never got a
	// response.
	Status int

	// Code is the provider's error code, if any.
	Code string

	// Message is the provider's error message.
	Message string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Code != "" && e.Status != 0:
		return fmt.Sprintf("%s: %s: %s (status=%d)", e.Provider, e.Code, msg, e.Status)
	case e.Code != "":
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, msg)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (status=%d)", e.Provider, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// throttlingCodes are provider error codes that mean "slow down and try
// again".
var throttlingCodes = map[string]bool{
	"ThrottlingException":     true,
	"ServiceFailureException": true,
	"RequestTimeout":          true,
	"rate_limit_exceeded":     true,
	"RESOURCE_EXHAUSTED":      true,
	"UNAVAILABLE":             true,
}

// Retryable reports whether the same request may succeed if sent again:
// throttling, server-side failures and transport errors are retryable,
// rejected input or credentials are not.
func (e *Error) Retryable() bool {
	var r interface{ Retryable() bool }
	if errors.As(e.Err, &r) {
		return r.Retryable()
	}
	if throttlingCodes[e.Code] {
		return true
	}
	if e.Status == 429 || e.Status >= 500 {
		return true
	}
	if e.Status == 0 {
		var ne net.Error
		return errors.As(e.Err, &ne)
	}
	return false
}

// AsError extracts *Error from an error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable reports whether err is a provider error that may succeed on
// retry.
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Retryable()
}
