package sales

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Sales Errors
// ---------------------------------------------------------------------------

var (
	// ErrInvalidAPIKey is returned when the platform rejects the credentials (HTTP 401)
	ErrInvalidAPIKey = errors.New("sales: invalid API key")
	// ErrRateLimited is returned when the platform throttles the caller (HTTP 429)
	ErrRateLimited = errors.New("sales: rate limited")
	// ErrNoAPIKey is returned when a refresh is requested with no provider configured
	ErrNoAPIKey = errors.New("sales: no API key configured")
	// ErrUnknownProvider is returned for an unsupported provider type
	ErrUnknownProvider = errors.New("sales: unknown provider")
)

// NetworkError wraps a transport-level failure (DNS, TLS, timeout, connection reset)
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("sales: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodingError wraps a response that did not match the expected schema
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("sales: failed to decode response: %v", e.Err)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// ServerError is a non-2xx response other than 401 and 429
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("sales: server error (%d)", e.StatusCode)
}

// ---------------------------------------------------------------------------
// Error kinds
// ---------------------------------------------------------------------------

// ErrorKind is the distinguishable category of a sales error
type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindInvalidAPIKey ErrorKind = "invalid_api_key"
	ErrorKindRateLimited   ErrorKind = "rate_limited"
	ErrorKindNetwork       ErrorKind = "network"
	ErrorKindDecoding      ErrorKind = "decoding"
	ErrorKindServer        ErrorKind = "server"
	ErrorKindNoAPIKey      ErrorKind = "no_api_key"
)

// KindOf classifies err. Errors outside the taxonomy are treated as
// network failures, which is how an unexpected transport error surfaces.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}

	var (
		netErr    *NetworkError
		decodeErr *DecodingError
		serverErr *ServerError
	)

	switch {
	case errors.Is(err, ErrInvalidAPIKey):
		return ErrorKindInvalidAPIKey
	case errors.Is(err, ErrRateLimited):
		return ErrorKindRateLimited
	case errors.Is(err, ErrNoAPIKey):
		return ErrorKindNoAPIKey
	case errors.As(err, &decodeErr):
		return ErrorKindDecoding
	case errors.As(err, &serverErr):
		return ErrorKindServer
	case errors.As(err, &netErr):
		return ErrorKindNetwork
	default:
		return ErrorKindNetwork
	}
}

// UserMessage returns the human-readable message category for err
func UserMessage(err error) string {
	switch KindOf(err) {
	case ErrorKindNone:
		return ""
	case ErrorKindInvalidAPIKey:
		return "Invalid API key. Check your key in Settings."
	case ErrorKindRateLimited:
		return "Rate limited. Try again in a moment."
	case ErrorKindDecoding:
		return "Failed to parse response from server."
	case ErrorKindServer:
		var serverErr *ServerError
		if errors.As(err, &serverErr) {
			return fmt.Sprintf("Server error (%d). Try again later.", serverErr.StatusCode)
		}
		return "Server error. Try again later."
	case ErrorKindNoAPIKey:
		return "No API key configured. Add one in Settings."
	default:
		var netErr *NetworkError
		if errors.As(err, &netErr) {
			return fmt.Sprintf("Network error: %v", netErr.Err)
		}
		return fmt.Sprintf("Network error: %v", err)
	}
}
