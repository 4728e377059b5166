package sales

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"nil", nil, ErrorKindNone},
		{"invalid key", ErrInvalidAPIKey, ErrorKindInvalidAPIKey},
		{"wrapped invalid key", fmt.Errorf("stripe: %w", ErrInvalidAPIKey), ErrorKindInvalidAPIKey},
		{"rate limited", ErrRateLimited, ErrorKindRateLimited},
		{"no api key", ErrNoAPIKey, ErrorKindNoAPIKey},
		{"network", &NetworkError{Err: context.DeadlineExceeded}, ErrorKindNetwork},
		{"decoding", &DecodingError{Err: errors.New("unexpected EOF")}, ErrorKindDecoding},
		{"server", &ServerError{StatusCode: 503}, ErrorKindServer},
		{"wrapped server", fmt.Errorf("gumroad: %w", &ServerError{StatusCode: 400}), ErrorKindServer},
		{"unclassified", errors.New("boom"), ErrorKindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestNetworkError_PreservesCause(t *testing.T) {
	err := fmt.Errorf("lemonsqueezy: %w", &NetworkError{Err: context.DeadlineExceeded})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestServerError_PreservesStatusCode(t *testing.T) {
	var serverErr *ServerError
	err := fmt.Errorf("wrapped: %w", &ServerError{StatusCode: 502})

	if assert.ErrorAs(t, err, &serverErr) {
		assert.Equal(t, 502, serverErr.StatusCode)
	}
}

func TestUserMessage_DistinctPerKind(t *testing.T) {
	errs := []error{
		ErrInvalidAPIKey,
		ErrRateLimited,
		ErrNoAPIKey,
		&NetworkError{Err: errors.New("dial tcp: no such host")},
		&DecodingError{Err: errors.New("bad json")},
		&ServerError{StatusCode: 500},
	}

	seen := make(map[string]bool)
	for _, err := range errs {
		msg := UserMessage(err)
		assert.NotEmpty(t, msg)
		assert.False(t, seen[msg], "duplicate message %q", msg)
		seen[msg] = true
	}

	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Server error (500). Try again later.", UserMessage(&ServerError{StatusCode: 500}))
}
