package errs

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain sentinel", ErrNotFound, "NotFound"},
		{"wrapped sentinel", fmt.Errorf("load wallet: %w", ErrUnauthorized), "Unauthorized"},
		{"rate limited struct", &RateLimitedError{Policy: "strict", RetryAfter: time.Second}, "RateLimited"},
		{"extrinsic wrapped twice", fmt.Errorf("a: %w", fmt.Errorf("b: %w", ErrExtrinsicFailed)), "ExtrinsicFailed"},
		{"unknown", errors.New("boom"), "Internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestRateLimitedError(t *testing.T) {
	t.Parallel()

	err := error(&RateLimitedError{Policy: "standard", RetryAfter: 1500 * time.Millisecond})
	assert.ErrorIs(t, err, ErrRateLimited)

	var rl *RateLimitedError
	if assert.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &rl) {
		assert.Equal(t, 2, rl.RetryAfterSeconds())
	}

	assert.Equal(t, 1, (&RateLimitedError{RetryAfter: 0}).RetryAfterSeconds())
}
