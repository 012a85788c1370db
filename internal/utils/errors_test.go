package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpError_Error(t *testing.T) {
	tests := []struct {
		name     string
		context  string
		cause    error
		expected string
	}{
		{
			name:     "simple error",
			context:  "growing backing store",
			cause:    errors.New("growth refused"),
			expected: "growing backing store: growth refused",
		},
		{
			name:     "nested error",
			context:  "loading node",
			cause:    errors.New("bad magic"),
			expected: "loading node: bad magic",
		},
		{
			name:     "empty context",
			context:  "",
			cause:    errors.New("some error"),
			expected: ": some error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &OpError{Op: tt.context, Cause: tt.cause}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestWrapError(t *testing.T) {
	t.Run("nil cause returns nil", func(t *testing.T) {
		assert.NoError(t, WrapError("anything", nil))
	})

	t.Run("wraps and unwraps", func(t *testing.T) {
		cause := errors.New("boom")
		err := WrapError("allocating chunk", cause)
		require.Error(t, err)
		assert.Equal(t, "allocating chunk: boom", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}
