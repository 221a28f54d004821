package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewTransientError("failed to commit", errors.New("connection reset"))
	assert.Equal(t, "TRANSIENT: failed to commit: connection reset", err.Error())

	conflict := NewConflictError("slot already reserved")
	assert.Equal(t, "CONFLICT: slot already reserved", conflict.Error())
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"not found", NewNotFoundError("booking missing"), ErrorTypeNotFound},
		{"wrapped forbidden", fmt.Errorf("set status: %w", NewForbiddenError("not yours")), ErrorTypeForbidden},
		{"plain error", errors.New("boom"), ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("tx: %w", NewTransientError("deadlock", nil))))
	assert.False(t, IsRetryable(NewConflictError("slot already reserved")))
	assert.False(t, IsRetryable(nil))
}
