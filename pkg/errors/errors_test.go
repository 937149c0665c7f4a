package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"invalid input", Newf(ErrInvalidInput, "bad filter %q", "x"), ExitInvalidInput},
		{"config", fmt.Errorf("loading: %w", ErrConfig), ExitInvalidInput},
		{"not found", fmt.Errorf("opening run: %w", ErrNotFound), ExitNotFound},
		{"timeout", ErrTimeout, ExitTimeout},
		{"explicit", &AppError{Err: ErrInternal, Message: "boom", ExitCode: 7}, 7},
		{"other", context.Canceled, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(ErrNotFound, "reference.json"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "wrapped: not found: reference.json", err.Error())
}
