package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mattcoatsworth/cursormcp-datagen/pkg/retry"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retry.Class
	}{
		{
			name: "malformed item is permanent",
			err:  fmt.Errorf("%w: empty id", ErrMalformedItem),
			want: retry.ClassInvalid,
		},
		{
			name: "non-retryable write error is permanent",
			err:  &WriteError{Retryable: false, Message: "marshal example"},
			want: retry.ClassInvalid,
		},
		{
			name: "retryable write error is transient",
			err:  &WriteError{Retryable: true, Message: "redis pipeline exec"},
			want: retry.ClassService,
		},
		{
			name: "unknown error is transient",
			err:  errors.New("connection reset"),
			want: retry.ClassService,
		},
		{
			name: "cancellation is permanent",
			err:  fmt.Errorf("redis: %w", context.Canceled),
			want: retry.ClassInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &WriteError{Retryable: true, Message: "outer", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("WriteError should unwrap to the inner error")
	}
}
