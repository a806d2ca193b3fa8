// internal/types_test.go
package internal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"without cause", NewError(ErrorCodeValidation, "table is required", nil), "table is required"},
		{"with cause", NewError(ErrorCodeFileSystem, "write output", cause), "write output: disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorChain(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("export: %w", NewError(ErrorCodeFileSystem, "write output", cause))

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, ErrorCodeFileSystem, CodeOf(err))
	assert.Empty(t, CodeOf(cause))
}
