package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrConnect,
		ErrExec,
		ErrCopy,
		ErrTimeout,
		ErrBatch,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "config error",
			code:       ErrConfig,
			message:    "Invalid configuration",
			suggestion: "Check your configuration file syntax",
		},
		{
			name:       "connect error",
			code:       ErrConnect,
			message:    "Couldn't establish session ubuntu@10.0.0.5:22",
			suggestion: "Try connecting manually first: ssh ubuntu@10.0.0.5",
		},
		{
			name:       "batch error",
			code:       ErrBatch,
			message:    "Batch has no operations",
			suggestion: "Add at least one command or transfer before executing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)
			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestErrorFormat(t *testing.T) {
	err := New(ErrConnect, "Couldn't establish session", "Check your keys")
	out := err.Error()

	assert.True(t, strings.HasPrefix(out, "✗ "), "should lead with failure symbol")
	assert.Contains(t, out, "Couldn't establish session")
	assert.Contains(t, out, "Check your keys")
}

func TestWrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(cause, "Couldn't reach host")

	assert.Equal(t, ErrConnect, err.Code)
	assert.Equal(t, cause, err.Cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapWithCode(t *testing.T) {
	cause := errors.New("yaml: line 3: mapping values are not allowed")
	err := WrapWithCode(cause, ErrBatch, "Batch file is not valid YAML", "Fix the YAML syntax")

	assert.Equal(t, ErrBatch, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Fix the YAML syntax")
}

func TestIsCode(t *testing.T) {
	err := New(ErrTimeout, "Operation timed out", "")

	assert.True(t, IsCode(err, ErrTimeout))
	assert.False(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(nil, ErrTimeout))
	assert.False(t, IsCode(errors.New("plain"), ErrTimeout))
}

func TestIsCodeWrapped(t *testing.T) {
	inner := New(ErrConnect, "inner", "")
	outer := WrapWithCode(inner, ErrExec, "outer", "")

	// As finds the outermost structured error first.
	assert.True(t, IsCode(outer, ErrExec))
}
