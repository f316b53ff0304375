package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrStream,
		ErrDecode,
		ErrFetch,
		ErrPrefs,
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
			message:    "No stream URL configured",
			suggestion: "Set source.stream_url in .fleetwatch.yaml",
		},
		{
			name:       "stream error",
			code:       ErrStream,
			message:    "Fleet stream unavailable",
			suggestion: "Check that the fleet API is reachable",
		},
		{
			name:       "prefs error",
			code:       ErrPrefs,
			message:    "Cannot write preferences",
			suggestion: "Check permissions on the preferences file",
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

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name          string
		err           *Error
		expectedParts []string
		notExpected   []string
	}{
		{
			name:          "basic error formatting",
			err:           New(ErrConfig, "Invalid configuration", "Check .fleetwatch.yaml syntax"),
			expectedParts: []string{"✗", "Invalid configuration", "Check .fleetwatch.yaml syntax"},
		},
		{
			name:          "error without suggestion",
			err:           New(ErrFetch, "Health probe failed", ""),
			expectedParts: []string{"Health probe failed"},
			notExpected:   []string{"\n\n  \n"},
		},
		{
			name:          "error with cause",
			err:           WrapWithCode(fmt.Errorf("dial tcp: refused"), ErrStream, "Stream down", "Retry later"),
			expectedParts: []string{"Stream down", "dial tcp: refused", "Retry later"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := tt.err.Error()
			for _, part := range tt.expectedParts {
				assert.Contains(t, output, part)
			}
			for _, part := range tt.notExpected {
				assert.NotContains(t, output, part)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := Wrap(cause, "Stream interrupted")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrStream, wrapped.Code, "Wrap should default to ErrStream code")
	assert.Equal(t, cause, wrapped.Cause)
}

func TestErrorsIsAndAs(t *testing.T) {
	cause := errors.New("specific error")
	wrapped := WrapWithCode(cause, ErrDecode, "Bad event", "")

	assert.True(t, errors.Is(wrapped, cause))

	var fwErr *Error
	require.True(t, errors.As(fmt.Errorf("outer: %w", wrapped), &fwErr))
	assert.Equal(t, ErrDecode, fwErr.Code)
}

func TestIsCode(t *testing.T) {
	err := New(ErrConfig, "Config error", "")

	assert.True(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(err, ErrStream))
	assert.False(t, IsCode(errors.New("standard error"), ErrConfig))
	assert.False(t, IsCode(nil, ErrConfig))
}

func TestErrorMessageStructure(t *testing.T) {
	err := WrapWithCode(
		errors.New("context deadline exceeded"),
		ErrStream,
		"Timed out waiting for the fleet snapshot",
		"Increase --timeout or check the stream URL",
	)

	lines := strings.Split(err.Error(), "\n")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[0]), "✗"))
	assert.Contains(t, lines[0], "Timed out waiting for the fleet snapshot")
}
