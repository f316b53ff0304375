package cli

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
)

// executeRoot runs the real root command with args and returns its stdout.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestIsUnknownCommandError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unknown command", err: stderrors.New(`unknown command "foo" for "fleetwatch"`), want: true},
		{name: "unknown flag", err: stderrors.New(`unknown flag: --foo`), want: true},
		{name: "unknown shorthand", err: stderrors.New(`unknown shorthand flag: 'x' in -x`), want: true},
		{name: "other error", err: stderrors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUnknownCommandError(tt.err))
		})
	}
}

func TestExtractUnknownCommand(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "standard cobra format", err: stderrors.New(`unknown command "foo" for "fleetwatch"`), want: "foo"},
		{name: "command with hyphen", err: stderrors.New(`unknown command "my-cmd" for "fleetwatch"`), want: "my-cmd"},
		{name: "no quotes returns empty", err: stderrors.New("unknown command foo"), want: ""},
		{name: "single quote returns empty", err: stderrors.New(`unknown command "foo`), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractUnknownCommand(tt.err))
		})
	}
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		want     []string
	}{
		{
			name:     "unknown command with suggestion",
			err:      stderrors.New(`unknown command "snapshop" for "fleetwatch"`),
			wantCode: 2,
			want:     []string{`unknown command "snapshop"`, "Did you mean snapshot?", "fleetwatch --help"},
		},
		{
			name:     "structured error",
			err:      errors.New(errors.ErrStream, "No fleet received", "Start a source"),
			wantCode: 1,
			want:     []string{"✗ No fleet received\n", "\n  Start a source\n"},
		},
		{
			name:     "plain error gets a marker",
			err:      stderrors.New("boom"),
			wantCode: 1,
			want:     []string{"✗ boom\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			code := reportError(&buf, tt.err)
			assert.Equal(t, tt.wantCode, code)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"watch", "snapshot", "prefs", "simulate", "doctor", "version", "completion"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("no-color"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}

func TestUnknownCommandFailsExecute(t *testing.T) {
	_, err := executeRoot(t, "snapshop")
	require.Error(t, err)
	assert.True(t, isUnknownCommandError(err))
	assert.Equal(t, "snapshop", extractUnknownCommand(err))
}
