package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/fleetwatch/internal/config"
)

func TestMergeSimulate(t *testing.T) {
	base := config.DefaultConfig().Simulate

	tests := []struct {
		name string
		args []string
		want config.SimulateConfig
	}{
		{
			name: "no flags keeps config",
			args: nil,
			want: base,
		},
		{
			name: "flags override",
			args: []string{"--addr", ":9000", "--instances", "40", "--tick", "500ms"},
			want: config.SimulateConfig{Addr: ":9000", Instances: 40, Tick: 500 * time.Millisecond, Grace: base.Grace},
		},
		{
			name: "zero is an explicit value",
			args: []string{"--grace", "0s"},
			want: config.SimulateConfig{Addr: base.Addr, Instances: base.Instances, Tick: base.Tick, Grace: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts simulateOptions
			cmd := &cobra.Command{Use: "simulate"}
			cmd.Flags().StringVar(&opts.addr, "addr", "", "")
			cmd.Flags().IntVar(&opts.instances, "instances", 0, "")
			cmd.Flags().DurationVar(&opts.tick, "tick", 0, "")
			cmd.Flags().DurationVar(&opts.grace, "grace", 0, "")
			require.NoError(t, cmd.ParseFlags(tt.args))

			got := mergeSimulate(cmd, base, opts)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, config.ValidateSimulate(got))
		})
	}
}

func TestNewServiceLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newServiceLogger(&buf, false)
	require.NoError(t, level.Info(logger).Log("msg", "server started", "addr", ":8787"))
	require.NoError(t, level.Debug(logger).Log("msg", "hidden"))

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, `msg="server started"`)
	assert.Contains(t, out, "addr=:8787")
	assert.Contains(t, out, "ts=")
	assert.Contains(t, out, "caller=simulate_test.go:")
	assert.NotContains(t, out, "hidden")

	buf.Reset()
	debug := newServiceLogger(&buf, true)
	require.NoError(t, level.Debug(debug).Log("msg", "shown"))
	assert.Contains(t, buf.String(), "level=debug")
}

func TestSimulateCommandRejectsBadFlags(t *testing.T) {
	_, err := executeRoot(t, "simulate", "--tick", "0s", "--config", writeEmptyConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulate.tick must be positive")
}

// writeEmptyConfig writes a config file that only sets the version.
func writeEmptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleetwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))
	return path
}
