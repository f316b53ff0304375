package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/fleetwatch/internal/config"
	"github.com/rileyhilliard/fleetwatch/internal/simulate"
)

type simulateOptions struct {
	addr      string
	instances int
	tick      time.Duration
	grace     time.Duration
	heartbeat time.Duration
	seed      uint64
}

var simulateOpts simulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Serve a simulated fleet for development",
	Long: `Run a local fleet source: an SSE event stream plus the per-instance REST
endpoints the dashboard polls. Instances start, become ready, fail, recover,
shut down, and are removed after a grace period, one step per tick.

  GET /events                               init, then put/delete events
  GET /instances                            current fleet
  GET /instances/{service}/{id}/cache-summary
  GET /instances/{service}/{id}/request-stats
  GET /instances/{service}/{id}/health

Flags override the 'simulate' section of your config.

Examples:
  fleetwatch simulate
  fleetwatch simulate --addr :9000 --instances 40 --tick 500ms
  fleetwatch simulate --seed 7   # same sequence of changes every run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return simulateCommand(cmd, simulateOpts)
	},
}

func init() {
	flags := simulateCmd.Flags()
	flags.StringVar(&simulateOpts.addr, "addr", "", "listen address (default from config, :8787)")
	flags.IntVar(&simulateOpts.instances, "instances", 0, "target number of live instances")
	flags.DurationVar(&simulateOpts.tick, "tick", 0, "time between fleet changes")
	flags.DurationVar(&simulateOpts.grace, "grace", 0, "how long terminated instances stay listed")
	flags.DurationVar(&simulateOpts.heartbeat, "heartbeat", simulate.DefaultHeartbeat, "interval of stream keepalive comments")
	flags.Uint64Var(&simulateOpts.seed, "seed", 0, "random seed (0 picks one)")
	rootCmd.AddCommand(simulateCmd)
}

// mergeSimulate applies the flags that were set over the config section.
func mergeSimulate(cmd *cobra.Command, base config.SimulateConfig, opts simulateOptions) config.SimulateConfig {
	out := base
	if cmd.Flags().Changed("addr") {
		out.Addr = opts.addr
	}
	if cmd.Flags().Changed("instances") {
		out.Instances = opts.instances
	}
	if cmd.Flags().Changed("tick") {
		out.Tick = opts.tick
	}
	if cmd.Flags().Changed("grace") {
		out.Grace = opts.grace
	}
	return out
}

// newServiceLogger returns a leveled logfmt logger. Debug lines are kept
// only with --verbose.
func newServiceLogger(w io.Writer, debug bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	if debug {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

func simulateCommand(cmd *cobra.Command, opts simulateOptions) error {
	cfg, _, err := config.LoadOrDefault(Config())
	if err != nil {
		return err
	}
	sim := mergeSimulate(cmd, cfg.Simulate, opts)
	if err := config.ValidateSimulate(sim); err != nil {
		return err
	}

	logger := newServiceLogger(os.Stderr, verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return simulate.Run(ctx, simulate.Config{
		Addr:      sim.Addr,
		Tick:      sim.Tick,
		Heartbeat: opts.heartbeat,
		Fleet: simulate.Options{
			Instances: sim.Instances,
			Grace:     sim.Grace,
			Seed:      opts.seed,
		},
	}, logger)
}
