package simulate

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// shutdownTimeout bounds graceful server shutdown.
const shutdownTimeout = 5 * time.Second

// Config describes a simulated source process.
type Config struct {
	Addr      string
	Tick      time.Duration
	Heartbeat time.Duration
	Fleet     Options
}

// Run populates a fleet, serves it on cfg.Addr, and mutates it every tick
// until ctx is canceled.
func Run(ctx context.Context, cfg Config, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	cfg.Fleet.Logger = logger

	f := New(cfg.Fleet)
	f.Populate()
	srv := NewServer(f, logger, cfg.Heartbeat)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start(cfg.Addr)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.Run(ctx, cfg.Tick)

	level.Info(logger).Log("msg", "simulated fleet running",
		"addr", cfg.Addr, "instances", cfg.Fleet.Instances, "tick", cfg.Tick, "grace", cfg.Fleet.Grace)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	level.Info(logger).Log("msg", "shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		level.Error(logger).Log("msg", "error during server shutdown", "err", err)
		return err
	}
	level.Info(logger).Log("msg", "server stopped")
	return nil
}
