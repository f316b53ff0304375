package cli

import (
	"context"
	"sync"

	"github.com/rileyhilliard/fleetwatch/internal/config"
	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
)

// session follows the event stream into a reconciler until stopped.
type session struct {
	client     *stream.Client
	reconciler *fleet.Reconciler

	cancel context.CancelFunc
	done   chan struct{}

	readyOnce sync.Once
	ready     chan struct{}

	mu      sync.Mutex
	lastErr error
}

// startSession connects to src and applies every event to reconciler from a
// background goroutine.
func startSession(ctx context.Context, src config.SourceConfig, reconciler *fleet.Reconciler, log logger.Logger) *session {
	ctx, cancel := context.WithCancel(ctx)
	s := &session{
		reconciler: reconciler,
		cancel:     cancel,
		done:       make(chan struct{}),
		ready:      make(chan struct{}),
	}
	s.client = stream.NewClient(src.StreamURL, stream.Options{
		ReconnectMin: src.ReconnectMin,
		ReconnectMax: src.ReconnectMax,
		OnState:      s.onState,
		Logger:       log,
	})

	go func() {
		defer close(s.done)
		_ = s.client.Run(ctx, s.handle)
	}()
	return s
}

func (s *session) handle(ev fleet.Event) {
	s.reconciler.Handle(ev)
	if ev.Type == fleet.EventInit {
		s.readyOnce.Do(func() { close(s.ready) })
	}
}

func (s *session) onState(state stream.State, err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Ready is closed once the first init event has been applied.
func (s *session) Ready() <-chan struct{} {
	return s.ready
}

// LastError returns the most recent connection failure, if any.
func (s *session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// State reports the stream connection state.
func (s *session) State() stream.State {
	return s.client.State()
}

// Stop disconnects and waits for the stream goroutine to exit.
func (s *session) Stop() {
	s.cancel()
	<-s.done
}
