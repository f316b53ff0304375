// Package stream consumes the fleet event stream: one long-lived
// Server-Sent Events subscription that delivers init, put and delete events
// and is re-established with exponential backoff whenever it drops.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
)

// State is the passive connection status shown to the operator.
type State int

const (
	StateConnecting State = iota
	StateLive
	StateReconnecting
	StateStopped
)

// String returns a human-readable label for the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Default reconnect delays.
const (
	DefaultReconnectMin = 500 * time.Millisecond
	DefaultReconnectMax = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	// ReconnectMin and ReconnectMax bound the exponential reconnect delay.
	ReconnectMin time.Duration
	ReconnectMax time.Duration

	// HTTPClient defaults to a client without an overall timeout, which
	// would otherwise cut the long-lived response.
	HTTPClient *http.Client

	// OnState is called from the Run goroutine on every state change.
	OnState func(state State, err error)

	Logger logger.Logger
}

// Stats counts stream activity since the client was created.
type Stats struct {
	Delivered  int64
	Dropped    int64
	Reconnects int64
}

// Client subscribes to the fleet event stream.
type Client struct {
	url      string
	http     *http.Client
	minDelay time.Duration
	maxDelay time.Duration
	onState  func(State, error)
	log      logger.Logger

	mu    sync.Mutex
	state State

	delivered  atomic.Int64
	dropped    atomic.Int64
	reconnects atomic.Int64
}

// NewClient creates a client for the stream at url.
func NewClient(url string, opts Options) *Client {
	c := &Client{
		url:      url,
		http:     opts.HTTPClient,
		minDelay: opts.ReconnectMin,
		maxDelay: opts.ReconnectMax,
		onState:  opts.OnState,
		log:      opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.minDelay <= 0 {
		c.minDelay = DefaultReconnectMin
	}
	if c.maxDelay < c.minDelay {
		c.maxDelay = DefaultReconnectMax
		if c.maxDelay < c.minDelay {
			c.maxDelay = c.minDelay
		}
	}
	if c.log == nil {
		c.log = logger.For(logger.ComponentStream)
	}
	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns delivery counters.
func (c *Client) Stats() Stats {
	return Stats{
		Delivered:  c.delivered.Load(),
		Dropped:    c.dropped.Load(),
		Reconnects: c.reconnects.Load(),
	}
}

func (c *Client) setState(s State, err error) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	if c.onState != nil {
		c.onState(s, err)
	}
}

// Run subscribes and calls handler for every decoded event, in stream order,
// from the calling goroutine. It reconnects until ctx is canceled and then
// returns nil.
func (c *Client) Run(ctx context.Context, handler func(fleet.Event)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.minDelay
	b.MaxInterval = c.maxDelay
	b.MaxElapsedTime = 0
	b.Reset()

	c.setState(StateConnecting, nil)

	for {
		connected, err := c.subscribe(ctx, handler)
		if ctx.Err() != nil {
			c.setState(StateStopped, nil)
			return nil
		}
		if connected {
			b.Reset()
		}

		delay := b.NextBackOff()
		c.reconnects.Add(1)
		c.log.Warn("stream disconnected: %v (retrying in %s)", err, delay)
		c.setState(StateReconnecting, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setState(StateStopped, nil)
			return nil
		case <-timer.C:
		}
	}
}

// subscribe holds one subscription open until it fails. The response body is
// closed before it returns, so a reconnect never overlaps the old stream.
func (c *Client) subscribe(ctx context.Context, handler func(fleet.Event)) (connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("connect to %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("connect to %s: unexpected status %s", c.url, resp.Status)
	}

	c.setState(StateLive, nil)
	c.log.Debug("subscribed to %s", c.url)

	scanner := NewScanner(resp.Body)
	for scanner.Next() {
		ev, err := Decode(scanner.Message())
		if err != nil {
			c.dropped.Add(1)
			c.log.Warn("dropping malformed event: %v", err)
			continue
		}
		c.delivered.Add(1)
		handler(ev)
	}
	if err := scanner.Err(); err != nil {
		return true, fmt.Errorf("read stream: %w", err)
	}
	return true, fmt.Errorf("stream closed by server")
}
