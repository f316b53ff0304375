package doctor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/fleetwatch/internal/config"
	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/poller"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
)

// DefaultSourceTimeout bounds each source check.
const DefaultSourceTimeout = 5 * time.Second

// SourceProbe holds what the stream check observed for the checks after it.
type SourceProbe struct {
	Source  config.SourceConfig
	Timeout time.Duration

	mu        sync.Mutex
	instances []fleet.Instance
}

func (p *SourceProbe) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultSourceTimeout
	}
	return p.Timeout
}

func (p *SourceProbe) setInstances(list []fleet.Instance) {
	p.mu.Lock()
	p.instances = list
	p.mu.Unlock()
}

// Instances returns the fleet from the stream's init event, if one arrived.
func (p *SourceProbe) Instances() []fleet.Instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instances
}

// NewSourceChecks returns the stream check followed by the API check.
func NewSourceChecks(probe *SourceProbe) []Check {
	return []Check{
		&StreamCheck{Probe: probe},
		&APICheck{Probe: probe},
	}
}

// StreamCheck subscribes to the event stream and waits for the init event.
type StreamCheck struct {
	Probe *SourceProbe
}

func (c *StreamCheck) Name() string     { return "stream" }
func (c *StreamCheck) Category() string { return CategorySource }

func (c *StreamCheck) Run(ctx context.Context) CheckResult {
	src := c.Probe.Source
	ctx, cancel := context.WithTimeout(ctx, c.Probe.timeout())
	defer cancel()

	var (
		mu      sync.Mutex
		lastErr error
	)
	client := stream.NewClient(src.StreamURL, stream.Options{
		ReconnectMin: src.ReconnectMin,
		ReconnectMax: src.ReconnectMax,
		OnState: func(_ stream.State, err error) {
			if err == nil {
				return
			}
			mu.Lock()
			lastErr = err
			mu.Unlock()
		},
		Logger: logger.Noop(),
	})

	start := time.Now()
	var received bool
	_ = client.Run(ctx, func(ev fleet.Event) {
		if ev.Type != fleet.EventInit || received {
			return
		}
		received = true
		c.Probe.setInstances(ev.Instances)
		cancel()
	})

	if !received {
		mu.Lock()
		err := lastErr
		mu.Unlock()
		if err != nil {
			return fail(c.Name(),
				fmt.Sprintf("Stream unreachable: %v", err),
				"Check source.stream_url, or run 'fleetwatch simulate' for a local fleet.")
		}
		return fail(c.Name(),
			fmt.Sprintf("No init event from %s within %s", src.StreamURL, c.Probe.timeout()),
			"The endpoint answered but sent no fleet. Check it serves the fleet event stream.")
	}

	n := len(c.Probe.Instances())
	return pass(c.Name(), fmt.Sprintf("Stream: %s instance%s from %s in %s",
		humanize.Comma(int64(n)), pluralize(n), src.StreamURL,
		time.Since(start).Round(time.Millisecond)))
}

// APICheck reads one instance's health endpoint from the REST API.
type APICheck struct {
	Probe *SourceProbe
}

func (c *APICheck) Name() string     { return "api" }
func (c *APICheck) Category() string { return CategorySource }

func (c *APICheck) Run(ctx context.Context) CheckResult {
	src := c.Probe.Source
	if src.APIURL == "" {
		return warn(c.Name(),
			"No API configured, instance detail will not poll",
			"Set source.api_url to enable cache, stats, and health panels.")
	}

	list := c.Probe.Instances()
	if len(list) == 0 {
		return warn(c.Name(),
			"API not checked: no instance to probe",
			"The check needs at least one instance from the stream.")
	}

	id := list[0].Identity()
	fetcher := poller.NewHTTPFetcher(src.APIURL, c.Probe.timeout())
	ctx, cancel := context.WithTimeout(ctx, c.Probe.timeout())
	defer cancel()

	v, err := fetcher.Fetch(ctx, id, poller.KindHealth)
	if err != nil {
		return fail(c.Name(),
			fmt.Sprintf("API unreachable: %v", err),
			"Check source.api_url points at the fleet REST API.")
	}
	probe := v.(poller.HealthProbe)
	if !probe.Healthy {
		return warn(c.Name(),
			fmt.Sprintf("API reachable, but %s reports unhealthy: %s", id, probe.Error),
			"")
	}
	return pass(c.Name(), fmt.Sprintf("API: %s healthy in %s", id, probe.Latency.Round(time.Millisecond)))
}
