package simulate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("i%d", n)
	}
}

func newTestFleet(instances int) (*Fleet, *clock) {
	c := &clock{now: t0}
	f := New(Options{
		Instances: instances,
		Grace:     10 * time.Second,
		Seed:      42,
		Now:       c.Now,
		NewID:     sequentialIDs(),
	})
	return f, c
}

// drain returns every event buffered on ch.
func drain(ch <-chan fleet.Event) []fleet.Event {
	var out []fleet.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestPopulate(t *testing.T) {
	f, _ := newTestFleet(5)
	f.Populate()

	snap := f.Snapshot()
	require.Len(t, snap, 5)

	services := map[string]int{}
	for _, inst := range snap {
		require.NoError(t, inst.Validate())
		assert.Equal(t, fleet.StatusReady, inst.Status)
		assert.Contains(t, DefaultRegions, inst.Labels["region"])
		assert.NotEmpty(t, inst.Labels["cloudProvider"])
		assert.NotEmpty(t, inst.Hostname)
		assert.Equal(t, t0, inst.CreatedAt)
		services[inst.Service()]++
	}
	assert.Equal(t, map[string]int{"api": 2, "worker": 1, "scheduler": 1, "gateway": 1}, services)
}

func TestSubscribe(t *testing.T) {
	f, _ := newTestFleet(2)
	f.Populate()

	snap, events, cancel := f.Subscribe()
	assert.Len(t, snap, 2)
	assert.Equal(t, 1, f.Subscribers())

	inst := f.Spawn("api")
	assert.Equal(t, fleet.StatusInitializing, inst.Status)

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, fleet.EventPut, got[0].Type)
	assert.Equal(t, inst.Identity(), got[0].Instance.Identity())

	cancel()
	cancel()
	assert.Equal(t, 0, f.Subscribers())
	_, open := <-events
	assert.False(t, open)
}

func TestSetStatusTouchRemove(t *testing.T) {
	f, c := newTestFleet(0)
	_, events, cancel := f.Subscribe()
	defer cancel()

	inst := f.Spawn("worker")
	id := inst.Identity()

	c.Advance(time.Second)
	require.True(t, f.SetStatus(id, fleet.StatusError))
	got, ok := f.Get(id)
	require.True(t, ok)
	assert.Equal(t, fleet.StatusError, got.Status)
	assert.Equal(t, t0.Add(time.Second), got.UpdatedAt)

	c.Advance(time.Second)
	require.True(t, f.Touch(id))
	got, _ = f.Get(id)
	assert.Equal(t, fleet.StatusError, got.Status)
	assert.Equal(t, t0.Add(2*time.Second), got.UpdatedAt)

	require.True(t, f.Remove(id))
	assert.False(t, f.Remove(id))
	assert.False(t, f.SetStatus(id, fleet.StatusReady))
	assert.False(t, f.Touch(id))

	var types []fleet.EventType
	for _, ev := range drain(events) {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []fleet.EventType{fleet.EventPut, fleet.EventPut, fleet.EventPut, fleet.EventDelete}, types)
}

func TestStepProgressesLifecycle(t *testing.T) {
	f, _ := newTestFleet(0)
	starting := f.Spawn("api").Identity()
	stopping := f.Spawn("api").Identity()
	require.True(t, f.SetStatus(stopping, fleet.StatusShuttingDown))

	f.Step()

	got, _ := f.Get(starting)
	assert.Equal(t, fleet.StatusReady, got.Status)
	got, _ = f.Get(stopping)
	assert.Equal(t, fleet.StatusTerminated, got.Status)
}

func TestStepRemovesTerminatedAfterGrace(t *testing.T) {
	f, c := newTestFleet(0)
	id := f.Spawn("api").Identity()
	require.True(t, f.SetStatus(id, fleet.StatusTerminated))

	_, events, cancel := f.Subscribe()
	defer cancel()

	c.Advance(5 * time.Second)
	f.Step()
	_, ok := f.Get(id)
	assert.True(t, ok, "still within grace")

	c.Advance(5 * time.Second)
	f.Step()
	_, ok = f.Get(id)
	assert.False(t, ok)

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, fleet.EventDelete, got[0].Type)
	assert.Equal(t, id, got[0].Key)
}

func TestStepReplenishes(t *testing.T) {
	f, _ := newTestFleet(2)

	f.Step()
	assert.Equal(t, 1, f.Len())
	f.Step()
	assert.Equal(t, 2, f.Len())
}

func TestStepIsReproducible(t *testing.T) {
	run := func() []fleet.Instance {
		f, c := newTestFleet(6)
		f.Populate()
		for i := 0; i < 50; i++ {
			c.Advance(time.Second)
			f.Step()
		}
		return f.Snapshot()
	}
	assert.Equal(t, run(), run())
}

func TestPayloads(t *testing.T) {
	f, c := newTestFleet(0)
	id := f.Spawn("api").Identity()
	f.Step()
	c.Advance(90 * time.Second)

	cache, ok := f.CacheSummary(id)
	require.True(t, ok)
	assert.Equal(t, "warm", cache.Status)
	assert.Len(t, cache.Counts, len(cacheCategories))
	for _, envs := range cache.Counts {
		assert.Len(t, envs, len(cacheEnvironments))
	}

	stats, ok := f.RequestStats(id)
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, stats.Uptime())
	assert.Len(t, stats.Endpoints, len(endpoints))
	var total int64
	for _, e := range stats.Endpoints {
		total += e.Count
	}
	assert.Equal(t, stats.TotalRequests, total)

	healthy, reason, ok := f.Health(id)
	require.True(t, ok)
	assert.True(t, healthy)
	assert.Empty(t, reason)

	require.True(t, f.SetStatus(id, fleet.StatusNoResponse))
	healthy, reason, _ = f.Health(id)
	assert.False(t, healthy)
	assert.Equal(t, "instance is no-response", reason)

	missing := fleet.Identity{Service: "api", ID: "nope"}
	_, ok = f.CacheSummary(missing)
	assert.False(t, ok)
	_, ok = f.RequestStats(missing)
	assert.False(t, ok)
	_, _, ok = f.Health(missing)
	assert.False(t, ok)
}

func TestCacheSummaryWhileInitializing(t *testing.T) {
	f, _ := newTestFleet(0)
	id := f.Spawn("api").Identity()

	cache, ok := f.CacheSummary(id)
	require.True(t, ok)
	assert.Equal(t, "loading", cache.Status)
}
