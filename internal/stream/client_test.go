package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEvent(w http.ResponseWriter, data string) {
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// stateLog records observed connection states.
type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) observe(s State, _ error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) snapshot() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]State, len(l.states))
	copy(out, l.states)
	return out
}

func testOptions(states *stateLog) Options {
	return Options{
		ReconnectMin: 5 * time.Millisecond,
		ReconnectMax: 20 * time.Millisecond,
		OnState:      states.observe,
		Logger:       logger.NewBufferLogger(),
	}
}

// runClient runs c until want events arrive, then cancels and waits for Run.
func runClient(t *testing.T, c *Client, want int) []fleet.Event {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan fleet.Event, 64)
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(ev fleet.Event) { events <- ev })
	}()

	var got []fleet.Event
	timeout := time.After(5 * time.Second)
	for len(got) < want {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("received %d of %d events", len(got), want)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	return got
}

func TestClientDeliversEventsAndReconnects(t *testing.T) {
	var conns atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")

		switch conns.Add(1) {
		case 1:
			writeEvent(w, `{"type":"init","data":[{"instanceId":"A","labels":{"service":"api"},"status":"ready"}]}`)
			writeEvent(w, `{"type":"put","data":{"instanceId":"B","labels":{"service":"api"},"status":"initializing"}}`)
			writeEvent(w, `not json`)
			writeEvent(w, `{"type":"delete","data":{"instanceId":"A","labels":{"service":"api"}}}`)
			// Returning closes the stream and forces a reconnect.
		default:
			writeEvent(w, `{"type":"init","data":[]}`)
			<-r.Context().Done()
		}
	}))
	defer server.Close()

	states := &stateLog{}
	c := NewClient(server.URL, testOptions(states))
	got := runClient(t, c, 4)

	require.Len(t, got, 4)
	assert.Equal(t, fleet.EventInit, got[0].Type)
	assert.Equal(t, fleet.EventPut, got[1].Type)
	assert.Equal(t, fleet.EventDelete, got[2].Type)
	assert.Equal(t, fleet.EventInit, got[3].Type)

	stats := c.Stats()
	assert.Equal(t, int64(4), stats.Delivered)
	assert.Equal(t, int64(1), stats.Dropped)
	assert.GreaterOrEqual(t, stats.Reconnects, int64(1))

	seen := states.snapshot()
	require.NotEmpty(t, seen)
	assert.Equal(t, StateConnecting, seen[0])
	assert.Contains(t, seen, StateLive)
	assert.Contains(t, seen, StateReconnecting)
	assert.Equal(t, StateStopped, seen[len(seen)-1])
	assert.Equal(t, StateStopped, c.State())
}

func TestClientRetriesBadStatus(t *testing.T) {
	var conns atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conns.Add(1) <= 2 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		writeEvent(w, `{"type":"put","data":{"instanceId":"A","labels":{"service":"api"},"status":"ready"}}`)
		<-r.Context().Done()
	}))
	defer server.Close()

	states := &stateLog{}
	c := NewClient(server.URL, testOptions(states))
	got := runClient(t, c, 1)

	assert.Equal(t, fleet.EventPut, got[0].Type)
	assert.GreaterOrEqual(t, conns.Load(), int32(3))
}

func TestClientNoDuplicateDelivery(t *testing.T) {
	var open atomic.Int32
	var maxOpen atomic.Int32
	var conns atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := open.Add(1)
		defer open.Add(-1)
		for {
			cur := maxOpen.Load()
			if n <= cur || maxOpen.CompareAndSwap(cur, n) {
				break
			}
		}
		id := conns.Add(1)
		writeEvent(w, fmt.Sprintf(`{"type":"put","data":{"instanceId":"i%d","labels":{"service":"api"},"status":"ready"}}`, id))
	}))
	defer server.Close()

	c := NewClient(server.URL, testOptions(&stateLog{}))
	got := runClient(t, c, 3)

	assert.Equal(t, "i1", got[0].Instance.ID)
	assert.Equal(t, "i2", got[1].Instance.ID)
	assert.Equal(t, "i3", got[2].Instance.ID)
	assert.Equal(t, int32(1), maxOpen.Load(), "subscriptions never overlap")
}

func TestClientStopsWhileDisconnected(t *testing.T) {
	c := NewClient("http://127.0.0.1:1/stream", Options{
		ReconnectMin: time.Hour,
		ReconnectMax: time.Hour,
		Logger:       logger.Noop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(fleet.Event) {})
	}()

	require.Eventually(t, func() bool {
		return c.State() == StateReconnecting
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateStopped, c.State())
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("http://example.invalid", Options{})
	assert.Equal(t, DefaultReconnectMin, c.minDelay)
	assert.Equal(t, DefaultReconnectMax, c.maxDelay)
	assert.NotNil(t, c.http)
	assert.NotNil(t, c.log)

	c = NewClient("http://example.invalid", Options{ReconnectMin: time.Minute, ReconnectMax: time.Second})
	assert.Equal(t, time.Minute, c.maxDelay)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "live", StateLive.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(9).String())
}
