package simulate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/poller"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
)

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestServer_REST(t *testing.T) {
	f, _ := newTestFleet(0)
	ready := f.Spawn("api").Identity()
	f.Step()
	failing := f.Spawn("worker").Identity()
	require.True(t, f.SetStatus(failing, fleet.StatusError))

	srv := NewServer(f, log.NewNopLogger(), 0)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		check      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:       "list instances",
			path:       "/instances",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var got []fleet.Instance
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Len(t, got, 2)
			},
		},
		{
			name:       "cache summary",
			path:       "/instances/api/" + ready.ID + "/cache-summary",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var got poller.CacheSummary
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, "warm", got.Status)
			},
		},
		{
			name:       "request stats",
			path:       "/instances/api/" + ready.ID + "/request-stats",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var got poller.RequestStats
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Len(t, got.Endpoints, len(endpoints))
			},
		},
		{
			name:       "healthy",
			path:       "/instances/api/" + ready.ID + "/health",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var got HealthBody
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, HealthBody{Healthy: true}, got)
			},
		},
		{
			name:       "unhealthy",
			path:       "/instances/worker/" + failing.ID + "/health",
			wantStatus: http.StatusServiceUnavailable,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var got HealthBody
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, HealthBody{Healthy: false, Error: "instance is error"}, got)
			},
		},
		{
			name:       "unknown instance",
			path:       "/instances/api/missing/cache-summary",
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var got ErrorBody
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, "instance api/missing not found", got.Error.Message)
			},
		},
		{
			name:       "unknown route",
			path:       "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}

func TestServer_HTTPFetcher(t *testing.T) {
	f, _ := newTestFleet(0)
	id := f.Spawn("api").Identity()
	f.Step()

	ts := httptest.NewServer(NewServer(f, log.NewNopLogger(), 0))
	defer ts.Close()

	fetcher := poller.NewHTTPFetcher(ts.URL, time.Second)
	ctx := context.Background()

	payload, err := fetcher.Fetch(ctx, id, poller.KindCache)
	require.NoError(t, err)
	assert.IsType(t, poller.CacheSummary{}, payload)

	payload, err = fetcher.Fetch(ctx, id, poller.KindStats)
	require.NoError(t, err)
	assert.IsType(t, poller.RequestStats{}, payload)

	payload, err = fetcher.Fetch(ctx, id, poller.KindHealth)
	require.NoError(t, err)
	assert.True(t, payload.(poller.HealthProbe).Healthy)

	require.True(t, f.SetStatus(id, fleet.StatusShuttingDown))
	payload, err = fetcher.Fetch(ctx, id, poller.KindHealth)
	require.NoError(t, err)
	probe := payload.(poller.HealthProbe)
	assert.False(t, probe.Healthy)
	assert.Equal(t, "503 Service Unavailable instance is shutting_down", probe.Error)

	_, err = fetcher.Fetch(ctx, fleet.Identity{Service: "api", ID: "gone"}, poller.KindStats)
	assert.Error(t, err)
}

func TestServer_StreamFeedsRegistry(t *testing.T) {
	f, _ := newTestFleet(3)
	f.Populate()

	srv := NewServer(f, log.NewNopLogger(), 20*time.Millisecond)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	reconciler := fleet.NewReconciler(fleet.NewRegistry(), nil)
	reconciler.SetLogger(logger.Noop())
	registry := reconciler.Registry()

	client := stream.NewClient(ts.URL+"/events", stream.Options{
		ReconnectMin: 10 * time.Millisecond,
		ReconnectMax: 50 * time.Millisecond,
		Logger:       logger.Noop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(ctx, reconciler.Handle)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return registry.Len() == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, stream.StateLive, client.State())

	added := f.Spawn("gateway")
	require.Eventually(t, func() bool {
		_, ok := registry.Get(added.Identity())
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	require.True(t, f.SetStatus(added.Identity(), fleet.StatusReady))
	require.Eventually(t, func() bool {
		inst, _ := registry.Get(added.Identity())
		return inst.Status == fleet.StatusReady
	}, 2*time.Second, 5*time.Millisecond)

	require.True(t, f.Remove(added.Identity()))
	require.Eventually(t, func() bool { return registry.Len() == 3 }, 2*time.Second, 5*time.Millisecond)

	assert.Zero(t, client.Stats().Dropped)
}

func TestServer_ShutdownEndsStreams(t *testing.T) {
	f, _ := newTestFleet(1)
	f.Populate()

	srv := NewServer(f, log.NewNopLogger(), 0)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := stream.NewScanner(resp.Body)
	require.True(t, scanner.Next())
	ev, err := stream.Decode(scanner.Message())
	require.NoError(t, err)
	assert.Equal(t, fleet.EventInit, ev.Type)
	assert.Len(t, ev.Instances, 1)
	require.Eventually(t, func() bool { return f.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	assert.False(t, scanner.Next(), "stream ends after shutdown")
	require.Eventually(t, func() bool { return f.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}
