package simulate

import (
	"fmt"
	"math"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/poller"
)

var (
	cacheCategories   = []string{"users", "sessions", "assets"}
	cacheEnvironments = []string{"prod", "staging"}
	endpoints         = []string{"/v1/instances", "/v1/register", "/v1/health", "/v1/search"}
)

// CacheSummary returns the cache-summary payload for id.
func (f *Fleet) CacheSummary(id fleet.Identity) (poller.CacheSummary, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.instances[id]
	if !ok {
		return poller.CacheSummary{}, false
	}
	s.invalidated += int64(f.rng.IntN(10))

	counts := make(map[string]map[string]int, len(cacheCategories))
	for _, cat := range cacheCategories {
		envs := make(map[string]int, len(cacheEnvironments))
		for _, env := range cacheEnvironments {
			envs[env] = f.rng.IntN(5000)
		}
		counts[cat] = envs
	}

	status := "warm"
	if s.inst.Status == fleet.StatusInitializing {
		status = "loading"
	}
	return poller.CacheSummary{
		Status:        status,
		LastRefresh:   s.inst.UpdatedAt,
		Invalidations: s.invalidated,
		Counts:        counts,
	}, true
}

// RequestStats returns the request-stats payload for id.
func (f *Fleet) RequestStats(id fleet.Identity) (poller.RequestStats, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.instances[id]
	if !ok {
		return poller.RequestStats{}, false
	}

	uptime := f.opts.Now().Sub(s.inst.CreatedAt).Seconds()
	out := poller.RequestStats{
		UptimeSeconds: math.Max(uptime, 0),
		TotalRequests: s.requests,
		StatusCodes: map[string]int64{
			"200": s.requests - s.errors,
			"500": s.errors,
		},
	}

	remaining := s.requests
	for i, path := range endpoints {
		count := remaining / 2
		if i == len(endpoints)-1 {
			count = remaining
		}
		remaining -= count

		p50 := 5 + f.rng.Float64()*20
		out.Endpoints = append(out.Endpoints, poller.EndpointStats{
			Path:     path,
			Count:    count,
			P50:      p50,
			P90:      p50 * 3,
			P99:      p50 * 8,
			BytesIn:  count * 512,
			BytesOut: count * 4096,
		})
	}
	return out, true
}

// Health reports whether id would answer its health check, and the reason
// when it would not.
func (f *Fleet) Health(id fleet.Identity) (healthy bool, reason string, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, exists := f.instances[id]
	if !exists {
		return false, "", false
	}
	if s.inst.Status == fleet.StatusReady {
		return true, "", true
	}
	return false, fmt.Sprintf("instance is %s", s.inst.Status), true
}
