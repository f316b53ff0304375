package poller

import (
	"fmt"
	"time"
)

// Kind names a secondary data feed polled for one instance.
type Kind string

const (
	KindCache  Kind = "cache"
	KindStats  Kind = "stats"
	KindHealth Kind = "health"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindCache, KindStats, KindHealth}

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Label returns the heading used for the kind in the detail view.
func (k Kind) Label() string {
	switch k {
	case KindCache:
		return "Cache"
	case KindStats:
		return "Requests"
	case KindHealth:
		return "Health"
	default:
		return string(k)
	}
}

// ParseKind converts a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown poll kind %q (valid: cache, stats, health)", s)
}

// Off disables periodic polling: a slot started with it fetches once.
const Off time.Duration = 0

// Intervals holds the polling cadence for each kind.
type Intervals map[Kind]time.Duration

// DefaultIntervals returns the cadence used when no preference is stored.
func DefaultIntervals() Intervals {
	return Intervals{
		KindCache:  30 * time.Second,
		KindStats:  10 * time.Second,
		KindHealth: 5 * time.Second,
	}
}

// Get returns the interval for k, falling back to the default.
func (iv Intervals) Get(k Kind) time.Duration {
	if d, ok := iv[k]; ok {
		return d
	}
	return DefaultIntervals()[k]
}

// CacheSummary is the cache-summary payload of one instance.
type CacheSummary struct {
	Status        string                    `json:"status" yaml:"status"`
	LastRefresh   time.Time                 `json:"lastRefresh" yaml:"lastRefresh"`
	Invalidations int64                     `json:"invalidations" yaml:"invalidations"`
	Counts        map[string]map[string]int `json:"counts" yaml:"counts"` // category -> environment -> entries
}

// Total sums every count in the summary.
func (c CacheSummary) Total() int {
	total := 0
	for _, envs := range c.Counts {
		for _, n := range envs {
			total += n
		}
	}
	return total
}

// EndpointStats is the per-endpoint section of RequestStats.
type EndpointStats struct {
	Path     string  `json:"path" yaml:"path"`
	P50      float64 `json:"p50" yaml:"p50"` // milliseconds
	P90      float64 `json:"p90" yaml:"p90"`
	P99      float64 `json:"p99" yaml:"p99"`
	BytesIn  int64   `json:"bytesIn" yaml:"bytesIn"`
	BytesOut int64   `json:"bytesOut" yaml:"bytesOut"`
	Count    int64   `json:"count" yaml:"count"`
}

// RequestStats is the request-stats payload of one instance.
type RequestStats struct {
	UptimeSeconds float64          `json:"uptimeSeconds" yaml:"uptimeSeconds"`
	TotalRequests int64            `json:"totalRequests" yaml:"totalRequests"`
	StatusCodes   map[string]int64 `json:"statusCodes" yaml:"statusCodes"`
	Endpoints     []EndpointStats  `json:"endpoints" yaml:"endpoints"`
}

// Uptime returns the reported uptime as a duration.
func (r RequestStats) Uptime() time.Duration {
	return time.Duration(r.UptimeSeconds * float64(time.Second))
}

// HealthProbe is the outcome of one health request.
type HealthProbe struct {
	Healthy bool          `json:"healthy" yaml:"healthy"`
	Latency time.Duration `json:"latency" yaml:"latency"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}
