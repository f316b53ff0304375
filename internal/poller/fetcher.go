package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
)

// Fetcher retrieves one secondary payload for an instance. The returned value
// is a CacheSummary, RequestStats or HealthProbe depending on kind.
type Fetcher interface {
	Fetch(ctx context.Context, id fleet.Identity, kind Kind) (any, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id fleet.Identity, kind Kind) (any, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, id fleet.Identity, kind Kind) (any, error) {
	return f(ctx, id, kind)
}

// DefaultRequestTimeout bounds a single secondary request.
const DefaultRequestTimeout = 10 * time.Second

// HTTPFetcher reads secondary data from the fleet REST API:
//
//	GET {base}/instances/{service}/{id}/cache-summary
//	GET {base}/instances/{service}/{id}/request-stats
//	GET {base}/instances/{service}/{id}/health
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFetcher creates a fetcher for the API rooted at baseURL.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// endpoint returns the path suffix for kind.
func endpoint(kind Kind) (string, error) {
	switch kind {
	case KindCache:
		return "cache-summary", nil
	case KindStats:
		return "request-stats", nil
	case KindHealth:
		return "health", nil
	default:
		return "", fmt.Errorf("unknown poll kind %q", kind)
	}
}

// URL returns the request URL for id and kind.
func (f *HTTPFetcher) URL(id fleet.Identity, kind Kind) (string, error) {
	suffix, err := endpoint(kind)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/instances/%s/%s/%s",
		f.BaseURL, url.PathEscape(id.Service), url.PathEscape(id.ID), suffix), nil
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, id fleet.Identity, kind Kind) (any, error) {
	target, err := f.URL(id, kind)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", kind, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s for %s: %w", kind, id, err)
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	// A failing health endpoint is a result, not a fetch error.
	if kind == KindHealth {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxHealthBody))
		return decodeHealth(resp, body, latency), nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s for %s: unexpected status %s", kind, id, resp.Status)
	}

	switch kind {
	case KindCache:
		var out CacheSummary
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode cache summary: %w", err)
		}
		return out, nil
	default:
		var out RequestStats
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode request stats: %w", err)
		}
		return out, nil
	}
}

const maxHealthBody = 4 << 10

// healthBody is the health endpoint's JSON reply.
type healthBody struct {
	Healthy *bool  `json:"healthy"`
	Error   string `json:"error"`
}

// decodeHealth builds a probe from a health reply. A 2xx reply carrying a
// healthy field is taken at its word; otherwise the status code decides.
// Latency is always the measured round trip.
func decodeHealth(resp *http.Response, body []byte, latency time.Duration) HealthProbe {
	var reply healthBody
	decoded := json.Unmarshal(body, &reply) == nil && reply.Healthy != nil

	if resp.StatusCode < 300 {
		if decoded {
			return HealthProbe{Healthy: *reply.Healthy, Latency: latency, Error: reply.Error}
		}
		return HealthProbe{Healthy: true, Latency: latency}
	}

	detail := strings.TrimSpace(string(body))
	if decoded {
		detail = reply.Error
	}
	return HealthProbe{
		Latency: latency,
		Error:   strings.TrimSpace(resp.Status + " " + detail),
	}
}
