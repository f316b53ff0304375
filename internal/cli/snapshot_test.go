package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-kit/log"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/fleetwatch/internal/config"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/simulate"
	"github.com/rileyhilliard/fleetwatch/internal/view"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testInstances() []fleet.Instance {
	mk := func(id, service, region string, status fleet.Status, offset time.Duration) fleet.Instance {
		return fleet.Instance{
			ID:        id,
			Labels:    map[string]string{"service": service, "region": region},
			Hostname:  id + ".internal",
			Status:    status,
			CreatedAt: t0.Add(offset),
			UpdatedAt: t0.Add(offset),
		}
	}
	return []fleet.Instance{
		mk("a1", "api", "us", fleet.StatusReady, 2*time.Minute),
		mk("w1", "worker", "eu", fleet.StatusError, time.Minute),
		mk("a2", "api", "eu", fleet.StatusReady, 0),
	}
}

func testSource(streamURL string) config.SourceConfig {
	return config.SourceConfig{
		StreamURL:      streamURL,
		ReconnectMin:   10 * time.Millisecond,
		ReconnectMax:   50 * time.Millisecond,
		RequestTimeout: time.Second,
	}
}

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    []view.Filter
		wantErr bool
	}{
		{name: "none", raw: nil, want: nil},
		{
			name: "single",
			raw:  []string{"status=ready"},
			want: []view.Filter{{Field: "status", Values: []string{"ready"}}},
		},
		{
			name: "repeated field merges",
			raw:  []string{"region=us", "status=ready", "region = eu"},
			want: []view.Filter{
				{Field: "region", Values: []string{"us", "eu"}},
				{Field: "status", Values: []string{"ready"}},
			},
		},
		{
			name: "unknown bucket",
			raw:  []string{"env=Unknown"},
			want: []view.Filter{{Field: "env", Values: []string{"Unknown"}}},
		},
		{name: "missing equals", raw: []string{"status"}, wantErr: true},
		{name: "missing field", raw: []string{"=ready"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFilters(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckOutputFormat(t *testing.T) {
	for _, f := range []string{OutputText, OutputJSON, OutputYAML} {
		assert.NoError(t, checkOutputFormat(f))
	}
	err := checkOutputFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `Unknown output format "xml"`)
}

func TestFetchSnapshot(t *testing.T) {
	f := simulate.New(simulate.Options{Instances: 4, Seed: 1})
	f.Populate()
	ts := httptest.NewServer(simulate.NewServer(f, log.NewNopLogger(), 0))
	defer ts.Close()

	got, err := fetchSnapshot(context.Background(), testSource(ts.URL+"/events"), 2*time.Second, false)
	require.NoError(t, err)
	require.Len(t, got, 4)

	var want, have []fleet.Identity
	for _, inst := range f.Snapshot() {
		want = append(want, inst.Identity())
	}
	for _, inst := range got {
		have = append(have, inst.Identity())
	}
	assert.ElementsMatch(t, want, have)
}

func TestFetchSnapshot_Timeout(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCause bool
	}{
		{
			name: "source failing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
			},
			wantCause: true,
		},
		{
			name: "stream without init",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				w.WriteHeader(http.StatusOK)
				w.(http.Flusher).Flush()
				<-r.Context().Done()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			_, err := fetchSnapshot(context.Background(), testSource(ts.URL), 150*time.Millisecond, false)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrStream))
			assert.Contains(t, err.Error(), "No fleet received from "+ts.URL)
			if tt.wantCause {
				assert.Contains(t, err.Error(), "503")
			}
		})
	}
}

func TestWriteSnapshot_Text(t *testing.T) {
	cols := []string{"service", "id", "status"}

	t.Run("flat", func(t *testing.T) {
		q := view.Query{}
		res := view.Build(testInstances(), q)

		var buf bytes.Buffer
		require.NoError(t, writeSnapshot(&buf, OutputText, "http://src/events", q, res, cols))
		out := buf.String()

		assert.Contains(t, out, "fleetwatch snapshot dev")
		assert.Contains(t, out, "http://src/events")
		assert.Contains(t, out, "3 of 3 instances · sorted by createdAt asc")
		assert.Contains(t, out, "SERVICE  ID  STATUS\n")

		// Oldest first.
		a2 := strings.Index(out, "api      a2  ready")
		w1 := strings.Index(out, "worker   w1  error")
		a1 := strings.Index(out, "api      a1  ready")
		require.True(t, a2 >= 0 && w1 >= 0 && a1 >= 0, out)
		assert.Less(t, a2, w1)
		assert.Less(t, w1, a1)
	})

	t.Run("grouped and filtered", func(t *testing.T) {
		q := view.Query{
			GroupBy: []string{"region"},
			Filters: []view.Filter{{Field: "service", Values: []string{"api"}}},
		}
		res := view.Build(testInstances(), q)

		var buf bytes.Buffer
		require.NoError(t, writeSnapshot(&buf, OutputText, "", q, res, cols))
		out := buf.String()

		assert.Contains(t, out, "2 of 3 instances · grouped by region · sorted by createdAt asc")
		assert.Contains(t, out, "▾ region: eu (1)\n  SERVICE  ID  STATUS\n  api      a2  ready\n")
		assert.Contains(t, out, "▾ region: us (1)\n  SERVICE  ID  STATUS\n  api      a1  ready\n")
		assert.NotContains(t, out, "w1")
	})

	t.Run("no matches", func(t *testing.T) {
		q := view.Query{Search: "nothing-here"}
		res := view.Build(testInstances(), q)

		var buf bytes.Buffer
		require.NoError(t, writeSnapshot(&buf, OutputText, "", q, res, cols))
		assert.Contains(t, buf.String(), `0 of 3 instances · sorted by createdAt asc · search "nothing-here"`)
		assert.Contains(t, buf.String(), "No instances match.")
	})
}

func TestWriteSnapshot_JSON(t *testing.T) {
	q := view.Query{GroupBy: []string{"service", "status"}}
	res := view.Build(testInstances(), q)

	var buf bytes.Buffer
	require.NoError(t, writeSnapshot(&buf, OutputJSON, "http://src/events", q, res, nil))

	var env struct {
		Success bool           `json:"success"`
		Data    snapshotReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)

	r := env.Data
	assert.Equal(t, "http://src/events", r.Source)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 3, r.Matched)
	assert.Equal(t, []string{"service", "status"}, r.GroupBy)
	assert.Empty(t, r.Instances)

	require.Len(t, r.Groups, 2)
	api := r.Groups[0]
	assert.Equal(t, "service", api.Field)
	assert.Equal(t, "api", api.Value)
	assert.Equal(t, 2, api.Count)
	require.Len(t, api.Groups, 1)
	assert.Equal(t, "ready", api.Groups[0].Value)
	require.Len(t, api.Groups[0].Instances, 2)
	assert.Equal(t, "a2", api.Groups[0].Instances[0].ID)
}

func TestWriteSnapshot_YAML(t *testing.T) {
	q := view.Query{Sort: view.SortSpec{Field: "id"}}
	res := view.Build(testInstances(), q)

	var buf bytes.Buffer
	require.NoError(t, writeSnapshot(&buf, OutputYAML, "http://src/events", q, res, nil))

	var r snapshotReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &r))
	assert.Equal(t, "id asc", r.Sort)
	assert.Nil(t, r.Groups)
	require.Len(t, r.Instances, 3)
	assert.Equal(t, []string{"a1", "a2", "w1"}, []string{r.Instances[0].ID, r.Instances[1].ID, r.Instances[2].ID})
	assert.Equal(t, "api", r.Instances[0].Service())
}

func TestWriteValues(t *testing.T) {
	values := view.DistinctValues(testInstances(), "region")

	var text bytes.Buffer
	require.NoError(t, writeValues(&text, OutputText, "region", values))
	assert.ElementsMatch(t, []string{"us", "eu"}, strings.Fields(text.String()))

	var js bytes.Buffer
	require.NoError(t, writeValues(&js, OutputJSON, "region", values))
	assert.Contains(t, js.String(), `"field": "region"`)
}
