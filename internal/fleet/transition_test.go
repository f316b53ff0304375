package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	initializing := newInstance("api", "a", StatusInitializing)
	ready := newInstance("api", "a", StatusReady)
	readyMoved := ready
	readyMoved.Hostname = "elsewhere"

	tests := []struct {
		name    string
		prev    Instance
		existed bool
		next    Instance
		want    Transition
	}{
		{"no previous record", Instance{}, false, ready, TransitionNew},
		{"status changed", initializing, true, ready, TransitionStatusChanged},
		{"heartbeat", ready, true, ready, TransitionRefreshed},
		{"field update without status change", ready, true, readyMoved, TransitionRefreshed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.prev, tt.existed, tt.next))
		})
	}
}

func TestTransitionString(t *testing.T) {
	assert.Equal(t, "new", TransitionNew.String())
	assert.Equal(t, "status-changed", TransitionStatusChanged.String())
	assert.Equal(t, "refreshed", TransitionRefreshed.String())
	assert.Equal(t, "unknown", Transition(99).String())
}

func TestCueFor(t *testing.T) {
	tests := []struct {
		transition Transition
		kind       CueKind
		duration   time.Duration
	}{
		{TransitionNew, CueAppear, time.Second},
		{TransitionStatusChanged, CueHighlight, 2 * time.Second},
		{TransitionRefreshed, CuePulse, 600 * time.Millisecond},
		{Transition(99), CueNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.transition.String(), func(t *testing.T) {
			kind, d := CueFor(tt.transition)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.duration, d)
		})
	}
}

func TestCueKindString(t *testing.T) {
	assert.Equal(t, "appear", CueAppear.String())
	assert.Equal(t, "highlight", CueHighlight.String())
	assert.Equal(t, "pulse", CuePulse.String())
	assert.Equal(t, "none", CueNone.String())
}
