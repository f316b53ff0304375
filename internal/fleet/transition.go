package fleet

import "time"

// Transition classifies a put against the record it replaces.
type Transition int

const (
	// TransitionNew means no record existed for the identity.
	TransitionNew Transition = iota
	// TransitionStatusChanged means the status differs from the previous record.
	TransitionStatusChanged
	// TransitionRefreshed means the status is unchanged (a heartbeat or field update).
	TransitionRefreshed
)

// String returns a human-readable label for the transition.
func (t Transition) String() string {
	switch t {
	case TransitionNew:
		return "new"
	case TransitionStatusChanged:
		return "status-changed"
	case TransitionRefreshed:
		return "refreshed"
	default:
		return "unknown"
	}
}

// Classify compares next to the previous record at the same identity.
func Classify(prev Instance, existed bool, next Instance) Transition {
	if !existed {
		return TransitionNew
	}
	if prev.Status != next.Status {
		return TransitionStatusChanged
	}
	return TransitionRefreshed
}

// CueKind is the attention cue a transition drives.
type CueKind int

const (
	CueNone CueKind = iota
	CueAppear
	CueHighlight
	CuePulse
)

// Cue lifetimes. Each cue expires independently of the others.
const (
	AppearDuration    = 1000 * time.Millisecond
	HighlightDuration = 2000 * time.Millisecond
	PulseDuration     = 600 * time.Millisecond
)

// String returns a human-readable label for the cue kind.
func (k CueKind) String() string {
	switch k {
	case CueAppear:
		return "appear"
	case CueHighlight:
		return "highlight"
	case CuePulse:
		return "pulse"
	default:
		return "none"
	}
}

// CueFor maps a transition to its cue kind and lifetime.
func CueFor(t Transition) (CueKind, time.Duration) {
	switch t {
	case TransitionNew:
		return CueAppear, AppearDuration
	case TransitionStatusChanged:
		return CueHighlight, HighlightDuration
	case TransitionRefreshed:
		return CuePulse, PulseDuration
	default:
		return CueNone, 0
	}
}
