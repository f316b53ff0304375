package fleet

import (
	"sync"
	"time"
)

// Cue is an active, time-bounded attention annotation on an instance.
type Cue struct {
	Kind    CueKind
	Status  Status // the new status for highlight cues
	Started time.Time
	Expires time.Time
}

// AfterFunc schedules f after d and returns a function that cancels it.
// It matches time.AfterFunc so tests can substitute a manual scheduler.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	t := time.AfterFunc(d, f)
	return t.Stop
}

// Cues is an arena of cancellable cue timers keyed by identity. Triggering a
// cue for an identity cancels its outstanding cue first, so timers reset
// rather than stack. Cues never touch registry content.
type Cues struct {
	mu        sync.Mutex
	active    map[Identity]*cueSlot
	gen       uint64
	afterFunc AfterFunc
	now       func() time.Time
	onExpire  func(Identity)
}

type cueSlot struct {
	cue  Cue
	gen  uint64
	stop func() bool
}

// NewCues creates an empty cue arena backed by real timers.
func NewCues() *Cues {
	return &Cues{
		active:    make(map[Identity]*cueSlot),
		afterFunc: realAfterFunc,
		now:       time.Now,
	}
}

// SetScheduler replaces the timer implementation and clock.
func (c *Cues) SetScheduler(afterFunc AfterFunc, now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterFunc = afterFunc
	c.now = now
}

// SetOnExpire registers a callback invoked (outside the arena lock) when a
// cue expires on its own.
func (c *Cues) SetOnExpire(fn func(Identity)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpire = fn
}

// Trigger starts the cue for transition t on id, replacing any active cue.
func (c *Cues) Trigger(id Identity, t Transition, status Status) Cue {
	kind, d := CueFor(t)
	if kind == CueNone {
		return Cue{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked(id)

	c.gen++
	gen := c.gen
	started := c.now()
	slot := &cueSlot{
		cue: Cue{
			Kind:    kind,
			Status:  status,
			Started: started,
			Expires: started.Add(d),
		},
		gen: gen,
	}
	c.active[id] = slot
	slot.stop = c.afterFunc(d, func() { c.expire(id, gen) })

	return slot.cue
}

// Clear cancels the active cue for id, if any.
func (c *Cues) Clear(id Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(id)
}

// Active returns the current cue for id.
func (c *Cues) Active(id Identity) (Cue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot, ok := c.active[id]
	if !ok {
		return Cue{}, false
	}
	return slot.cue, true
}

// Len returns the number of active cues.
func (c *Cues) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// Stop cancels every active cue.
func (c *Cues) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.active {
		c.cancelLocked(id)
	}
}

func (c *Cues) cancelLocked(id Identity) {
	slot, ok := c.active[id]
	if !ok {
		return
	}
	if slot.stop != nil {
		slot.stop()
	}
	delete(c.active, id)
}

// expire removes the cue for id unless it was superseded after this timer
// was scheduled.
func (c *Cues) expire(id Identity, gen uint64) {
	c.mu.Lock()
	slot, ok := c.active[id]
	if !ok || slot.gen != gen {
		c.mu.Unlock()
		return
	}
	delete(c.active, id)
	onExpire := c.onExpire
	c.mu.Unlock()

	if onExpire != nil {
		onExpire(id)
	}
}
