package fleet

import (
	"sync"

	"github.com/rileyhilliard/fleetwatch/internal/logger"
)

// Stats counts the events a Reconciler has processed.
type Stats struct {
	Puts         int
	Deletes      int
	InitsApplied int
	InitsIgnored int
}

// Reconciler applies stream events to the Registry, routing them through the
// pause Buffer and annotating puts with attention cues.
//
// Handle and SetPaused are serialized so a UI goroutine can toggle pause while
// the stream goroutine delivers events.
type Reconciler struct {
	mu           sync.Mutex
	registry     *Registry
	buffer       *Buffer
	cues         *Cues
	log          logger.Logger
	stats        Stats
	onTransition func(Identity, Transition)
}

// NewReconciler wires a reconciler over registry and cues.
func NewReconciler(registry *Registry, cues *Cues) *Reconciler {
	r := &Reconciler{
		registry: registry,
		cues:     cues,
		log:      logger.For(logger.ComponentFleet),
	}
	r.buffer = NewBuffer(reconcilerSink{r: r})
	return r
}

// SetLogger replaces the reconciler's logger.
func (r *Reconciler) SetLogger(l logger.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = l
}

// SetOnTransition registers an observer called for every applied put.
func (r *Reconciler) SetOnTransition(fn func(Identity, Transition)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTransition = fn
}

// Registry returns the registry the reconciler writes to.
func (r *Reconciler) Registry() *Registry {
	return r.registry
}

// Cues returns the cue arena.
func (r *Reconciler) Cues() *Cues {
	return r.cues
}

// Handle applies one stream event.
//
// An init event replaces the registry only while it is empty (first
// connection). On a reconnect the registry is non-empty and the init is
// ignored so a stale server snapshot cannot resurrect removed instances.
// While paused, emptiness is judged with the pending changes applied.
func (r *Reconciler) Handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case EventInit:
		if n := r.effectiveLen(); n > 0 {
			r.stats.InitsIgnored++
			r.log.Debug("ignoring init of %d instances: registry already holds %d", len(ev.Instances), n)
			return
		}
		r.stats.InitsApplied++
		if r.buffer.Paused() {
			for _, inst := range ev.Instances {
				r.buffer.ApplyPut(inst)
			}
			return
		}
		r.registry.Replace(ev.Instances)
		r.log.Debug("applied init with %d instances", len(ev.Instances))

	case EventPut:
		r.stats.Puts++
		r.buffer.ApplyPut(ev.Instance)

	case EventDelete:
		r.stats.Deletes++
		r.buffer.ApplyDelete(ev.Key)

	default:
		r.log.Warn("dropping event with unknown type %q", ev.Type)
	}
}

// effectiveLen is the registry size once pending changes are replayed. The
// registry is only written through the buffer, so it is stable while paused.
// Called with r.mu held.
func (r *Reconciler) effectiveLen() int {
	n := r.registry.Len()
	if !r.buffer.Paused() {
		return n
	}
	for _, op := range r.buffer.PendingOps() {
		_, present := r.registry.Get(op.Key)
		switch {
		case op.Kind == OpPut && !present:
			n++
		case op.Kind == OpDelete && present:
			n--
		}
	}
	return n
}

// SetPaused freezes or resumes live updates. Resuming replays everything
// received while paused in one registry update.
func (r *Reconciler) SetPaused(paused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer.SetPaused(paused)
}

// Paused reports whether live updates are frozen.
func (r *Reconciler) Paused() bool {
	return r.buffer.Paused()
}

// Pending returns the number of identities with buffered changes.
func (r *Reconciler) Pending() int {
	return r.buffer.Pending()
}

// Stats returns event counters.
func (r *Reconciler) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

type transitionNote struct {
	id      Identity
	t       Transition
	status  Status
	deleted bool
}

// annotate triggers or clears cues after a registry update. Called with r.mu held.
func (r *Reconciler) annotate(notes []transitionNote) {
	for _, n := range notes {
		if n.deleted {
			if r.cues != nil {
				r.cues.Clear(n.id)
			}
			continue
		}
		if r.cues != nil {
			r.cues.Trigger(n.id, n.t, n.status)
		}
		if r.onTransition != nil {
			r.onTransition(n.id, n.t)
		}
	}
}

// reconcilerSink is the Buffer's view of the reconciler. Its methods run
// with Reconciler.mu held by Handle or SetPaused.
type reconcilerSink struct {
	r *Reconciler
}

func (s reconcilerSink) ApplyPut(inst Instance) {
	var note transitionNote
	s.r.registry.Update(func(tx *Txn) {
		note = putWithNote(tx, inst)
	})
	s.r.annotate([]transitionNote{note})
}

func (s reconcilerSink) ApplyDelete(id Identity) {
	removed := s.r.registry.ApplyDelete(id)
	if removed {
		s.r.annotate([]transitionNote{{id: id, deleted: true}})
	}
}

func (s reconcilerSink) Replay(ops []Op) {
	notes := make([]transitionNote, 0, len(ops))
	s.r.registry.Update(func(tx *Txn) {
		for _, op := range ops {
			switch op.Kind {
			case OpDelete:
				if _, removed := tx.Delete(op.Key); removed {
					notes = append(notes, transitionNote{id: op.Key, deleted: true})
				}
			case OpPut:
				if op.Recreate {
					tx.Delete(op.Key)
				}
				notes = append(notes, putWithNote(tx, op.Instance))
			}
		}
	})
	s.r.log.Debug("replayed %d buffered changes", len(ops))
	s.r.annotate(notes)
}

func putWithNote(tx *Txn, inst Instance) transitionNote {
	prev, existed := tx.Put(inst)
	return transitionNote{
		id:     inst.Identity(),
		t:      Classify(prev, existed, inst),
		status: inst.Status,
	}
}
