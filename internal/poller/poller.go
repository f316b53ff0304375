// Package poller fetches secondary per-instance data (cache summary, request
// statistics, health) on independent schedules while an instance is expanded
// in the dashboard.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
)

// Slot is the latest state of one (instance, kind) feed.
type Slot struct {
	Kind     Kind
	Interval time.Duration

	// Payload keeps the last successful result; a failure sets Err but
	// leaves Payload untouched.
	Payload     any
	Latency     time.Duration
	LastSuccess time.Time
	LastAttempt time.Time
	Err         string
	Fetching    bool

	// Samples holds recent round-trip latencies in milliseconds, oldest first.
	Samples []float64
}

// Cache returns the payload as a cache summary.
func (s Slot) Cache() (CacheSummary, bool) {
	v, ok := s.Payload.(CacheSummary)
	return v, ok
}

// Stats returns the payload as request statistics.
func (s Slot) Stats() (RequestStats, bool) {
	v, ok := s.Payload.(RequestStats)
	return v, ok
}

// Health returns the payload as a health probe.
func (s Slot) Health() (HealthProbe, bool) {
	v, ok := s.Payload.(HealthProbe)
	return v, ok
}

type slotKey struct {
	id   fleet.Identity
	kind Kind
}

type slotState struct {
	slot    Slot
	gen     uint64
	cancel  context.CancelFunc
	history *ringBuffer
}

// Options configures a Poller.
type Options struct {
	// RequestTimeout bounds each fetch. Stopping a slot does not cancel a
	// fetch already in flight; its result is discarded when it returns.
	RequestTimeout time.Duration
	HistorySize    int

	// OnUpdate is called, outside the poller lock, after a slot changes.
	OnUpdate func(id fleet.Identity, kind Kind)

	Logger logger.Logger
}

// Poller runs one polling loop per active (instance, kind) slot.
type Poller struct {
	fetcher     Fetcher
	timeout     time.Duration
	historySize int
	onUpdate    func(fleet.Identity, Kind)
	log         logger.Logger
	now         func() time.Time

	mu    sync.Mutex
	slots map[slotKey]*slotState
	gen   uint64
}

// New creates a poller that fetches through f.
func New(f Fetcher, opts Options) *Poller {
	p := &Poller{
		fetcher:     f,
		timeout:     opts.RequestTimeout,
		historySize: opts.HistorySize,
		onUpdate:    opts.OnUpdate,
		log:         opts.Logger,
		now:         time.Now,
		slots:       make(map[slotKey]*slotState),
	}
	if p.timeout <= 0 {
		p.timeout = DefaultRequestTimeout
	}
	if p.log == nil {
		p.log = logger.For(logger.ComponentPoller)
	}
	return p
}

// Start fetches kind for id immediately and then every interval. With
// interval Off only the immediate fetch runs. Starting an active slot
// replaces its loop and keeps its last payload.
func (p *Poller) Start(id fleet.Identity, kind Kind, interval time.Duration) {
	key := slotKey{id: id, kind: kind}
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.gen++
	gen := p.gen
	st, ok := p.slots[key]
	if ok {
		st.cancel()
	} else {
		st = &slotState{
			slot:    Slot{Kind: kind},
			history: newRingBuffer(p.historySize),
		}
		p.slots[key] = st
	}
	st.gen = gen
	st.cancel = cancel
	st.slot.Interval = interval
	p.mu.Unlock()

	go p.loop(ctx, key, gen, interval)
}

// StartAll starts every kind for id with the given cadence.
func (p *Poller) StartAll(id fleet.Identity, intervals Intervals) {
	for _, kind := range Kinds {
		p.Start(id, kind, intervals.Get(kind))
	}
}

// Stop ends the loop for one slot and forgets its data.
func (p *Poller) Stop(id fleet.Identity, kind Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked(slotKey{id: id, kind: kind})
}

// StopInstance ends every loop for id.
func (p *Poller) StopInstance(id fleet.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key := range p.slots {
		if key.id == id {
			p.stopLocked(key)
		}
	}
}

// Close ends every loop.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key := range p.slots {
		p.stopLocked(key)
	}
}

func (p *Poller) stopLocked(key slotKey) {
	st, ok := p.slots[key]
	if !ok {
		return
	}
	st.cancel()
	delete(p.slots, key)
}

// Slot returns a copy of the slot for id and kind.
func (p *Poller) Slot(id fleet.Identity, kind Kind) (Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.slots[slotKey{id: id, kind: kind}]
	if !ok {
		return Slot{}, false
	}
	out := st.slot
	out.Samples = st.history.all()
	return out, true
}

// Slots returns the active slots for id in Kinds order.
func (p *Poller) Slots(id fleet.Identity) []Slot {
	var out []Slot
	for _, kind := range Kinds {
		if s, ok := p.Slot(id, kind); ok {
			out = append(out, s)
		}
	}
	return out
}

// Active reports whether any slot is running for id.
func (p *Poller) Active(id fleet.Identity) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key := range p.slots {
		if key.id == id {
			return true
		}
	}
	return false
}

// Len returns the number of active slots.
func (p *Poller) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

func (p *Poller) loop(ctx context.Context, key slotKey, gen uint64, interval time.Duration) {
	p.poll(key, gen)
	if interval <= Off {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.poll(key, gen)
		}
	}
}

// poll performs one fetch and records it if the slot still belongs to gen.
func (p *Poller) poll(key slotKey, gen uint64) {
	if !p.mark(key, gen) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := p.now()
	payload, err := p.fetcher.Fetch(ctx, key.id, key.kind)
	latency := p.now().Sub(start)

	p.mu.Lock()
	st, ok := p.slots[key]
	if !ok || st.gen != gen {
		p.mu.Unlock()
		p.log.Debug("discarding late %s result for %s", key.kind, key.id)
		return
	}

	st.slot.Fetching = false
	st.slot.LastAttempt = start
	if err != nil {
		st.slot.Err = err.Error()
	} else {
		st.slot.Payload = payload
		st.slot.Latency = latency
		st.slot.LastSuccess = p.now()
		st.slot.Err = ""
		st.history.push(float64(latency) / float64(time.Millisecond))
	}
	p.mu.Unlock()

	if err != nil {
		p.log.Debug("%s fetch for %s failed: %v", key.kind, key.id, err)
	}
	if p.onUpdate != nil {
		p.onUpdate(key.id, key.kind)
	}
}

// mark flags the slot as fetching. It returns false if the slot was stopped
// or restarted since gen was issued.
func (p *Poller) mark(key slotKey, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.slots[key]
	if !ok || st.gen != gen {
		return false
	}
	st.slot.Fetching = true
	return true
}
