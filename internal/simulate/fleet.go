// Package simulate implements a development fleet source: an in-memory fleet
// that registers, updates, and removes instances on a timer, served over the
// same SSE stream and REST endpoints the dashboard consumes.
package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
)

// subscriberBuffer is the event backlog a slow stream client may accumulate
// before events are dropped for it.
const subscriberBuffer = 256

// Options configures a Fleet.
type Options struct {
	// Instances is the population the fleet starts with and drifts around.
	Instances int
	// Grace is how long a terminated instance stays listed before removal.
	Grace time.Duration

	Services []string
	Regions  []string

	// Seed makes the mutation sequence reproducible. Zero picks a random seed.
	Seed uint64

	Now    func() time.Time
	NewID  func() string
	Logger log.Logger
}

// DefaultServices and DefaultRegions populate simulated labels.
var (
	DefaultServices = []string{"api", "worker", "scheduler", "gateway"}
	DefaultRegions  = []string{"us-east-1", "us-west-2", "eu-west-1"}
)

var providers = map[string]string{
	"us-east-1": "aws",
	"us-west-2": "aws",
	"eu-west-1": "gcp",
}

// Fleet is a simulated set of instances. It is safe for concurrent use.
type Fleet struct {
	opts Options
	log  log.Logger

	mu         sync.Mutex
	rng        *rand.Rand
	instances  map[fleet.Identity]*simInstance
	subs       map[int]chan fleet.Event
	nextSub    int
	nextSerial int
}

type simInstance struct {
	inst         fleet.Instance
	terminatedAt time.Time
	requests     int64
	errors       int64
	invalidated  int64
}

// New creates an empty fleet. Call Populate to seed it.
func New(opts Options) *Fleet {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString()[:8] }
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if len(opts.Services) == 0 {
		opts.Services = DefaultServices
	}
	if len(opts.Regions) == 0 {
		opts.Regions = DefaultRegions
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &Fleet{
		opts:      opts,
		log:       log.WithPrefix(opts.Logger, "component", "fleet"),
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		instances: make(map[fleet.Identity]*simInstance),
		subs:      make(map[int]chan fleet.Event),
	}
}

// Populate adds Options.Instances ready instances without publishing events.
// Stream clients see them in the init snapshot.
func (f *Fleet) Populate() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := 0; i < f.opts.Instances; i++ {
		s := f.newInstanceLocked(f.opts.Services[i%len(f.opts.Services)])
		s.inst.Status = fleet.StatusReady
		f.instances[s.inst.Identity()] = s
	}
	level.Info(f.log).Log("msg", "populated fleet", "instances", len(f.instances))
}

// Snapshot returns every instance ordered by creation time.
func (f *Fleet) Snapshot() []fleet.Instance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Fleet) snapshotLocked() []fleet.Instance {
	out := make([]fleet.Instance, 0, len(f.instances))
	for _, s := range f.instances {
		out = append(out, s.inst.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Identity().String() < out[j].Identity().String()
	})
	return out
}

// Len returns the number of listed instances.
func (f *Fleet) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.instances)
}

// Get returns the instance with identity id.
func (f *Fleet) Get(id fleet.Identity) (fleet.Instance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.instances[id]
	if !ok {
		return fleet.Instance{}, false
	}
	return s.inst.Clone(), true
}

// Subscribe returns the current snapshot and a channel of every event
// published after it. The two are taken atomically so a subscriber never
// misses a change. Call cancel to unsubscribe.
func (f *Fleet) Subscribe() (snapshot []fleet.Instance, events <-chan fleet.Event, cancel func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan fleet.Event, subscriberBuffer)
	id := f.nextSub
	f.nextSub++
	f.subs[id] = ch

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
	return f.snapshotLocked(), ch, cancel
}

// Subscribers returns the number of open subscriptions.
func (f *Fleet) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// publishLocked fans ev out to every subscriber. A subscriber whose buffer
// is full misses the event.
func (f *Fleet) publishLocked(ev fleet.Event) {
	for id, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			level.Warn(f.log).Log("msg", "subscriber backlog full, dropping event", "subscriber", id, "type", ev.Type)
		}
	}
}

// Spawn registers a new initializing instance of service.
func (f *Fleet) Spawn(service string) fleet.Instance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spawnLocked(service)
}

func (f *Fleet) spawnLocked(service string) fleet.Instance {
	s := f.newInstanceLocked(service)
	f.instances[s.inst.Identity()] = s
	level.Info(f.log).Log("msg", "instance registered", "instance", s.inst.Identity())
	f.publishLocked(fleet.PutEvent(s.inst.Clone()))
	return s.inst.Clone()
}

func (f *Fleet) newInstanceLocked(service string) *simInstance {
	now := f.opts.Now()
	f.nextSerial++
	region := f.opts.Regions[f.rng.IntN(len(f.opts.Regions))]
	id := f.opts.NewID()
	octet := f.nextSerial%250 + 2

	labels := map[string]string{
		fleet.ServiceLabel: service,
		"region":           region,
		"cloudRegion":      region,
		"env":              "dev",
	}
	if p, ok := providers[region]; ok {
		labels["cloudProvider"] = p
	}

	return &simInstance{inst: fleet.Instance{
		ID:              id,
		Labels:          labels,
		Hostname:        fmt.Sprintf("%s-%s.%s.internal", service, id, region),
		ExternalAddress: fmt.Sprintf("203.0.113.%d", octet),
		InternalAddress: fmt.Sprintf("10.0.%d.%d", f.nextSerial/250, octet),
		Ports:           map[string]int{"http": 8080, "metrics": 9090},
		Status:          fleet.StatusInitializing,
		Meta:            map[string]any{"version": fmt.Sprintf("1.%d.0", f.rng.IntN(5))},
		CreatedAt:       now,
		UpdatedAt:       now,
	}}
}

// SetStatus changes the status of id and publishes the update. It reports
// whether the instance exists.
func (f *Fleet) SetStatus(id fleet.Identity, status fleet.Status) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setStatusLocked(id, status)
}

func (f *Fleet) setStatusLocked(id fleet.Identity, status fleet.Status) bool {
	s, ok := f.instances[id]
	if !ok {
		return false
	}
	prev := s.inst.Status
	s.inst.Status = status
	s.inst.UpdatedAt = f.opts.Now()
	if status == fleet.StatusTerminated {
		s.terminatedAt = s.inst.UpdatedAt
	}
	level.Debug(f.log).Log("msg", "status changed", "instance", id, "from", prev, "to", status)
	f.publishLocked(fleet.PutEvent(s.inst.Clone()))
	return true
}

// Touch refreshes id without changing its status, as a heartbeat would.
func (f *Fleet) Touch(id fleet.Identity) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touchLocked(id)
}

func (f *Fleet) touchLocked(id fleet.Identity) bool {
	s, ok := f.instances[id]
	if !ok {
		return false
	}
	s.inst.UpdatedAt = f.opts.Now()
	s.inst.Stats = map[string]any{"connections": f.rng.IntN(200)}
	f.publishLocked(fleet.PutEvent(s.inst.Clone()))
	return true
}

// Remove deletes id and publishes the delete.
func (f *Fleet) Remove(id fleet.Identity) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removeLocked(id)
}

func (f *Fleet) removeLocked(id fleet.Identity) bool {
	if _, ok := f.instances[id]; !ok {
		return false
	}
	delete(f.instances, id)
	level.Info(f.log).Log("msg", "instance removed", "instance", id)
	f.publishLocked(fleet.DeleteEvent(id))
	return true
}

// Step applies one round of lifecycle changes:
//
//   - terminated instances past the grace period are removed
//   - initializing instances become ready, shutting_down ones terminate
//   - one random ready instance fails, starts shutting down, or heartbeats
//   - failed instances may recover
//   - a new instance is spawned while the fleet is below its target size
func (f *Fleet) Step() {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.opts.Now()
	var ready []fleet.Identity

	for _, id := range f.sortedIDsLocked() {
		s := f.instances[id]
		switch s.inst.Status {
		case fleet.StatusTerminated:
			if now.Sub(s.terminatedAt) >= f.opts.Grace {
				f.removeLocked(id)
			}
		case fleet.StatusInitializing:
			f.setStatusLocked(id, fleet.StatusReady)
		case fleet.StatusShuttingDown:
			f.setStatusLocked(id, fleet.StatusTerminated)
		case fleet.StatusError, fleet.StatusNoResponse:
			if f.rng.IntN(2) == 0 {
				f.setStatusLocked(id, fleet.StatusReady)
			}
		case fleet.StatusReady:
			s.requests += int64(f.rng.IntN(500))
			s.errors += int64(f.rng.IntN(3))
			ready = append(ready, id)
		}
	}

	if len(ready) > 0 {
		id := ready[f.rng.IntN(len(ready))]
		switch roll := f.rng.IntN(20); {
		case roll == 0:
			f.setStatusLocked(id, fleet.StatusError)
		case roll == 1:
			f.setStatusLocked(id, fleet.StatusNoResponse)
		case roll < 4:
			f.setStatusLocked(id, fleet.StatusShuttingDown)
		default:
			f.touchLocked(id)
		}
	}

	if f.liveLocked() < f.opts.Instances {
		f.spawnLocked(f.opts.Services[f.rng.IntN(len(f.opts.Services))])
	}
}

// liveLocked counts instances that are not on their way out.
func (f *Fleet) liveLocked() int {
	n := 0
	for _, s := range f.instances {
		switch s.inst.Status {
		case fleet.StatusShuttingDown, fleet.StatusTerminated:
		default:
			n++
		}
	}
	return n
}

func (f *Fleet) sortedIDsLocked() []fleet.Identity {
	ids := make([]fleet.Identity, 0, len(f.instances))
	for id := range f.instances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Run calls Step every tick until ctx is canceled.
func (f *Fleet) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Step()
		}
	}
}
