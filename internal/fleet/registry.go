package fleet

import (
	"sort"
	"sync"
)

// Registry is the authoritative map of instance identity to instance record.
//
// Writes are expected from a single logical flow (the Reconciler); the mutex
// exists so that concurrent readers always observe fully-applied records.
// Every mutation that changes content signals subscribers once.
type Registry struct {
	mu      sync.RWMutex
	records map[Identity]*entry
	seq     uint64

	subMu       sync.Mutex
	subscribers map[int]chan struct{}
	nextSub     int
}

// entry stores a record and the sequence number of its first put.
// The sequence is kept across updates so snapshots preserve insertion order.
type entry struct {
	inst Instance
	seq  uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records:     make(map[Identity]*entry),
		subscribers: make(map[int]chan struct{}),
	}
}

// Txn is a batch of registry operations applied under one lock.
type Txn struct {
	r       *Registry
	changed bool
}

// Put upserts inst by identity, replacing the stored record entirely.
// It returns the previous record and whether one existed.
func (tx *Txn) Put(inst Instance) (Instance, bool) {
	id := inst.Identity()
	stored := inst.Clone()
	if e, ok := tx.r.records[id]; ok {
		prev := e.inst
		e.inst = stored
		tx.changed = true
		return prev, true
	}
	tx.r.seq++
	tx.r.records[id] = &entry{inst: stored, seq: tx.r.seq}
	tx.changed = true
	return Instance{}, false
}

// Delete removes the record for id. Deleting an unknown identity is a no-op.
func (tx *Txn) Delete(id Identity) (Instance, bool) {
	e, ok := tx.r.records[id]
	if !ok {
		return Instance{}, false
	}
	delete(tx.r.records, id)
	tx.changed = true
	return e.inst, true
}

// Get returns the record for id within the transaction.
func (tx *Txn) Get(id Identity) (Instance, bool) {
	e, ok := tx.r.records[id]
	if !ok {
		return Instance{}, false
	}
	return e.inst, true
}

// Len returns the number of records within the transaction.
func (tx *Txn) Len() int {
	return len(tx.r.records)
}

// Update runs fn with exclusive access and notifies subscribers once if
// anything changed.
func (r *Registry) Update(fn func(tx *Txn)) {
	r.mu.Lock()
	tx := &Txn{r: r}
	fn(tx)
	changed := tx.changed
	r.mu.Unlock()

	if changed {
		r.notify()
	}
}

// ApplyPut upserts inst. It returns the previous record and whether one existed.
func (r *Registry) ApplyPut(inst Instance) (prev Instance, existed bool) {
	r.Update(func(tx *Txn) {
		prev, existed = tx.Put(inst)
	})
	return prev, existed
}

// ApplyDelete removes the record for id if present.
func (r *Registry) ApplyDelete(id Identity) (removed bool) {
	r.Update(func(tx *Txn) {
		_, removed = tx.Delete(id)
	})
	return removed
}

// Replace swaps the whole registry content for instances, in the given order.
// Later duplicates of an identity replace earlier ones.
func (r *Registry) Replace(instances []Instance) {
	r.mu.Lock()
	hadRecords := len(r.records) > 0
	r.records = make(map[Identity]*entry, len(instances))
	tx := &Txn{r: r}
	for _, inst := range instances {
		tx.Put(inst)
	}
	changed := hadRecords || tx.changed
	r.mu.Unlock()

	if changed {
		r.notify()
	}
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id Identity) (Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.records[id]
	if !ok {
		return Instance{}, false
	}
	return e.inst.Clone(), true
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Snapshot returns copies of all records in insertion order.
func (r *Registry) Snapshot() []Instance {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.records))
	for _, e := range r.records {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	out := make([]Instance, len(entries))
	for i, e := range entries {
		out[i] = e.inst.Clone()
	}
	return out
}

// Subscribe returns a channel that receives a signal after registry changes,
// and a function that cancels the subscription.
//
// The channel has capacity 1 and signals coalesce: a slow reader sees one
// pending signal, never a backlog.
func (r *Registry) Subscribe() (<-chan struct{}, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan struct{}, 1)
	r.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.subMu.Lock()
			delete(r.subscribers, id)
			r.subMu.Unlock()
		})
	}
	return ch, cancel
}

func (r *Registry) notify() {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	for _, ch := range r.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
