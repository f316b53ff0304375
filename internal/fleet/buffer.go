package fleet

import (
	"sort"
	"sync"
)

// OpKind is the kind of a buffered registry mutation.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// Op is one pending registry mutation held by the Buffer.
type Op struct {
	Kind     OpKind
	Key      Identity
	Instance Instance

	// Recreate marks a put that followed a pending delete. Replay removes
	// the existing record first so it comes back as a fresh insertion.
	Recreate bool
}

// Sink receives mutations from the Buffer: directly while live, as one
// Replay batch on resume.
type Sink interface {
	ApplyPut(inst Instance)
	ApplyDelete(id Identity)
	Replay(ops []Op)
}

// Buffer intercepts registry mutations while the operator has paused live
// updates, coalescing them per identity, and replays them on resume.
//
// Replaying the coalesced operations yields the same registry content and
// order as applying the original sequence directly.
type Buffer struct {
	mu      sync.Mutex
	sink    Sink
	paused  bool
	pending map[Identity]*pendingOp
	seq     uint64
}

type pendingOp struct {
	op  Op
	seq uint64
}

// NewBuffer creates a live (unpaused) buffer forwarding to sink.
func NewBuffer(sink Sink) *Buffer {
	return &Buffer{
		sink:    sink,
		pending: make(map[Identity]*pendingOp),
	}
}

// ApplyPut forwards inst to the sink, or records it while paused.
// A pending put is overwritten; a put after a pending delete recreates.
func (b *Buffer) ApplyPut(inst Instance) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.paused {
		b.sink.ApplyPut(inst)
		return
	}

	id := inst.Identity()
	p, ok := b.pending[id]
	switch {
	case !ok:
		b.seq++
		b.pending[id] = &pendingOp{op: Op{Kind: OpPut, Key: id, Instance: inst}, seq: b.seq}
	case p.op.Kind == OpDelete:
		b.seq++
		p.op = Op{Kind: OpPut, Key: id, Instance: inst, Recreate: true}
		p.seq = b.seq
	default:
		p.op.Instance = inst
	}
}

// ApplyDelete forwards the delete to the sink, or records it while paused,
// discarding any pending put for the identity.
func (b *Buffer) ApplyDelete(id Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.paused {
		b.sink.ApplyDelete(id)
		return
	}

	if p, ok := b.pending[id]; ok {
		p.op = Op{Kind: OpDelete, Key: id}
		return
	}
	b.seq++
	b.pending[id] = &pendingOp{op: Op{Kind: OpDelete, Key: id}, seq: b.seq}
}

// SetPaused switches buffering on or off. Turning it off replays every
// pending operation to the sink in one batch and clears the buffer.
func (b *Buffer) SetPaused(paused bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if paused == b.paused {
		return
	}
	b.paused = paused
	if paused {
		return
	}

	ops := b.drainLocked()
	if len(ops) > 0 {
		b.sink.Replay(ops)
	}
}

// Paused reports whether updates are being buffered.
func (b *Buffer) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

// Pending returns the number of distinct identities with a pending mutation.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// PendingOps returns the coalesced operations in replay order without
// clearing them.
func (b *Buffer) PendingOps() []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orderedLocked()
}

func (b *Buffer) drainLocked() []Op {
	ops := b.orderedLocked()
	b.pending = make(map[Identity]*pendingOp)
	b.seq = 0
	return ops
}

func (b *Buffer) orderedLocked() []Op {
	list := make([]*pendingOp, 0, len(b.pending))
	for _, p := range b.pending {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].seq < list[j].seq
	})

	ops := make([]Op, len(list))
	for i, p := range list {
		ops[i] = p.op
	}
	return ops
}
