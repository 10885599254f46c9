package flotalk

import (
	"fmt"

	"github.com/Brayan-724/flo-scene/cmn/debug"
	"github.com/Brayan-724/flo-scene/cmn/flog"
	"github.com/Brayan-724/flo-scene/value"
)

// Allocator is the per-class storage contract of spec §4.4: every class
// owns all of its instances' storage behind this interface, type-erased to
// `any` data so a Context's per-class-id vector can hold allocators of
// unrelated shapes uniformly (mirroring the class callbacks' own type
// erasure, spec §4.3).
type Allocator interface {
	// Allocate stores data and returns a fresh handle with refcount 1.
	Allocate(data any) value.DataHandle
	// Retrieve returns the stored data for handle. It panics if handle has
	// been released to zero and freed — spec §4.4 and §7 single out this
	// case as the one programmer error that panics rather than degrading
	// to a typed error, since a released handle reaching Retrieve means the
	// reference-counting invariant was already broken by the caller.
	Retrieve(handle value.DataHandle) any
	AddReference(handle value.DataHandle)
	// RemoveReference decrements handle's refcount; on reaching zero it
	// drops the stored data, releasing any references it transitively
	// holds via ctx (spec §4.4).
	RemoveReference(handle value.DataHandle, ctx *Context)
}

type slabSlot struct {
	data     any
	refcount int32
	free     bool
}

// SlabAllocator is the default Allocator: a densely packed slab with a
// free-list, as spec §4.4 expects ("implementations are expected to use a
// densely packed slab with a free-list"). The data handle is the slot
// index.
type SlabAllocator struct {
	slots    []slabSlot
	freelist []value.DataHandle
	// release is called once a slot's refcount reaches zero, so the
	// allocator's owner can release any Values the data transitively holds
	// — the allocator itself only knows about storage and refcounts, not
	// what a class's data contains.
	release func(ctx *Context, data any)
}

// NewSlabAllocator constructs an empty slab allocator. release, if non-nil,
// is invoked with the Context and the freed data once a handle's refcount
// reaches zero, so the caller can release any references the data holds
// (spec §3.2 "transitive release").
func NewSlabAllocator(release func(ctx *Context, data any)) *SlabAllocator {
	return &SlabAllocator{release: release}
}

func (a *SlabAllocator) Allocate(data any) value.DataHandle {
	if n := len(a.freelist); n > 0 {
		h := a.freelist[n-1]
		a.freelist = a.freelist[:n-1]
		a.slots[h] = slabSlot{data: data, refcount: 1}
		return h
	}
	a.slots = append(a.slots, slabSlot{data: data, refcount: 1})
	return value.DataHandle(len(a.slots) - 1)
}

// panicOnFreed logs before panicking on a released-handle access — these
// panics document a programmer error in the caller (spec §4.4, §7), not a
// recoverable runtime condition, but the log line survives in cases where a
// recover() further up swallows the panic before anyone reads its message.
func panicOnFreed(op string, handle value.DataHandle) {
	flog.Errorf("flotalk: %s on freed handle %d", op, handle)
	panic(fmt.Sprintf("flotalk: %s on freed handle %d", op, handle))
}

func (a *SlabAllocator) Retrieve(handle value.DataHandle) any {
	slot := a.slot(handle)
	if slot.free {
		panicOnFreed("Retrieve", handle)
	}
	return slot.data
}

func (a *SlabAllocator) AddReference(handle value.DataHandle) {
	slot := a.slotPtr(handle)
	if slot.free {
		panicOnFreed("AddReference", handle)
	}
	slot.refcount++
}

func (a *SlabAllocator) RemoveReference(handle value.DataHandle, ctx *Context) {
	slot := a.slotPtr(handle)
	if slot.free {
		panicOnFreed("RemoveReference", handle)
	}
	slot.refcount--
	debug.Assertf(slot.refcount >= 0, "flotalk: refcount underflow on handle %d", handle)
	if slot.refcount > 0 {
		return
	}
	data := slot.data
	*slot = slabSlot{free: true}
	a.freelist = append(a.freelist, handle)
	if a.release != nil {
		a.release(ctx, data)
	}
}

func (a *SlabAllocator) slot(h value.DataHandle) slabSlot {
	debug.Assertf(int(h) >= 0 && int(h) < len(a.slots), "flotalk: handle %d out of range", h)
	return a.slots[int(h)]
}
func (a *SlabAllocator) slotPtr(h value.DataHandle) *slabSlot {
	debug.Assertf(int(h) >= 0 && int(h) < len(a.slots), "flotalk: handle %d out of range", h)
	return &a.slots[int(h)]
}

// Refcount returns the current refcount of handle, for tests asserting the
// balance invariant of spec §8.1; not part of the production Allocator
// interface.
func (a *SlabAllocator) Refcount(h value.DataHandle) int32 {
	return a.slot(h).refcount
}
