package flotalk

import (
	"fmt"

	"github.com/Brayan-724/flo-scene/value"
)

// CellBlockHandle identifies a refcounted frame of Values allocated for a
// block's captured (non-local) variables (spec §4.6: "a cell-block table:
// refcounted frames of Value, allocated in blocks of N cells, addressed by a
// handle distinct from a class's data handles").
type CellBlockHandle uint64

type cellBlockSlot struct {
	cells    []value.Value
	refcount int32
	free     bool
}

// cellBlockTable is a dense slab-with-freelist allocator for cell blocks,
// the same storage shape SlabAllocator uses for class instance data (spec
// §4.4), kept as a separate table since cell blocks are addressed by their
// own handle space and are always released transitively as a whole frame
// rather than read back through a class's Definition.
type cellBlockTable struct {
	slots    []cellBlockSlot
	freelist []CellBlockHandle
}

func newCellBlockTable() *cellBlockTable {
	return &cellBlockTable{}
}

// AllocateCellBlock reserves a frame of n cells, all initialized to Nil, and
// returns its handle with refcount 1.
func (c *Context) AllocateCellBlock(n int) CellBlockHandle {
	cells := make([]value.Value, n)
	if freeN := len(c.cellBlocks.freelist); freeN > 0 {
		h := c.cellBlocks.freelist[freeN-1]
		c.cellBlocks.freelist = c.cellBlocks.freelist[:freeN-1]
		c.cellBlocks.slots[h] = cellBlockSlot{cells: cells, refcount: 1}
		return h
	}
	c.cellBlocks.slots = append(c.cellBlocks.slots, cellBlockSlot{cells: cells, refcount: 1})
	return CellBlockHandle(len(c.cellBlocks.slots) - 1)
}

func (c *Context) cellSlot(h CellBlockHandle) *cellBlockSlot {
	return &c.cellBlocks.slots[int(h)]
}

// CellBlock returns the live cell slice for handle, for direct read/write by
// the evaluator (e.g. a block's captured-variable access). Panics if handle
// has already been released to zero, the same released-handle-is-a-bug
// contract SlabAllocator.Retrieve uses.
func (c *Context) CellBlock(h CellBlockHandle) []value.Value {
	slot := c.cellSlot(h)
	if slot.free {
		panic(fmt.Sprintf("flotalk: CellBlock on freed handle %d", h))
	}
	return slot.cells
}

// RetainCellBlock increments handle's refcount, e.g. when a block value
// holding it is cloned.
func (c *Context) RetainCellBlock(h CellBlockHandle) {
	slot := c.cellSlot(h)
	if slot.free {
		panic(fmt.Sprintf("flotalk: RetainCellBlock on freed handle %d", h))
	}
	slot.refcount++
}

// ReleaseCellBlock decrements handle's refcount, and on reaching zero
// transitively releases every Value the frame holds (spec §3.2) before
// returning the slot to the freelist.
func (c *Context) ReleaseCellBlock(h CellBlockHandle) {
	slot := c.cellSlot(h)
	if slot.free {
		panic(fmt.Sprintf("flotalk: ReleaseCellBlock on freed handle %d", h))
	}
	slot.refcount--
	if slot.refcount > 0 {
		return
	}
	cells := slot.cells
	*slot = cellBlockSlot{free: true}
	c.cellBlocks.freelist = append(c.cellBlocks.freelist, h)
	value.ReleaseSlice(cells, c)
}
