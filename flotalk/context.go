package flotalk

import (
	"reflect"

	"github.com/Brayan-724/flo-scene/value"
)

// Context owns every per-class state and the cell-block table for one
// FloTalk runtime (spec §4.6). It is not itself safe for concurrent use —
// Runtime is what serializes access to it.
type Context struct {
	classes []*classState // indexed by ClassID; nil until first touched

	cellBlocks *cellBlockTable

	// root is the root symbol environment used by the evaluator: a flat
	// binding table from interned symbol to Value, following spec §4.6
	// ("the root symbol environment used by the evaluator").
	root map[int]value.Value
}

// NewContext returns an empty Context with no materialized class state.
func NewContext() *Context {
	return &Context{
		cellBlocks: newCellBlockTable(),
		root:       make(map[int]value.Value),
	}
}

// GetCallbacks returns the materialized per-class state for class, or
// (nil, false) if it has not been touched in this Context yet (spec §4.6:
// "get_callbacks(class-id) (immutable; returns None if not materialized)").
func (c *Context) GetCallbacks(class value.ClassID) (*classState, bool) {
	if int(class) < 0 || int(class) >= len(c.classes) {
		return nil, false
	}
	cs := c.classes[class]
	return cs, cs != nil
}

// GetCallbacksMut returns the materialized per-class state for class,
// lazily building it from the global registry on first use (spec §4.6).
// Panics if class was never registered via CreateClass — that is a
// programmer error (a stale or corrupt ClassID), not a recoverable one.
func (c *Context) GetCallbacksMut(class value.ClassID) *classState {
	if int(class) < len(c.classes) && c.classes[class] != nil {
		return c.classes[class]
	}
	record := lookupClassRecord(class)
	if record == nil {
		panic("flotalk: GetCallbacksMut on unregistered class id")
	}
	if int(class) >= len(c.classes) {
		grown := make([]*classState, class+1)
		copy(grown, c.classes)
		c.classes = grown
	}
	cs := record.materialize()
	c.classes[class] = cs
	return cs
}

// AddReference implements value.Releaser by delegating to the referenced
// class's per-context allocator, materializing it if this is the first
// reference of that class seen in this Context.
func (c *Context) AddReference(class value.ClassID, handle value.DataHandle) {
	c.GetCallbacksMut(class).AddReference(handle)
}

// RemoveReference implements value.Releaser the same way.
func (c *Context) RemoveReference(class value.ClassID, handle value.DataHandle) {
	c.GetCallbacksMut(class).RemoveReference(handle, c)
}

// Send dispatches msg to ref's class's instance table.
func (c *Context) Send(ref value.Reference, msg value.Message) Continuation {
	cs := c.GetCallbacksMut(ref.Class)
	return cs.instanceTable.Send(ref, msg, c)
}

// SendToClass dispatches msg to class's class-object table.
func (c *Context) SendToClass(class value.ClassID, msg value.Message) Continuation {
	cs := c.GetCallbacksMut(class)
	return cs.classTable.Send(class, msg, c)
}

// ReadData converts the instance at ref to targetType via the converter
// registered for (its class's Definition type, targetType) (spec §4.3
// read_data), returning (nil, false) if none is registered. It does not
// check whether the instance is still live; the converter is run on the
// handle as given.
func (c *Context) ReadData(ref value.Reference, targetType reflect.Type) (any, bool) {
	record := lookupClassRecord(ref.Class)
	if record == nil {
		return nil, false
	}
	cs := c.GetCallbacksMut(ref.Class)
	return ReadData(record.def, targetType, cs.allocator, ref.Handle)
}

// SetRoot and Root manipulate the root symbol environment.
func (c *Context) SetRoot(name int, v value.Value) { c.root[name] = v }
func (c *Context) Root(name int) (value.Value, bool) {
	v, ok := c.root[name]
	return v, ok
}
