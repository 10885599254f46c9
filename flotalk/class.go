package flotalk

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/Brayan-724/flo-scene/sym"
	"github.com/Brayan-724/flo-scene/value"
)

// Definition is the global, immutable-after-registration description of a
// FloTalk class (spec §3.3, §4.3): the shared definition plus a factory
// that builds fresh per-Context state. Implementations provide the default
// dispatch tables and the two "not understood" callbacks that receive a
// retrieved instance (or the raw allocator, for class-side messages).
type Definition interface {
	// Name is used only for debug output (error messages, Value.String).
	Name() string
	NewAllocator() Allocator
	DefaultInstanceTable() *Table[value.Reference]
	DefaultClassTable() *Table[value.ClassID]
	// SendInstanceMessage handles a message the default instance table did
	// not bind: data is whatever this class's allocator holds under
	// ref.Handle.
	SendInstanceMessage(sig sym.SignatureID, args *value.Owned, ref value.Reference, data any, ctx *Context) Continuation
	// SendClassMessage handles a message the default class table did not
	// bind, addressed to the class object itself rather than an instance.
	SendClassMessage(sig sym.SignatureID, args *value.Owned, class value.ClassID, alloc Allocator, ctx *Context) Continuation
}

// classState is the per-Context materialization of a class (spec §4.3):
// two dispatch tables and an allocator. read_data is served separately, by
// Context.ReadData and the process-wide converter registry below.
// Context lazily builds exactly one of these per class-id, the first time
// that class is touched in a given Context.
type classState struct {
	instanceTable *Table[value.Reference]
	classTable    *Table[value.ClassID]
	allocator     Allocator
}

// AddReference/RemoveReference on classState delegate to its allocator —
// kept as methods (rather than stored closures, unlike the Rust original)
// because Go already gives us a real interface value to call through
// without needing to type-erase a bound method by hand.
func (cs *classState) AddReference(handle value.DataHandle)                  { cs.allocator.AddReference(handle) }
func (cs *classState) RemoveReference(handle value.DataHandle, ctx *Context) { cs.allocator.RemoveReference(handle, ctx) }

type classRecord struct {
	id  value.ClassID
	def Definition
}

func (r *classRecord) materialize() *classState {
	alloc := r.def.NewAllocator()
	def := r.def
	cid := r.id

	instance := def.DefaultInstanceTable().WithNotSupported(
		func(ref value.Reference, sig sym.SignatureID, args *value.Owned, ctx *Context) Continuation {
			data := alloc.Retrieve(ref.Handle)
			return def.SendInstanceMessage(sig, args, ref, data, ctx)
		},
	)
	class := def.DefaultClassTable().WithNotSupported(
		func(_ value.ClassID, sig sym.SignatureID, args *value.Owned, ctx *Context) Continuation {
			return def.SendClassMessage(sig, args, cid, alloc, ctx)
		},
	)

	return &classState{instanceTable: instance, classTable: class, allocator: alloc}
}

// registry is the process-wide, append-only class table (spec §4.3): class
// ids are assigned sequentially and never reused, and records are never
// freed ("globally-leaked class callbacks record"). recordsSnapshot is
// swapped atomically on registration (a rare event) so that per-Context
// lookups — the hot path, happening on every dispatch — never take a lock,
// matching spec §4.3's "fast-path lookup... callbacks are immortal so
// borrowing is unconditionally safe."
var (
	registryMu      sync.Mutex
	recordsSnapshot atomic.Pointer[[]*classRecord]
)

func loadRecords() []*classRecord {
	p := recordsSnapshot.Load()
	if p == nil {
		return nil
	}
	return *p
}

func storeRecords(recs []*classRecord) {
	recordsSnapshot.Store(&recs)
}

// CreateClass registers def and returns its newly assigned class id. Class
// ids are dense and sequential (spec §3.1) and registration is expected to
// happen at process startup, not in a hot path.
func CreateClass(def Definition) value.ClassID {
	registryMu.Lock()
	defer registryMu.Unlock()

	cur := loadRecords()
	id := value.ClassID(len(cur))
	next := make([]*classRecord, len(cur)+1)
	copy(next, cur)
	next[id] = &classRecord{id: id, def: def}
	storeRecords(next)
	return id
}

// lookupClassRecord returns the registration record for id, or nil if id was
// never registered.
func lookupClassRecord(id value.ClassID) *classRecord {
	cur := loadRecords()
	if int(id) < 0 || int(id) >= len(cur) {
		return nil
	}
	return cur[id]
}

// ClassCount returns how many classes have been registered; exposed for
// tests only.
func ClassCount() int { return len(loadRecords()) }

// DataReaderConverter relates a class definition's Go type and a requested
// target type to a conversion closure (spec §4.3's "data-reader
// converters": "a two-level map (class-definition-type, target-type) ->
// converter-closure installable at any time").
type DataReaderConverter func(alloc Allocator, handle value.DataHandle) (any, bool)

var (
	convMu    sync.RWMutex
	converters = map[reflect.Type]map[reflect.Type]DataReaderConverter{}
)

// RegisterDataReader installs a converter for (defType, targetType). Safe to
// call at any time, including after Contexts already exist, since it only
// affects future ReadData lookups.
func RegisterDataReader(defType, targetType reflect.Type, conv DataReaderConverter) {
	convMu.Lock()
	defer convMu.Unlock()
	byTarget, ok := converters[defType]
	if !ok {
		byTarget = map[reflect.Type]DataReaderConverter{}
		converters[defType] = byTarget
	}
	byTarget[targetType] = conv
}

// ReadData runs the converter registered for (reflect.TypeOf(def),
// targetType), if any, against handle via alloc (spec §4.3 "read_data").
func ReadData(def Definition, targetType reflect.Type, alloc Allocator, handle value.DataHandle) (any, bool) {
	convMu.RLock()
	defer convMu.RUnlock()
	byTarget, ok := converters[reflect.TypeOf(def)]
	if !ok {
		return nil, false
	}
	conv, ok := byTarget[targetType]
	if !ok {
		return nil, false
	}
	return conv(alloc, handle)
}
