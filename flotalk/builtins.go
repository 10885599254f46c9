package flotalk

import (
	"math"
	"sync"

	"github.com/Brayan-724/flo-scene/cmn/cos"
	"github.com/Brayan-724/flo-scene/sym"
	"github.com/Brayan-724/flo-scene/value"
)

// This file is the minimal "shape of the class machinery" the spec allows
// (§1 Non-goals: "a standard library of scripted classes beyond the shape of
// the class machinery" is explicitly out of scope) — just enough native
// arithmetic, boolean short-circuit, block invocation, and subclassing to
// exercise the class registry, dispatch tables, and reference counting end
// to end (§8.2 scenarios 1-5), with no parser or compiler behind it: callers
// build Continuations and Messages directly, exactly as §1 expects of a
// script that has already been compiled by an external collaborator.

var (
	plusSig     = sym.InternSignature(sym.NewKeyword(sym.Intern("+")))
	floorDivSig = sym.InternSignature(sym.NewKeyword(sym.Intern("//")))
	andSig      = sym.InternSignature(sym.NewKeyword(sym.Intern("and:")))
	subclassSig = sym.InternSignature(sym.NewUnary(sym.Intern("subclass")))
	newSig      = sym.InternSignature(sym.NewUnary(sym.Intern("new")))
)

// NumberTable dispatches the arithmetic messages the native Int/Float Value
// kinds understand directly, without going through the class registry: Int
// and Float are primitive Value kinds, not References, so they have no
// per-Context class state to materialize (spec §4.2's "per receiver-data
// type" dispatch table, here instantiated with TData = value.Value itself
// rather than a Reference or ClassID).
var NumberTable = Empty[value.Value]().
	WithMessage(plusSig, evalPlus).
	WithMessage(floorDivSig, evalFloorDiv)

func evalPlus(recv value.Value, args *value.Owned, _ *Context) Continuation {
	defer args.Close()
	rhs := args.Args()[0]
	if li, err := recv.AsInt(); err == nil && recv.Kind == value.KindInt {
		if ri, err := rhs.AsInt(); err == nil && rhs.Kind == value.KindInt {
			return Ready(value.Int(li + ri))
		}
	}
	lf, err := recv.AsFloat()
	if err != nil {
		return ReadyErr(err)
	}
	rf, err := rhs.AsFloat()
	if err != nil {
		return ReadyErr(err)
	}
	return Ready(value.Float(lf + rf))
}

// evalFloorDiv always answers an Int, the floor of the numeric quotient
// (spec §8.2 scenario 2: `1021.2 // 24.2` yields `Int(42)`).
func evalFloorDiv(recv value.Value, args *value.Owned, _ *Context) Continuation {
	defer args.Close()
	rhs := args.Args()[0]
	lf, err := recv.AsFloat()
	if err != nil {
		return ReadyErr(err)
	}
	rf, err := rhs.AsFloat()
	if err != nil {
		return ReadyErr(err)
	}
	return Ready(value.Int(int64(math.Floor(lf / rf))))
}

// EvalAnd implements Smalltalk's short-circuiting `and:` for a native Bool
// receiver and a block argument: the block is a Value wrapping a Reference
// to a Block instance (see NewBlock), never invoked unless lhs is true
// (spec §8.1 "Continuation Ok short-circuit" and §8.2 scenario 3).
func EvalAnd(lhs value.Value, blockArg value.Value) Continuation {
	b, err := lhs.AsBool()
	if err != nil {
		return ReadyErr(err)
	}
	if !b {
		return Ready(value.Bool(false))
	}
	ref, err := blockArg.AsReference()
	if err != nil {
		return ReadyErr(err)
	}
	return Soon(func(ctx *Context) Continuation {
		return ctx.Send(ref, value.Message{Signature: value.ValueSignature()})
	})
}

// BlockFunc is the native body of a Block instance: it receives the single
// argument passed to `value:` (Nil for a `value` unary send).
type BlockFunc func(ctx *Context, arg value.Value) Continuation

type blockDef struct{}

var (
	blockClassID   value.ClassID
	blockClassOnce sync.Once
)

// BlockClass registers (on first use) the class every value produced by
// NewBlock belongs to.
func BlockClass() value.ClassID {
	blockClassOnce.Do(func() { blockClassID = CreateClass(blockDef{}) })
	return blockClassID
}

func (blockDef) Name() string         { return "Block" }
func (blockDef) NewAllocator() Allocator { return NewSlabAllocator(nil) }

func (blockDef) DefaultInstanceTable() *Table[value.Reference] {
	return Empty[value.Reference]().
		WithMessage(value.ValueSignature(), func(ref value.Reference, args *value.Owned, ctx *Context) Continuation {
			args.Close()
			fn := ctx.GetCallbacksMut(ref.Class).allocator.Retrieve(ref.Handle).(BlockFunc)
			return fn(ctx, value.Nil())
		}).
		WithMessage(value.ValueColonSignature(), func(ref value.Reference, args *value.Owned, ctx *Context) Continuation {
			arg := args.Args()[0]
			args.Leak()
			fn := ctx.GetCallbacksMut(ref.Class).allocator.Retrieve(ref.Handle).(BlockFunc)
			return fn(ctx, arg)
		})
}

func (blockDef) DefaultClassTable() *Table[value.ClassID] { return Empty[value.ClassID]() }

func (blockDef) SendInstanceMessage(sig sym.SignatureID, args *value.Owned, _ value.Reference, _ any, _ *Context) Continuation {
	args.Close()
	return ReadyErr(&cos.ErrMessageNotSupported{SignatureID: int(sig)})
}

func (blockDef) SendClassMessage(sig sym.SignatureID, args *value.Owned, _ value.ClassID, _ Allocator, _ *Context) Continuation {
	args.Close()
	return ReadyErr(&cos.ErrMessageNotSupported{SignatureID: int(sig)})
}

// NewBlock allocates a Block instance wrapping fn in ctx and returns a Value
// reference to it, ready to receive `value`/`value:` (spec §8.2 scenario 4:
// `[:x | ^x] value: 42` yields `Int(42)`).
func NewBlock(ctx *Context, fn BlockFunc) value.Value {
	cs := ctx.GetCallbacksMut(BlockClass())
	handle := cs.allocator.Allocate(fn)
	return value.Ref(value.Reference{Class: BlockClass(), Handle: handle})
}

// scriptClassData is the per-instance data of a ScriptClassClass object: it
// describes one user-defined subclass (spec §8.2 scenario 5), grounded on
// TalkScriptClass/TalkScriptClassClass: a class-id for its instances, and —
// once subclassed — the superclass's class-id and a retained reference to
// the superclass's own script-class object.
type scriptClassData struct {
	classID      value.ClassID
	superclassID *value.ClassID
	superclass   *value.Reference
}

type scriptClassClassDef struct{}

var (
	scriptClassClassID   value.ClassID
	scriptClassClassOnce sync.Once
)

// ScriptClassClass registers (on first use) the "class of classes" used to
// build scriptable subclasses — SCRIPT_CLASS_CLASS in the original.
func ScriptClassClass() value.ClassID {
	scriptClassClassOnce.Do(func() { scriptClassClassID = CreateClass(scriptClassClassDef{}) })
	return scriptClassClassID
}

func (scriptClassClassDef) Name() string { return "ScriptClass" }

func (scriptClassClassDef) NewAllocator() Allocator {
	return NewSlabAllocator(func(ctx *Context, data any) {
		sc := data.(*scriptClassData)
		if sc.superclass != nil {
			ctx.RemoveReference(sc.superclass.Class, sc.superclass.Handle)
		}
	})
}

func (scriptClassClassDef) DefaultInstanceTable() *Table[value.Reference] { return Empty[value.Reference]() }
func (scriptClassClassDef) DefaultClassTable() *Table[value.ClassID]     { return Empty[value.ClassID]() }

// SendClassMessage handles `new`, building a fresh script class object whose
// instances will belong to a freshly minted class-id (the equivalent of
// TalkCellBlockClass: a plain, storage-only class created on demand per
// subclass).
func (scriptClassClassDef) SendClassMessage(sig sym.SignatureID, args *value.Owned, class value.ClassID, alloc Allocator, _ *Context) Continuation {
	args.Close()
	if sig != newSig {
		return ReadyErr(&cos.ErrMessageNotSupported{SignatureID: int(sig)})
	}
	instancesClass := CreateClass(cellBlockClassDef{})
	handle := alloc.Allocate(&scriptClassData{classID: instancesClass})
	return Ready(value.Ref(value.Reference{Class: class, Handle: handle}))
}

// SendInstanceMessage handles `subclass`, sent to an existing script class
// object (e.g. "Object"): it asks that same class object's class (itself
// SCRIPT_CLASS_CLASS) to build a fresh one via `new`, retains the receiver
// as the new class's superclass, and answers the new class object (spec
// §8.2 scenario 5: result's class is SCRIPT_CLASS_CLASS, superclass handle
// is the receiver, receiver's refcount is incremented by one).
func (scriptClassClassDef) SendInstanceMessage(sig sym.SignatureID, args *value.Owned, ref value.Reference, data any, ctx *Context) Continuation {
	sc := data.(*scriptClassData)
	if sig != subclassSig {
		args.Close()
		return ReadyErr(&cos.ErrMessageNotSupported{SignatureID: int(sig)})
	}
	args.Close()
	parent := ref
	superclassID := sc.classID
	return Soon(func(ctx *Context) Continuation {
		ctx.AddReference(parent.Class, parent.Handle)
		return ctx.SendToClass(parent.Class, value.Message{Signature: newSig})
	}).AndThen(func(newRef value.Value) Continuation {
		r, err := newRef.AsReference()
		if err != nil {
			return ReadyErr(err)
		}
		newData := ctx.GetCallbacksMut(r.Class).allocator.Retrieve(r.Handle).(*scriptClassData)
		newData.superclassID = &superclassID
		newData.superclass = &value.Reference{Class: parent.Class, Handle: parent.Handle}
		return Ready(newRef)
	})
}

// cellBlockClassDef is the plain, storage-only class created fresh for each
// subclass's instances (TalkCellBlockClass in the original); this minimal
// shape holds no instance variables since a variable-slot layer belongs to
// the out-of-scope script compiler.
type cellBlockClassDef struct{}

func (cellBlockClassDef) Name() string            { return "ScriptInstance" }
func (cellBlockClassDef) NewAllocator() Allocator { return NewSlabAllocator(nil) }
func (cellBlockClassDef) DefaultInstanceTable() *Table[value.Reference] { return Empty[value.Reference]() }
func (cellBlockClassDef) DefaultClassTable() *Table[value.ClassID]     { return Empty[value.ClassID]() }

func (cellBlockClassDef) SendInstanceMessage(sig sym.SignatureID, args *value.Owned, _ value.Reference, _ any, _ *Context) Continuation {
	args.Close()
	return ReadyErr(&cos.ErrMessageNotSupported{SignatureID: int(sig)})
}

func (cellBlockClassDef) SendClassMessage(sig sym.SignatureID, args *value.Owned, _ value.ClassID, _ Allocator, _ *Context) Continuation {
	args.Close()
	return ReadyErr(&cos.ErrMessageNotSupported{SignatureID: int(sig)})
}

// NewObject builds the root "Object" script class, the receiver scenario 5
// sends `subclass` to: a fresh instance of ScriptClassClass via `new`.
func NewObject(ctx *Context) Continuation {
	return ctx.SendToClass(ScriptClassClass(), value.Message{Signature: newSig})
}
