package flotalk

import (
	"github.com/Brayan-724/flo-scene/cmn/cos"
	"github.com/Brayan-724/flo-scene/cmn/flog"
	"github.com/Brayan-724/flo-scene/sym"
	"github.com/Brayan-724/flo-scene/value"
)

// Action is what a dispatch table runs for a bound signature: given the
// receiver data, the owned argument vector, and the Context, produce a
// Continuation (spec §4.2).
type Action[TData any] func(data TData, args *value.Owned, ctx *Context) Continuation

// NotSupportedAction is the fallback bound when no Action matches a
// signature; it additionally receives the signature id so it can report
// which message was rejected.
type NotSupportedAction[TData any] func(data TData, sig sym.SignatureID, args *value.Owned, ctx *Context) Continuation

// Table is the sparse signature-id -> Action map of spec §4.2. It is built
// immutably: every builder method returns a new table (a copy with its own
// action map; the actions themselves are shared), matching
// the Rust original's "pure, returning a new table" builder contract.
type Table[TData any] struct {
	actions      map[sym.SignatureID]Action[TData]
	notSupported NotSupportedAction[TData]
}

// Empty returns a dispatch table whose default not-supported fallback
// resolves to Error(MessageNotSupported(sig)) (spec §4.2).
func Empty[TData any]() *Table[TData] {
	return &Table[TData]{
		actions: make(map[sym.SignatureID]Action[TData]),
		notSupported: func(_ TData, sig sym.SignatureID, args *value.Owned, _ *Context) Continuation {
			args.Close()
			sig2 := sig // capture for the error struct's readability
			sigName, _ := sym.LookupSignature(sig2)
			flog.Warningf("flotalk: message not supported: sig=%d (%s)", sig2, sigName)
			return ReadyErr(&cos.ErrMessageNotSupported{SignatureID: int(sig2)})
		},
	}
}

func (t *Table[TData]) clone() *Table[TData] {
	cp := &Table[TData]{
		actions:      make(map[sym.SignatureID]Action[TData], len(t.actions)+1),
		notSupported: t.notSupported,
	}
	for k, v := range t.actions {
		cp.actions[k] = v
	}
	return cp
}

// WithMessage returns a new table with action bound to sig.
func (t *Table[TData]) WithMessage(sig sym.SignatureID, action Action[TData]) *Table[TData] {
	cp := t.clone()
	cp.actions[sig] = action
	return cp
}

// WithNotSupported returns a new table with its not-supported fallback
// replaced.
func (t *Table[TData]) WithNotSupported(action NotSupportedAction[TData]) *Table[TData] {
	cp := t.clone()
	cp.notSupported = action
	return cp
}

// WithMessagesFrom returns a new table with every binding in src added
// (overwriting any existing binding for the same signature).
func (t *Table[TData]) WithMessagesFrom(src *Table[TData]) *Table[TData] {
	cp := t.clone()
	for k, v := range src.actions {
		cp.actions[k] = v
	}
	return cp
}

// DefineMessage mutates t in place, binding sig to action. Used only while
// building a table that has not yet been published (e.g. inside a class
// Definition's constructor); once shared across contexts, prefer
// WithMessage so concurrent readers never observe a half-built table.
func (t *Table[TData]) DefineMessage(sig sym.SignatureID, action Action[TData]) {
	t.actions[sig] = action
}

// RespondsTo reports whether sig has a bound action.
func (t *Table[TData]) RespondsTo(sig sym.SignatureID) bool {
	_, ok := t.actions[sig]
	return ok
}

// Send dispatches message to target, invoking the not-supported fallback
// if no action is bound for its signature (spec §4.2: "send additionally
// invokes the fallback").
func (t *Table[TData]) Send(target TData, msg value.Message, ctx *Context) Continuation {
	owned := value.NewOwned(msg.Arguments, ctx)
	if action, ok := t.actions[msg.Signature]; ok {
		return action(target, owned, ctx)
	}
	return t.notSupported(target, msg.Signature, owned, ctx)
}

// TrySend dispatches message to target only if an action is bound, without
// invoking the fallback; it returns false if nothing was dispatched, in
// which case the caller retains ownership of msg.Arguments.
func (t *Table[TData]) TrySend(target TData, msg value.Message, ctx *Context) (Continuation, bool) {
	action, ok := t.actions[msg.Signature]
	if !ok {
		return Continuation{}, false
	}
	owned := value.NewOwned(msg.Arguments, ctx)
	return action(target, owned, ctx), true
}

// ImportMapped returns a new table built by wrapping every action bound in
// src so that it can be invoked through a TData receiver, converting via
// mapFn first — used to re-expose a table built for one receiver shape (for
// instance, a bare value.Reference) as a table for a wrapping receiver type
// (spec §4.2: "bulk-import from another table with a data-type mapping
// (used to wrap e.g. a reference as a value)"). This is a free function,
// not a method, because Go methods cannot introduce additional type
// parameters beyond the receiver's.
func ImportMapped[TData, TSource any](dst *Table[TData], src *Table[TSource], mapFn func(TData) TSource) *Table[TData] {
	cp := dst.clone()
	for sig, action := range src.actions {
		action := action
		cp.actions[sig] = func(data TData, args *value.Owned, ctx *Context) Continuation {
			return action(mapFn(data), args, ctx)
		}
	}
	return cp
}
