package value

// Releaser is the capability a Context exposes to the value package for
// refcount maintenance, without value importing flotalk (which depends on
// value) — the minimal cut needed to implement clone/release
// (spec §3.2) without a dependency cycle.
type Releaser interface {
	AddReference(class ClassID, handle DataHandle)
	RemoveReference(class ClassID, handle DataHandle)
}

// CloneInContext returns a value with the same content as v; if v is a
// Reference, this increments the referenced object's refcount (spec §3.2:
// "Cloning a Value in a Context must invoke add_reference on its class").
// Arrays are cloned deep: every element is itself cloned so that releasing
// either copy independently balances correctly.
func CloneInContext(v Value, ctx Releaser) Value {
	switch v.Kind {
	case KindReference:
		ctx.AddReference(v.refVal.Class, v.refVal.Handle)
		return v
	case KindArray:
		cloned := make([]Value, len(v.arrVal))
		for i, item := range v.arrVal {
			cloned[i] = CloneInContext(item, ctx)
		}
		return Array(cloned)
	default:
		return v
	}
}

// ReleaseInContext drops one reference held by v. Releasing an Array
// releases every element (spec §3.2: "transitive release").
func ReleaseInContext(v Value, ctx Releaser) {
	switch v.Kind {
	case KindReference:
		ctx.RemoveReference(v.refVal.Class, v.refVal.Handle)
	case KindArray:
		for _, item := range v.arrVal {
			ReleaseInContext(item, ctx)
		}
	}
}

// CloneSlice clones every value in vs, e.g. when copying a dispatch call's
// argument vector into a new owner.
func CloneSlice(vs []Value, ctx Releaser) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = CloneInContext(v, ctx)
	}
	return out
}

// ReleaseSlice releases every value in vs.
func ReleaseSlice(vs []Value, ctx Releaser) {
	for _, v := range vs {
		ReleaseInContext(v, ctx)
	}
}

// Owned is the scoped ownership wrapper of spec §3.2: it holds a value (or
// a slice of values) together with the releasing Context, and releases on
// scope exit unless the contents are explicitly leaked to a new owner. All
// temporary arguments to a dispatch call are wrapped this way.
type Owned struct {
	ctx      Releaser
	args     []Value
	released bool
}

// NewOwned wraps args for the duration of one dispatch call.
func NewOwned(args []Value, ctx Releaser) *Owned {
	return &Owned{ctx: ctx, args: args}
}

// Args returns the wrapped values without transferring ownership.
func (o *Owned) Args() []Value { return o.args }

// Leak transfers the contained values, unreleased, to code that now owns
// the release obligation (spec §3.2), e.g. re-sending the arguments to
// another dispatch call. After Leak, Close is a no-op.
func (o *Owned) Leak() []Value {
	o.released = true
	return o.args
}

// Close releases the wrapped values if they were not leaked. Safe to call
// more than once.
func (o *Owned) Close() {
	if o.released {
		return
	}
	o.released = true
	ReleaseSlice(o.args, o.ctx)
}
