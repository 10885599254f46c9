// Package flotalk implements the FloTalk object/runtime core: dispatch
// tables, the class registry and allocator contract, the Context that owns
// per-class state and cell blocks, and the Continuation/Runtime pair that
// drives evaluation (spec §4.2-§4.6). These pieces are one Go package
// rather than several because, exactly as in the Rust original, they refer
// to each other directly (a dispatch action returns a Continuation that
// runs against a Context that materializes dispatch tables...) — the same
// shape the teacher uses for a single cohesive package split across many
// files by concern (cmn/cos: err.go, uuid.go, fs.go are one package).
/*
 * Copyright (c) 2024, Brayan-724. All rights reserved.
 */
package flotalk

import (
	"github.com/Brayan-724/flo-scene/value"
)

type contKind int

const (
	contReady contKind = iota
	contSoon
	contLater
)

// SoonFunc needs synchronous mutable access to the Context for a finite,
// non-suspending step (spec §4.5). It must not block.
type SoonFunc func(ctx *Context) Continuation

// LaterFunc may suspend; it is polled under the Context lock and reports
// whether it has produced a final value yet. If not ready, it must arrange
// for waker.Wake to be called once progress is possible, or the
// continuation will never be polled again.
type LaterFunc func(ctx *Context, waker *Waker) (result value.Value, ready bool)

// Continuation is the three-variant suspendable computation of spec §4.5.
type Continuation struct {
	kind  contKind
	ready value.Value
	soon  SoonFunc
	later LaterFunc
}

// Ready wraps a completed evaluation.
func Ready(v value.Value) Continuation { return Continuation{kind: contReady, ready: v} }

// Soon wraps a bounded synchronous step.
func Soon(f SoonFunc) Continuation { return Continuation{kind: contSoon, soon: f} }

// Later wraps a possibly-suspending step.
func Later(f LaterFunc) Continuation { return Continuation{kind: contLater, later: f} }

// ReadyErr is shorthand for a Continuation resolving immediately to an
// error value — every propagated error in FloTalk is a Value::Error, never
// a distinct channel (spec §7).
func ReadyErr(err error) Continuation { return Ready(value.Error(err)) }

// AndThen chains f after this continuation resolves to a value,
// regardless of whether that value is an error (no short-circuiting).
func (c Continuation) AndThen(f func(value.Value) Continuation) Continuation {
	switch c.kind {
	case contReady:
		return f(c.ready)
	case contSoon:
		soon := c.soon
		return Soon(func(ctx *Context) Continuation {
			return soon(ctx).AndThen(f)
		})
	default:
		first := c.later
		// second holds the continuation produced by f once first resolves;
		// it is captured across polls by this closure so that a Later
		// produced by f is polled again on the next wake rather than
		// re-running f from scratch.
		var second *Continuation
		return Later(func(ctx *Context, w *Waker) (value.Value, bool) {
			if second == nil {
				v, ready := first(ctx, w)
				if !ready {
					return value.Value{}, false
				}
				nc := f(v)
				for nc.kind == contSoon {
					nc = nc.soon(ctx)
				}
				if nc.kind == contReady {
					return nc.ready, true
				}
				second = &nc
			}
			return second.later(ctx, w)
		})
	}
}

// AndThenSoon chains a synchronous step after this continuation resolves.
func (c Continuation) AndThenSoon(f SoonFunc) Continuation {
	return c.AndThen(func(v value.Value) Continuation {
		return Soon(func(ctx *Context) Continuation {
			return f(ctx)
		})
	})
}

// AndThenIfOk chains f only if the resolved value is not an error value;
// otherwise it short-circuits, propagating the error untouched (spec §7,
// §8.1: "Ready(Error(e)).and_then_if_ok(f) resolves to Error(e) without
// calling f").
func (c Continuation) AndThenIfOk(f func(value.Value) Continuation) Continuation {
	return c.AndThen(func(v value.Value) Continuation {
		if v.IsError() {
			return Ready(v)
		}
		return f(v)
	})
}

// FutureSoon adapts a function producing a Continuation from inside a
// synchronous context step — the degenerate case where a "future" is
// already resolved to a continuation without needing a suspension point
// (spec §4.5's combinator list). Builtins that do need the Context reach for
// Soon directly instead, as EvalAnd and the subclass builtin do.
func FutureSoon(f func() Continuation) Continuation {
	return Soon(func(*Context) Continuation { return f() })
}

// IsReady reports whether this continuation is already resolved, letting
// callers that only care about the synchronous path skip Runtime entirely.
func (c Continuation) IsReady() (value.Value, bool) {
	if c.kind == contReady {
		return c.ready, true
	}
	return value.Value{}, false
}
