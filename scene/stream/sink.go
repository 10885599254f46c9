package stream

import (
	"context"
	"sync"

	"github.com/Brayan-724/flo-scene/cmn/cos"
)

// targetKind tags which alternative of an Output's target enum is active
// (spec §4.8: "Disconnected, Input(weak), CloseWhenDropped(weak), Discard").
// targetDead is a Go-specific refinement of Disconnected, distinguishing
// "no rule resolved yet, a retarget may still arrive" (park and retry,
// spec's literal Disconnected behavior) from "the target we were pointed
// at has been observed closed" (fail fast) — see the Send doc comment for
// why the two need different wait behavior.
type targetKind int

const (
	targetDisconnected targetKind = iota
	targetDead
	targetInput
	targetCloseWhenDropped
	targetDiscard
)

// Output is the output-sink core of spec §4.8. Go has no weak pointers the
// Rust original relies on to detect a dropped target without keeping it
// alive; since Go's GC already keeps a live *Input reachable for as long as
// anything (including this sink) holds it, the "upgrade fails" case is
// instead driven explicitly by checking Input.Closed() at send time, which
// is the idiomatic Go analogue of a failed weak-reference upgrade.
type Output[T any] struct {
	mu      sync.Mutex
	kind    targetKind
	target  *Input[T]
	waiters []chan struct{} // parked senders waiting for a retarget
}

// NewOutput returns a disconnected output sink: Send parks until the first
// SetTarget/SetTargetCloseWhenDropped/SetDiscard call, matching a sink
// opened before the router has resolved a rule for it yet.
func NewOutput[T any]() *Output[T] {
	return &Output[T]{kind: targetDisconnected}
}

// Discard returns a sink that silently accepts and drops every send.
func Discard[T any]() *Output[T] {
	return &Output[T]{kind: targetDiscard}
}

// retarget is the shared implementation of SetTarget / SetTargetCloseWhenDropped
// / Disconnect: swap the target under lock and wake every parked sender so
// it re-resolves against the new target (spec §4.9 "Connection retargeting"
// invariant: unblock and land in the new target, exactly once).
func (o *Output[T]) retarget(kind targetKind, target *Input[T]) {
	o.mu.Lock()
	o.kind = kind
	o.target = target
	waiters := o.waiters
	o.waiters = nil
	o.mu.Unlock()
	for _, w := range waiters {
		closeOnce(w)
	}
}

// SetTarget points the sink at target, forwarding future sends via its
// push (spec §4.8 "Input(weak)").
func (o *Output[T]) SetTarget(target *Input[T]) { o.retarget(targetInput, target) }

// SetTargetCloseWhenDropped points the sink at target and arranges that
// dropping this sink (via Disconnect, the closest Go analogue to a Rust
// struct drop) closes target's input (spec §4.8 "CloseWhenDropped(weak)").
func (o *Output[T]) SetTargetCloseWhenDropped(target *Input[T]) {
	o.retarget(targetCloseWhenDropped, target)
}

// Disconnect detaches the sink from any target, parking future sends until
// the next retarget — the router uses this when a connection rule is
// removed but a new one may still arrive (spec §4.9); if the prior target
// was CloseWhenDropped, its input is closed first (this is the sink's
// "drop" moment).
func (o *Output[T]) Disconnect() {
	o.mu.Lock()
	prevKind := o.kind
	prevTarget := o.target
	o.mu.Unlock()
	if prevKind == targetCloseWhenDropped && prevTarget != nil {
		prevTarget.Close()
	}
	o.retarget(targetDisconnected, nil)
}

// SetDiscard makes the sink accept and drop every future send.
func (o *Output[T]) SetDiscard() { o.retarget(targetDiscard, nil) }

// Send delivers value to the sink's current target, per spec §4.8:
//   - Disconnected: park until a retarget arrives, then retry (a rule may
//     still be resolved for this sink).
//   - Discard: accept and drop.
//   - Input/CloseWhenDropped: forward via the target's Push.
//   - A target discovered closed transitions to a terminal "dead" state
//     and fails immediately with TargetProgramEndedBeforeReady, rather
//     than parking like a bare Disconnected sink: a closed target is not
//     coming back the way an unresolved rule might (spec §4.8's "cannot be
//     re-resolved" case), and broadcast's subscriber-pruning invariant
//     (§8.1) depends on a dead subscriber's send failing promptly instead
//     of hanging until the caller's context happens to expire.
func (o *Output[T]) Send(ctx context.Context, value T) error {
	for {
		o.mu.Lock()
		kind := o.kind
		target := o.target
		o.mu.Unlock()

		switch kind {
		case targetDiscard:
			return nil

		case targetDead:
			return &cos.ErrTargetProgramEndedBeforeReady{Target: "dead"}

		case targetInput, targetCloseWhenDropped:
			if target.Closed() {
				o.retarget(targetDead, nil)
				continue
			}
			err := target.Push(ctx, value)
			if _, isClosed := err.(*cos.ErrStreamClosed); isClosed {
				o.retarget(targetDead, nil)
				continue
			}
			return err

		default: // targetDisconnected
			wait := make(chan struct{})
			o.mu.Lock()
			// Re-check under lock: a retarget may have landed between the
			// switch's snapshot and acquiring the lock here.
			if o.kind != targetDisconnected {
				o.mu.Unlock()
				continue
			}
			o.waiters = append(o.waiters, wait)
			o.mu.Unlock()

			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// IsConnected reports whether the sink currently has a live, non-discard
// target.
func (o *Output[T]) IsConnected() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.kind == targetInput || o.kind == targetCloseWhenDropped
}
