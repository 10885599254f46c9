/*
 * Copyright (c) 2024, Brayan-724. All rights reserved.
 */
package router

import (
	"context"
	"time"

	"github.com/Brayan-724/flo-scene/scene/ids"
	"github.com/Brayan-724/flo-scene/scene/stream"
)

// IdleRequest names the subprogram that should receive an IdleNotification
// (spec §8.2 scenario 6, grounded on
// original_source/scene/tests/idle_program_tests.rs'
// `IdleRequest::WhenIdle(target)`). No code in this package consumes an
// IdleRequest value: the request is made by calling NotifyWhenIdle with the
// target directly.
type IdleRequest struct {
	Target ids.SubProgramID
}

// IdleNotification is the reply delivered to an IdleRequest's target (spec
// §8.2 scenario 6).
type IdleNotification struct{}

// idlePollInterval is how often NotifyWhenIdle rechecks subprogram queues.
// The Rust original drives this off its executor's own idle detection; Go
// has no equivalent hook into the goroutine scheduler, so this package polls
// instead, following the same poll-the-context shape flotalk.Runtime.Run
// already uses for Later steps.
const idlePollInterval = time.Millisecond

// isIdle reports whether every currently registered subprogram has an empty,
// undelivered input queue. A subprogram that has already dropped its input
// (closed it without reading anything, as in
// "notifies_if_subprogram_drops_input_stream") counts as idle too: the
// router has nothing left to pump into it.
func (r *Router) isIdle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.subprograms {
		if rec.lenFunc() > 0 {
			return false
		}
	}
	return true
}

// NotifyWhenIdle implements IdleRequest::WhenIdle (spec §8.2 scenario 6): it
// polls until every registered subprogram's input queue is empty, then
// delivers exactly one IdleNotification to target. target must already be
// registered with AddSubprogram[IdleNotification]; NotifyWhenIdle silently
// gives up (logging nothing, matching a dropped message per spec §5) if
// target is gone by the time the scene goes idle.
func (r *Router) NotifyWhenIdle(ctx context.Context, target ids.SubProgramID) {
	go func() {
		ticker := time.NewTicker(idlePollInterval)
		defer ticker.Stop()

		for {
			if r.isIdle() {
				break
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			case <-r.ctx.Done():
				return
			}
		}

		inAny, ok := r.inputFor(target)
		if !ok {
			return
		}
		in, ok := inAny.(*stream.Input[IdleNotification])
		if !ok {
			return
		}
		_ = in.Push(ctx, IdleNotification{})
	}()
}
