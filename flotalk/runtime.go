package flotalk

import (
	"sync"

	"github.com/Brayan-724/flo-scene/cmn/cos"
	"github.com/Brayan-724/flo-scene/value"
)

// Waker is the resumption signal a Later step arranges to have triggered
// once further progress is possible (e.g. an awaited input stream received
// an item). It is the Go analogue of a Rust task Waker: a one-shot,
// idempotent wake channel rather than a callback, since Go's Runtime.Run
// loop parks on a channel select rather than being re-polled by an external
// executor.
type Waker struct {
	once sync.Once
	ch   chan struct{}
}

func newWaker() *Waker {
	return &Waker{ch: make(chan struct{})}
}

// Wake signals that the Later step should be polled again. Safe to call
// more than once or from multiple goroutines; only the first call has an
// effect.
func (w *Waker) Wake() {
	w.once.Do(func() { close(w.ch) })
}

func (w *Waker) done() <-chan struct{} { return w.ch }

// Runtime drives Continuations against a single Context, serializing access
// to it the way spec §4.5 describes: "holds a context inside an async
// mutex... multiple run() calls serialize on the context lock." Go's
// sync.Mutex already gives the fast uncontended-lock path the Rust original
// has to build by hand (a try_lock fast path before falling back to an
// owned lock future, see runtime.rs) — a blocking Lock() here costs nothing
// extra because the calling goroutine parking is exactly the scheduling
// point the Rust version simulates with its own future.
type Runtime struct {
	mu      sync.Mutex
	ctx     *Context
	dropped chan struct{}
	once    sync.Once
}

// NewRuntime wraps ctx for driving.
func NewRuntime(ctx *Context) *Runtime {
	return &Runtime{ctx: ctx, dropped: make(chan struct{})}
}

// EmptyRuntime returns a runtime over a freshly constructed, empty Context.
func EmptyRuntime() *Runtime { return NewRuntime(NewContext()) }

// Drop marks the runtime as gone: a Run call waiting on a Later step, and
// every Run call that starts or loops afterwards, returns a zero Value and a
// *cos.ErrRuntimeDropped error (spec §4.5, §5 "Cancellation"). Idempotent.
func (r *Runtime) Drop() {
	r.once.Do(func() { close(r.dropped) })
}

// Run drives continuation to completion, acquiring the context lock for
// every Soon step and for each poll of a Later step, releasing it between
// polls so other Run calls (and other subprograms sharing this context) can
// make progress (spec §4.5, §5 "Suspension points: only Later").
func (r *Runtime) Run(continuation Continuation) (value.Value, error) {
	cont := continuation
	for {
		select {
		case <-r.dropped:
			return value.Value{}, &cos.ErrRuntimeDropped{}
		default:
		}

		r.mu.Lock()
		for cont.kind == contSoon {
			cont = cont.soon(r.ctx)
		}
		if cont.kind == contReady {
			r.mu.Unlock()
			return cont.ready, nil
		}

		waker := newWaker()
		v, ready := cont.later(r.ctx, waker)
		r.mu.Unlock()
		if ready {
			return v, nil
		}

		select {
		case <-waker.done():
			// loop back around and poll cont.later again
		case <-r.dropped:
			return value.Value{}, &cos.ErrRuntimeDropped{}
		}
	}
}

// WithContext runs f with the wrapped Context while holding the runtime's
// lock. Used by callers that need one-off synchronous access outside of a
// Continuation.
func (r *Runtime) WithContext(f func(*Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f(r.ctx)
}
