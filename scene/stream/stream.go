// Package stream implements the scene's typed input streams and output
// sinks (spec §4.8): a bounded queue with wakers on the input side, and a
// retargetable sink on the output side whose destination is resolved by
// scene/router. Both cores are generic over the carried message type T,
// following the teacher's preference for a concrete generic type over a
// hand-rolled interface{} queue wherever the element type is known at the
// call site (scene/router erases it to `any` only where it must, per spec
// §4.9's "all type erasure uses (type-id, shared-any) pairs").
/*
 * Copyright (c) 2024, Brayan-724. All rights reserved.
 */
package stream

import (
	"context"
	"sync"

	"github.com/Brayan-724/flo-scene/cmn/cos"
)

// Input is the bounded input-stream core of spec §4.8: producers await
// capacity, consumers await items, and Close propagates to both sides.
// Capacity 0 means unbounded (bounded only by memory), matching the
// teacher's own "cap <= 0 means unbounded" convention for buffered
// channels (transport's bundle queue).
type Input[T any] struct {
	mu       sync.Mutex
	cap      int
	buf      []T
	closed   bool
	pushWake []chan struct{} // producers waiting for capacity
	popWake  []chan struct{} // consumers waiting for an item
}

// NewInput constructs an input stream core with the given capacity (<=0
// meaning unbounded).
func NewInput[T any](capacity int) *Input[T] {
	return &Input[T]{cap: capacity}
}

// Push appends value to the stream. It blocks until there is capacity,
// the stream closes, or ctx is cancelled (spec §4.8: "producers await
// capacity"). Pushing to a closed stream returns ErrStreamClosed
// immediately.
func (in *Input[T]) Push(ctx context.Context, value T) error {
	for {
		in.mu.Lock()
		if in.closed {
			in.mu.Unlock()
			return &cos.ErrStreamClosed{}
		}
		if in.cap <= 0 || len(in.buf) < in.cap {
			in.buf = append(in.buf, value)
			wake := popFront(&in.popWake)
			in.mu.Unlock()
			if wake != nil {
				closeOnce(wake)
			}
			return nil
		}
		wait := make(chan struct{})
		in.pushWake = append(in.pushWake, wait)
		in.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TryPush attempts a non-blocking push; it returns (false, nil) if the
// stream is at capacity and the caller should park instead.
func (in *Input[T]) TryPush(value T) (bool, error) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return false, &cos.ErrStreamClosed{}
	}
	if in.cap > 0 && len(in.buf) >= in.cap {
		in.mu.Unlock()
		return false, nil
	}
	in.buf = append(in.buf, value)
	wake := popFront(&in.popWake)
	in.mu.Unlock()
	if wake != nil {
		closeOnce(wake)
	}
	return true, nil
}

// Pop removes and returns the next value, blocking until one is available
// or the stream closes. ok is false once the stream is closed and drained
// (err nil), or when ctx is cancelled first (err is ctx.Err()).
func (in *Input[T]) Pop(ctx context.Context) (value T, ok bool, err error) {
	for {
		in.mu.Lock()
		if len(in.buf) > 0 {
			v := in.buf[0]
			in.buf = in.buf[1:]
			wake := popFront(&in.pushWake)
			in.mu.Unlock()
			if wake != nil {
				closeOnce(wake)
			}
			return v, true, nil
		}
		if in.closed {
			in.mu.Unlock()
			var zero T
			return zero, false, nil
		}
		wait := make(chan struct{})
		in.popWake = append(in.popWake, wait)
		in.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		}
	}
}

// Close marks the stream closed, waking every blocked producer and
// consumer exactly once (spec §4.8: "close() -> waker? to wake any
// blocked consumer once"). Safe to call more than once.
func (in *Input[T]) Close() {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.closed = true
	pushers := in.pushWake
	poppers := in.popWake
	in.pushWake = nil
	in.popWake = nil
	in.mu.Unlock()

	for _, w := range pushers {
		closeOnce(w)
	}
	for _, w := range poppers {
		closeOnce(w)
	}
}

// Closed reports whether Close has been called.
func (in *Input[T]) Closed() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.closed
}

// Len reports the number of buffered, undelivered items.
func (in *Input[T]) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.buf)
}

func popFront(wakers *[]chan struct{}) chan struct{} {
	if len(*wakers) == 0 {
		return nil
	}
	w := (*wakers)[0]
	*wakers = (*wakers)[1:]
	return w
}

func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}
