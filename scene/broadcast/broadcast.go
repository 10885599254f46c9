// Package broadcast implements the reusable subscription/broadcast
// primitive of spec §4.10: a list of (subscriber-id, output-sink) pairs
// that a producer can fan a single message out to concurrently, pruning
// subscribers whose sink has gone away. Concurrency uses
// golang.org/x/sync/errgroup, the teacher's own choice for bounded
// concurrent fan-out (reb/, dsort/ both reach for errgroup over a raw
// sync.WaitGroup when individual tasks can fail).
/*
 * Copyright (c) 2024, Brayan-724, All rights reserved.
 */
package broadcast

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Brayan-724/flo-scene/cmn/cos"
	"github.com/Brayan-724/flo-scene/scene/stream"
)

type subscriber[T any] struct {
	id   string
	sink *stream.Output[T]
}

// Broadcast fans a message of type T out to every subscribed sink (spec
// §4.10). It is safe for concurrent use; Send may run concurrently with
// Subscribe/Unsubscribe, though any given Send call snapshots the
// subscriber list at its start.
type Broadcast[T any] struct {
	mu   sync.Mutex
	subs []subscriber[T]
}

// New returns an empty broadcast list.
func New[T any]() *Broadcast[T] { return &Broadcast[T]{} }

// Subscribe adds sink under id, replacing any existing subscription for
// the same id.
func (b *Broadcast[T]) Subscribe(id string, sink *stream.Output[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs[i].sink = sink
			return
		}
	}
	b.subs = append(b.subs, subscriber[T]{id: id, sink: sink})
}

// Unsubscribe removes id, if present.
func (b *Broadcast[T]) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len reports the current subscriber count.
func (b *Broadcast[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Send delivers msg to every subscriber concurrently (spec §4.10: "clones
// the message per subscriber, awaits all sends concurrently"). Since Go
// passes msg by value, each goroutine already gets its own copy with no
// extra cloning step needed for value types; callers whose T is a pointer
// or contains shared mutable state are responsible for giving Send an
// already-independent copy per call, the same way the spec's clone step
// is the producer's responsibility to get right for its own message type.
//
// Any subscriber whose send errors (most commonly because its sink's
// input stream has been closed) is atomically removed, in descending
// index order so earlier removals don't invalidate later indices (spec
// §4.10, §8.1 "Subscription pruning"). Send returns true iff at least one
// subscriber accepted the message; the returned error, if non-nil, is a
// cos.Errs aggregate of every subscriber's individual send failure, so a
// caller that wants to log or inspect *why* subscribers were pruned has the
// full set rather than just the last one seen.
func (b *Broadcast[T]) Send(ctx context.Context, msg T) (bool, error) {
	b.mu.Lock()
	snapshot := append([]subscriber[T]{}, b.subs...)
	b.mu.Unlock()

	if len(snapshot) == 0 {
		return false, nil
	}

	failed := make([]bool, len(snapshot))
	var errs cos.Errs
	group, gctx := errgroup.WithContext(ctx)
	for i, sub := range snapshot {
		i, sub := i, sub
		group.Go(func() error {
			if err := sub.sink.Send(gctx, msg); err != nil {
				failed[i] = true
				errs.Add(err)
			}
			return nil
		})
	}
	_ = group.Wait() // per-send errors are collected in errs, not short-circuited

	anyAccepted := false
	for i := len(snapshot) - 1; i >= 0; i-- {
		if failed[i] {
			b.removeSink(snapshot[i].id, snapshot[i].sink)
		} else {
			anyAccepted = true
		}
	}
	return anyAccepted, errs.Err()
}

// removeSink removes id only if its current sink is still the one that
// just failed, so a concurrent Subscribe replacing the sink between the
// snapshot and the prune isn't undone.
func (b *Broadcast[T]) removeSink(id string, sink *stream.Output[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id && s.sink == sink {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
