package stream

import (
	"context"
	"testing"
	"time"
)

func TestInputFIFO(t *testing.T) {
	in := NewInput[int](0)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := in.Push(ctx, i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		v, ok, err := in.Pop(ctx)
		if err != nil || !ok {
			t.Fatalf("pop %d: ok=%v err=%v", i, ok, err)
		}
		if v != i {
			t.Fatalf("want %d, got %d", i, v)
		}
	}
}

func TestInputBackpressure(t *testing.T) {
	in := NewInput[int](1)
	ctx := context.Background()
	if err := in.Push(ctx, 1); err != nil {
		t.Fatalf("first push: %v", err)
	}

	ok, err := in.TryPush(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("TryPush should have reported no capacity")
	}

	done := make(chan struct{})
	go func() {
		if err := in.Push(ctx, 2); err != nil {
			t.Errorf("blocked push: %v", err)
		}
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatalf("blocked push returned before capacity freed")
	default:
	}

	v, ok, err := in.Pop(ctx)
	if err != nil || !ok || v != 1 {
		t.Fatalf("pop: v=%v ok=%v err=%v", v, ok, err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("blocked push never completed after capacity freed")
	}
}

func TestInputCloseWakesBlockedConsumer(t *testing.T) {
	in := NewInput[int](0)
	ctx := context.Background()

	result := make(chan bool, 1)
	go func() {
		_, ok, _ := in.Pop(ctx)
		result <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	in.Close()

	select {
	case ok := <-result:
		if ok {
			t.Fatalf("expected ok=false after close")
		}
	case <-time.After(time.Second):
		t.Fatalf("blocked consumer was never woken by Close")
	}
}

func TestOutputDisconnectedParksThenRetargets(t *testing.T) {
	sink := NewOutput[string]()
	target := NewInput[string](1)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- sink.Send(ctx, "hello")
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatalf("send on disconnected sink returned before retarget")
	default:
	}

	sink.SetTarget(target)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("send after retarget: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("send never unblocked after retarget")
	}

	v, ok, err := target.Pop(ctx)
	if err != nil || !ok || v != "hello" {
		t.Fatalf("target did not receive the message: v=%v ok=%v err=%v", v, ok, err)
	}
}

func TestOutputDiscardAcceptsAndDrops(t *testing.T) {
	sink := Discard[int]()
	if err := sink.Send(context.Background(), 42); err != nil {
		t.Fatalf("discard send: %v", err)
	}
}

func TestOutputTargetClosedFailsFast(t *testing.T) {
	sink := NewOutput[int]()
	target := NewInput[int](1)
	sink.SetTarget(target)
	target.Close()

	err := sink.Send(context.Background(), 1)
	if err == nil {
		t.Fatalf("expected send on a closed target to fail, got nil")
	}
	if sink.IsConnected() {
		t.Fatalf("sink should no longer report connected")
	}
}

func TestOutputCloseWhenDroppedClosesTargetOnDisconnect(t *testing.T) {
	sink := NewOutput[int]()
	target := NewInput[int](1)
	sink.SetTargetCloseWhenDropped(target)
	sink.Disconnect()

	if !target.Closed() {
		t.Fatalf("CloseWhenDropped target should be closed on Disconnect")
	}
}
