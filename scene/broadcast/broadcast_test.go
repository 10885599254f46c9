package broadcast

import (
	"context"
	"testing"

	"github.com/Brayan-724/flo-scene/scene/stream"
)

func TestSendDeliversToEverySubscriber(t *testing.T) {
	b := New[string]()
	ctx := context.Background()

	a := stream.NewInput[string](1)
	c := stream.NewInput[string](1)
	b.Subscribe("a", outputTo(a))
	b.Subscribe("c", outputTo(c))

	ok, err := b.Send(ctx, "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !ok {
		t.Fatalf("want true, at least one subscriber accepted")
	}

	for name, in := range map[string]*stream.Input[string]{"a": a, "c": c} {
		v, got, _ := in.Pop(ctx)
		if !got || v != "hi" {
			t.Fatalf("subscriber %s did not receive the message", name)
		}
	}
}

func TestSendPrunesClosedSubscriber(t *testing.T) {
	b := New[string]()
	ctx := context.Background()

	dead := stream.NewInput[string](1)
	dead.Close()
	b.Subscribe("dead", outputTo(dead))

	alive := stream.NewInput[string](1)
	b.Subscribe("alive", outputTo(alive))

	ok, err := b.Send(ctx, "hi")
	if err == nil {
		t.Fatalf("want the dead subscriber's send failure reported in err")
	}
	if !ok {
		t.Fatalf("want true: the live subscriber should have accepted")
	}
	if b.Len() != 1 {
		t.Fatalf("want 1 subscriber remaining after pruning, got %d", b.Len())
	}
}

func TestSendReturnsFalseWhenEveryoneFails(t *testing.T) {
	b := New[string]()
	ctx := context.Background()

	dead := stream.NewInput[string](1)
	dead.Close()
	b.Subscribe("dead", outputTo(dead))

	ok, err := b.Send(ctx, "hi")
	if err == nil {
		t.Fatalf("want the dead subscriber's send failure reported in err")
	}
	if ok {
		t.Fatalf("want false: no subscriber should have accepted")
	}
	if b.Len() != 0 {
		t.Fatalf("want 0 subscribers remaining, got %d", b.Len())
	}
}

func outputTo(in *stream.Input[string]) *stream.Output[string] {
	out := stream.NewOutput[string]()
	out.SetTarget(in)
	return out
}
