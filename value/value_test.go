package value_test

import (
	"testing"

	"github.com/Brayan-724/flo-scene/value"
)

type fakeCtx struct {
	refcounts map[value.Reference]int
}

func newFakeCtx() *fakeCtx { return &fakeCtx{refcounts: make(map[value.Reference]int)} }

func (f *fakeCtx) AddReference(class value.ClassID, handle value.DataHandle) {
	f.refcounts[value.Reference{Class: class, Handle: handle}]++
}
func (f *fakeCtx) RemoveReference(class value.ClassID, handle value.DataHandle) {
	f.refcounts[value.Reference{Class: class, Handle: handle}]--
}

func TestCloneReleaseRoundTrip(t *testing.T) {
	ctx := newFakeCtx()
	ref := value.Reference{Class: 1, Handle: 42}
	v := value.Ref(ref)

	ctx.refcounts[ref] = 1 // as if freshly allocated

	cloned := value.CloneInContext(v, ctx)
	if ctx.refcounts[ref] != 2 {
		t.Fatalf("expected refcount 2 after clone, got %d", ctx.refcounts[ref])
	}

	value.ReleaseInContext(cloned, ctx)
	if ctx.refcounts[ref] != 1 {
		t.Fatalf("expected refcount back to 1 after release, got %d", ctx.refcounts[ref])
	}
}

func TestTransitiveReleaseOverArray(t *testing.T) {
	ctx := newFakeCtx()
	r1 := value.Reference{Class: 1, Handle: 1}
	r2 := value.Reference{Class: 1, Handle: 2}
	ctx.refcounts[r1] = 1
	ctx.refcounts[r2] = 1

	arr := value.Array([]value.Value{value.Ref(r1), value.Ref(r2), value.Int(7)})
	value.ReleaseInContext(arr, ctx)

	if ctx.refcounts[r1] != 0 || ctx.refcounts[r2] != 0 {
		t.Fatalf("expected both array elements released, got %v", ctx.refcounts)
	}
}

func TestOwnedLeakSkipsRelease(t *testing.T) {
	ctx := newFakeCtx()
	ref := value.Reference{Class: 1, Handle: 9}
	ctx.refcounts[ref] = 1

	owned := value.NewOwned([]value.Value{value.Ref(ref)}, ctx)
	leaked := owned.Leak()
	owned.Close() // must be a no-op after Leak

	if ctx.refcounts[ref] != 1 {
		t.Fatalf("leaking must not release, got refcount %d", ctx.refcounts[ref])
	}
	if len(leaked) != 1 {
		t.Fatalf("expected leaked values to be returned")
	}
}

func TestOwnedCloseReleasesOnce(t *testing.T) {
	ctx := newFakeCtx()
	ref := value.Reference{Class: 1, Handle: 10}
	ctx.refcounts[ref] = 1

	owned := value.NewOwned([]value.Value{value.Ref(ref)}, ctx)
	owned.Close()
	owned.Close() // second call must not double-release

	if ctx.refcounts[ref] != 0 {
		t.Fatalf("expected refcount 0 after close, got %d", ctx.refcounts[ref])
	}
}

func TestNumericConvertersAcceptIntOrFloat(t *testing.T) {
	ctx := newFakeCtx()
	conv := value.IntConverter()

	fromInt := conv.ToMessage(42, ctx)
	got, err := conv.FromMessage(fromInt, ctx)
	if err != nil || got != 42 {
		t.Fatalf("int round-trip: got %d, %v", got, err)
	}

	// A float-typed argument should also satisfy the integer reader.
	msg := value.Message{Signature: value.ValueColonSignature(), Arguments: []value.Value{value.Float(42.0)}}
	got2, err := conv.FromMessage(msg, ctx)
	if err != nil || got2 != 42 {
		t.Fatalf("expected float source to satisfy int reader, got %d, %v", got2, err)
	}
}

func TestBoolConverterRejectsWrongType(t *testing.T) {
	ctx := newFakeCtx()
	msg := value.Message{Signature: value.ValueColonSignature(), Arguments: []value.Value{value.Int(1)}}
	_, err := value.BoolConverter().FromMessage(msg, ctx)
	if err == nil {
		t.Fatalf("expected NotABoolean error")
	}
}
