package flotalk

import (
	"testing"

	"github.com/Brayan-724/flo-scene/value"
)

// TestEvaluateLiteral covers spec §8.2 scenario 1: compiling is out of
// scope, so the "compiled" form of the literal `42` is simply Ready(Int(42)).
func TestEvaluateLiteral(t *testing.T) {
	rt := EmptyRuntime()
	got, err := rt.Run(Ready(value.Int(42)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i, _ := got.AsInt(); i != 42 {
		t.Fatalf("want Int(42), got %v", got)
	}
}

// TestEvaluateArithmetic covers scenario 2.
func TestEvaluateArithmetic(t *testing.T) {
	rt := EmptyRuntime()

	sum, err := rt.Run(NumberTable.Send(value.Int(38), value.Message{
		Signature: plusSig,
		Arguments: []value.Value{value.Int(4)},
	}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i, _ := sum.AsInt(); i != 42 {
		t.Fatalf("38 + 4: want Int(42), got %v", sum)
	}

	div, err := rt.Run(NumberTable.Send(value.Float(1021.2), value.Message{
		Signature: floorDivSig,
		Arguments: []value.Value{value.Float(24.2)},
	}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i, _ := div.AsInt(); i != 42 {
		t.Fatalf("1021.2 // 24.2: want Int(42), got %v", div)
	}
}

// TestBooleanShortCircuit covers scenario 3: the RHS block must not run its
// side effect when the LHS is false.
func TestBooleanShortCircuit(t *testing.T) {
	rt := EmptyRuntime()

	ranRHS := false
	var rhsBlock value.Value
	rt.WithContext(func(ctx *Context) {
		rhsBlock = NewBlock(ctx, func(_ *Context, _ value.Value) Continuation {
			ranRHS = true
			return Ready(value.Bool(true))
		})
	})

	falseResult, err := rt.Run(EvalAnd(value.Bool(false), rhsBlock))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b, _ := falseResult.AsBool(); b != false {
		t.Fatalf("(1>2) and: [...]: want Bool(false), got %v", falseResult)
	}
	if ranRHS {
		t.Fatalf("RHS block ran despite short-circuit")
	}

	trueResult, err := rt.Run(EvalAnd(value.Bool(true), rhsBlock))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b, _ := trueResult.AsBool(); b != true {
		t.Fatalf("(1<2) and: [(3<4)]: want Bool(true), got %v", trueResult)
	}
	if !ranRHS {
		t.Fatalf("RHS block did not run when LHS was true")
	}
}

// TestBlockInvocation covers scenario 4: `[:x | ^x] value: 42` yields
// `Int(42)`.
func TestBlockInvocation(t *testing.T) {
	rt := EmptyRuntime()

	var block value.Value
	rt.WithContext(func(ctx *Context) {
		block = NewBlock(ctx, func(_ *Context, arg value.Value) Continuation {
			return Ready(arg)
		})
	})

	ref, err := block.AsReference()
	if err != nil {
		t.Fatalf("block is not a reference: %v", err)
	}

	var result value.Value
	rt.WithContext(func(ctx *Context) {
		c := ctx.Send(ref, value.Message{Signature: value.ValueColonSignature(), Arguments: []value.Value{value.Int(42)}})
		v, ok := c.IsReady()
		if !ok {
			t.Fatalf("block value: did not resolve synchronously")
		}
		result = v
	})
	if i, _ := result.AsInt(); i != 42 {
		t.Fatalf("want Int(42), got %v", result)
	}
}

// TestSubclassCreation covers scenario 5: sending `subclass` to a reference
// to Object yields a new reference whose class is SCRIPT_CLASS_CLASS and
// whose superclass handle is the Object reference, with its refcount
// incremented by one.
func TestSubclassCreation(t *testing.T) {
	rt := EmptyRuntime()

	var object value.Value
	var objectRef value.Reference
	rt.WithContext(func(ctx *Context) {
		v, ok := NewObject(ctx).IsReady()
		if !ok {
			t.Fatalf("NewObject did not resolve synchronously")
		}
		object = v
		var err error
		objectRef, err = object.AsReference()
		if err != nil {
			t.Fatalf("Object is not a reference: %v", err)
		}
	})

	if objectRef.Class != ScriptClassClass() {
		t.Fatalf("Object's class: want SCRIPT_CLASS_CLASS (%d), got %d", ScriptClassClass(), objectRef.Class)
	}

	var subclassCont Continuation
	rt.WithContext(func(ctx *Context) {
		subclassCont = ctx.Send(objectRef, value.Message{Signature: subclassSig})
	})
	subResult, err := rt.Run(subclassCont)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newRef, err := subResult.AsReference()
	if err != nil {
		t.Fatalf("subclass result is not a reference: %v", err)
	}
	if newRef.Class != ScriptClassClass() {
		t.Fatalf("subclass's class: want SCRIPT_CLASS_CLASS (%d), got %d", ScriptClassClass(), newRef.Class)
	}

	rt.WithContext(func(ctx *Context) {
		cs := ctx.GetCallbacksMut(ScriptClassClass())
		newData := cs.allocator.Retrieve(newRef.Handle).(*scriptClassData)
		if newData.superclass == nil || *newData.superclass != objectRef {
			t.Fatalf("superclass handle: want %v, got %v", objectRef, newData.superclass)
		}
		refcount := cs.allocator.(*SlabAllocator).Refcount(objectRef.Handle)
		if refcount != 2 {
			t.Fatalf("Object refcount after subclass: want 2 (initial 1 + retained), got %d", refcount)
		}
	})
}
