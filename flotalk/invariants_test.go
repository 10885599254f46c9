package flotalk_test

import (
	"github.com/Brayan-724/flo-scene/cmn/cos"
	"github.com/Brayan-724/flo-scene/flotalk"
	"github.com/Brayan-724/flo-scene/sym"
	"github.com/Brayan-724/flo-scene/value"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Allocator", func() {
	It("balances refcounts: freed iff the final count is zero", func() {
		var released bool
		alloc := flotalk.NewSlabAllocator(func(_ *flotalk.Context, _ any) { released = true })

		h := alloc.Allocate("payload")
		alloc.AddReference(h)
		alloc.AddReference(h)
		Expect(alloc.Refcount(h)).To(Equal(int32(3)))

		alloc.RemoveReference(h, nil)
		alloc.RemoveReference(h, nil)
		Expect(released).To(BeFalse())

		alloc.RemoveReference(h, nil)
		Expect(released).To(BeTrue())
	})

	It("reuses freed slots via the free-list", func() {
		alloc := flotalk.NewSlabAllocator(nil)
		h1 := alloc.Allocate("a")
		alloc.RemoveReference(h1, nil)
		h2 := alloc.Allocate("b")
		Expect(h2).To(Equal(h1))
	})
})

var _ = Describe("Dispatch table", func() {
	It("falls back to MessageNotSupported for an unbound signature", func() {
		rt := flotalk.EmptyRuntime()
		table := flotalk.Empty[value.Value]()
		sig := sym.InternSignature(sym.NewUnary(sym.Intern("frobnicate")))

		result, err := rt.Run(table.Send(value.Nil(), value.Message{Signature: sig}, nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError()).To(BeTrue())

		asErr, convErr := result.AsError()
		Expect(convErr).NotTo(HaveOccurred())
		var notSupported *cos.ErrMessageNotSupported
		Expect(asErr).To(BeAssignableToTypeOf(notSupported))
	})
})

var _ = Describe("Continuation", func() {
	It("short-circuits AndThenIfOk on an error value without calling f", func() {
		called := false
		c := flotalk.ReadyErr(&cos.ErrStreamClosed{}).AndThenIfOk(func(value.Value) flotalk.Continuation {
			called = true
			return flotalk.Ready(value.Nil())
		})
		v, ok := c.IsReady()
		Expect(ok).To(BeTrue())
		Expect(v.IsError()).To(BeTrue())
		Expect(called).To(BeFalse())
	})

	It("calls f when the resolved value is not an error", func() {
		c := flotalk.Ready(value.Int(1)).AndThenIfOk(func(v value.Value) flotalk.Continuation {
			i, _ := v.AsInt()
			return flotalk.Ready(value.Int(i + 1))
		})
		v, ok := c.IsReady()
		Expect(ok).To(BeTrue())
		i, _ := v.AsInt()
		Expect(i).To(Equal(int64(2)))
	})

	It("FutureSoon runs its function as a Soon step without touching the context", func() {
		var called bool
		rt := flotalk.EmptyRuntime()
		c := flotalk.FutureSoon(func() flotalk.Continuation {
			called = true
			return flotalk.Ready(value.Int(7))
		})
		v, err := rt.Run(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(called).To(BeTrue())
		i, _ := v.AsInt()
		Expect(i).To(Equal(int64(7)))
	})
})

var _ = Describe("Runtime", func() {
	It("resolves every continuation to an error once dropped", func() {
		rt := flotalk.EmptyRuntime()
		rt.Drop()

		_, err := rt.Run(flotalk.Ready(value.Int(1)))
		Expect(err).To(HaveOccurred())
		var dropped *cos.ErrRuntimeDropped
		Expect(err).To(BeAssignableToTypeOf(dropped))
	})
})
