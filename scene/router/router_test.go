package router_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/Brayan-724/flo-scene/scene/ids"
	"github.com/Brayan-724/flo-scene/scene/router"
	"github.com/Brayan-724/flo-scene/scene/stream"
)

type pingMsg struct {
	n int
}

func collectSubprogram(received chan<- pingMsg) func(ctx context.Context, self ids.SubProgramID, in *stream.Input[pingMsg], r *router.Router) {
	return func(ctx context.Context, self ids.SubProgramID, in *stream.Input[pingMsg], r *router.Router) {
		for {
			v, ok, err := in.Pop(ctx)
			if err != nil || !ok {
				return
			}
			received <- v
		}
	}
}

var _ = Describe("Router", func() {
	var r *router.Router

	BeforeEach(func() {
		r = router.New()
	})

	AfterEach(func() {
		r.Shutdown()
	})

	It("routes by message type to the subprogram that declares it by default", func() {
		received := make(chan pingMsg, 4)
		target := ids.NamedSubProgram("consumer")
		router.AddSubprogram[pingMsg](r, target, collectSubprogram(received), 4)

		source := ids.NamedSubProgram("producer")
		sink, err := router.OpenOutput[pingMsg](r, source, ids.WithMessageType[pingMsg]())
		Expect(err).NotTo(HaveOccurred())

		ctx := context.Background()
		Expect(sink.Send(ctx, pingMsg{n: 1})).To(Succeed())

		Eventually(received).Should(Receive(Equal(pingMsg{n: 1})))
	})

	It("resolves TargetNotAvailable when nothing declares the message type", func() {
		source := ids.NamedSubProgram("producer")
		_, err := router.OpenOutput[pingMsg](r, source, ids.WithMessageType[pingMsg]())
		Expect(err).To(HaveOccurred())
	})

	It("lets an explicit rule take priority over the default by-type route, and retargets without duplication", func() {
		receivedA := make(chan pingMsg, 4)
		receivedB := make(chan pingMsg, 4)
		progA := ids.NamedSubProgram("a")
		progB := ids.NamedSubProgram("b")
		router.AddSubprogram[pingMsg](r, progA, collectSubprogram(receivedA), 4)
		router.AddSubprogram[pingMsg](r, progB, collectSubprogram(receivedB), 4)

		source := ids.NamedSubProgram("producer")
		streamID := ids.WithMessageType[pingMsg]()
		r.ConnectPrograms(router.FromSubprogram(source), streamID, router.DirectTo(progA))

		sink, err := router.OpenOutput[pingMsg](r, source, streamID)
		Expect(err).NotTo(HaveOccurred())

		ctx := context.Background()
		Expect(sink.Send(ctx, pingMsg{n: 1})).To(Succeed())
		Eventually(receivedA).Should(Receive(Equal(pingMsg{n: 1})))

		r.ConnectPrograms(router.FromSubprogram(source), streamID, router.DirectTo(progB))

		Expect(sink.Send(ctx, pingMsg{n: 2})).To(Succeed())
		Eventually(receivedB).Should(Receive(Equal(pingMsg{n: 2})))
		Consistently(receivedA, 100*time.Millisecond).ShouldNot(Receive())
	})

	It("cascades a subprogram's death to every sink still targeting it", func() {
		target := ids.NamedSubProgram("ephemeral")
		router.AddSubprogram[pingMsg](r, target, func(ctx context.Context, self ids.SubProgramID, in *stream.Input[pingMsg], rr *router.Router) {
			// pops exactly one message, then returns — simulating a task
			// that exits mid-lifetime — so the registry entry is still
			// present while the test resolves and sends its first message.
			in.Pop(ctx)
		}, 4)

		source := ids.NamedSubProgram("producer")
		sink, err := router.OpenOutput[pingMsg](r, source, ids.TargetStreamID[pingMsg](target))
		Expect(err).NotTo(HaveOccurred())

		Expect(sink.Send(context.Background(), pingMsg{n: 1})).To(Succeed())

		Eventually(func() error {
			return sink.Send(context.Background(), pingMsg{n: 2})
		}, time.Second).Should(HaveOccurred())
	})

	It("pumps a message through a registered filter chain", func() {
		received := make(chan pingMsg, 4)
		target := ids.NamedSubProgram("consumer")
		router.AddSubprogram[pingMsg](r, target, collectSubprogram(received), 4)

		handle := ids.NewFilterHandle()
		router.RegisterFilter[int, pingMsg](r, handle, 4, func(n int) (pingMsg, error) {
			return pingMsg{n: n * 2}, nil
		})

		source := ids.NamedSubProgram("producer")
		streamID := ids.WithMessageType[int]()
		r.ConnectPrograms(router.FromSubprogram(source), streamID, router.ChainTo(target, handle))

		sink, err := router.OpenOutput[int](r, source, streamID)
		Expect(err).NotTo(HaveOccurred())
		Expect(sink.Send(context.Background(), 21)).To(Succeed())

		Eventually(received).Should(Receive(Equal(pingMsg{n: 42})))
	})

	It("delivers exactly one IdleNotification once every subprogram's queue is empty", func() {
		// A subprogram that drops its input stream immediately (spec §8.2
		// scenario 6's "notifies_if_subprogram_drops_input_stream" case)
		// still counts as idle: an empty, closed queue has nothing left to
		// deliver.
		dropper := ids.NamedSubProgram("dropper")
		router.AddSubprogram[pingMsg](r, dropper, func(ctx context.Context, self ids.SubProgramID, in *stream.Input[pingMsg], rr *router.Router) {
			in.Close()
		}, 0)

		notifications := make(chan router.IdleNotification, 4)
		watcher := ids.NamedSubProgram("watcher")
		router.AddSubprogram[router.IdleNotification](r, watcher, func(ctx context.Context, self ids.SubProgramID, in *stream.Input[router.IdleNotification], rr *router.Router) {
			for {
				v, ok, err := in.Pop(ctx)
				if err != nil || !ok {
					return
				}
				notifications <- v
			}
		}, 4)

		r.NotifyWhenIdle(context.Background(), watcher)

		Eventually(notifications, time.Second).Should(Receive())
		Consistently(notifications, 100*time.Millisecond).ShouldNot(Receive())
	})
})
