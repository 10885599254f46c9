package router

import (
	"context"
	"reflect"

	"github.com/Brayan-724/flo-scene/cmn/flog"
	"github.com/Brayan-724/flo-scene/scene/ids"
	"github.com/Brayan-724/flo-scene/scene/stream"
)

// filterFactory builds the pump side of an installed filter handle against
// a concrete, type-erased destination input: it returns a freshly
// allocated source input (of the filter's input type) plus the pump
// goroutine body that drains it, transforms each item, and pushes the
// result into dest (spec §4.9: "the router install intermediate input
// streams and pump them"). headType documents the source input's element
// type so buildChain can keep threading a type through an arbitrarily long
// chain without generics at that call site.
type filterFactory func(dest any) (source any, headType reflect.Type, pump func(ctx context.Context))

// RegisterFilter installs a stream-to-stream transform under handle (spec
// §3.4 "filter handle"). transform may return an error to drop a single
// message (used by the serialization bridge's per-message encode/decode
// failures, spec §4.11); dropped messages are logged and do not stop the
// pump.
func RegisterFilter[S, T any](r *Router, handle ids.FilterHandle, bufferSize int, transform func(S) (T, error)) {
	srcType := reflect.TypeOf((*S)(nil)).Elem()
	factory := func(destAny any) (any, reflect.Type, func(context.Context)) {
		dest, ok := destAny.(*stream.Input[T])
		if !ok {
			flog.Errorf("scene/router: filter %s destination type mismatch", handle)
			src := stream.NewInput[S](bufferSize)
			src.Close()
			return src, srcType, func(context.Context) {}
		}
		src := stream.NewInput[S](bufferSize)
		pump := func(ctx context.Context) {
			defer dest.Close()
			for {
				v, ok, err := src.Pop(ctx)
				if err != nil || !ok {
					return
				}
				out, terr := transform(v)
				if terr != nil {
					flog.Warningf("scene/router: filter %s dropped a message: %v", handle, terr)
					continue
				}
				if perr := dest.Push(ctx, out); perr != nil {
					return
				}
			}
		}
		return src, srcType, pump
	}

	r.mu.Lock()
	r.filters[handle] = factory
	r.mu.Unlock()
}

// ChainTo builds a TargetSpec that routes through filters, in order, to
// land at subprogram.
func ChainTo(subprogram ids.SubProgramID, filters ...ids.FilterHandle) TargetSpec {
	return TargetSpec{Subprogram: subprogram, Chain: filters}
}

// DirectTo builds a TargetSpec with no filter chain.
func DirectTo(subprogram ids.SubProgramID) TargetSpec {
	return TargetSpec{Subprogram: subprogram}
}
