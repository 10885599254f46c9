// Command command_program hosts one command/response session over an
// in-memory duplex byte stream (spec §1's "internal socket", the same
// transport-free shape the original's pipe/tests/internal_socket_tests.rs
// exercises), composing scene/command's framing with a single demo
// subprogram reached through the router. Concrete TCP/Unix transports are
// out of scope (spec §1) — swapping net.Pipe for a real net.Conn here is
// the whole integration point.
package main

import (
	"context"
	"encoding/json"
	"net"

	"github.com/Brayan-724/flo-scene/cmn/flog"
	"github.com/Brayan-724/flo-scene/scene/command"
	"github.com/Brayan-724/flo-scene/scene/ids"
	"github.com/Brayan-724/flo-scene/scene/router"
	"github.com/Brayan-724/flo-scene/scene/stream"
)

// echoRequest is the one demonstration subprogram message this binary
// wires up, to show a command handler composing through the scene core
// (open an output, send, await a reply) instead of answering inline.
type echoRequest struct {
	payload json.RawMessage
	reply   chan json.RawMessage
}

func echoSubprogram(ctx context.Context, self ids.SubProgramID, in *stream.Input[echoRequest], _ *router.Router) {
	for {
		req, ok, err := in.Pop(ctx)
		if err != nil || !ok {
			return
		}
		req.reply <- req.payload
	}
}

func main() {
	flog.SetTitle("command_program")

	r := router.New()
	defer r.Shutdown()

	echoID := ids.NamedSubProgram("echo")
	router.AddSubprogram[echoRequest](r, echoID, echoSubprogram, 16)

	reg := NewRegistry()
	reg.Register("echo", func(ctx context.Context, cmd command.Command) (any, error) {
		sink, err := router.OpenOutput[echoRequest](r, echoID, ids.TargetStreamID[echoRequest](echoID))
		if err != nil {
			return nil, err
		}
		reply := make(chan json.RawMessage, 1)
		if err := sink.Send(ctx, echoRequest{payload: cmd.JSON, reply: reply}); err != nil {
			return nil, err
		}
		select {
		case out := <-reply:
			return out, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	serverConn, clientConn := net.Pipe()
	clientConn.Close() // no interactive peer in this demo binary; see scene/command tests for an exercised round trip

	if err := Serve(context.Background(), serverConn, reg); err != nil {
		flog.Warningf("command_program: session ended: %v", err)
	}
}
