package serialize

import (
	"context"
	"testing"
	"time"

	"github.com/tinylib/msgp/msgp"

	"github.com/Brayan-724/flo-scene/scene/ids"
	"github.com/Brayan-724/flo-scene/scene/router"
	"github.com/Brayan-724/flo-scene/scene/stream"
)

// gadget is a hand-written stand-in for a msgp-codegen'd type (no
// go:generate msgp can run under this constraint), implementing exactly
// the EncodeMsg/DecodeMsg pair RegisterMsgpCodec expects.
type gadget struct {
	Name  string
	Count int64
}

func (g gadget) encodeMsg(w *msgp.Writer) error {
	if err := w.WriteMapHeader(2); err != nil {
		return err
	}
	if err := w.WriteString("name"); err != nil {
		return err
	}
	if err := w.WriteString(g.Name); err != nil {
		return err
	}
	if err := w.WriteString("count"); err != nil {
		return err
	}
	return w.WriteInt64(g.Count)
}

func decodeGadgetMsg(r *msgp.Reader) (gadget, error) {
	var g gadget
	n, err := r.ReadMapHeader()
	if err != nil {
		return g, err
	}
	for i := uint32(0); i < n; i++ {
		key, err := r.ReadString()
		if err != nil {
			return g, err
		}
		switch key {
		case "name":
			g.Name, err = r.ReadString()
		case "count":
			g.Count, err = r.ReadInt64()
		default:
			err = r.Skip()
		}
		if err != nil {
			return g, err
		}
	}
	return g, nil
}

// TestMsgpSerializerFilterRoundTripsThroughDeserializer mirrors
// TestSerializerFilterRoundTripsThroughDeserializer for the MessagePack
// codec, confirming the registry genuinely hosts two independent wire
// formats for two different message types at once (spec §4.11).
func TestMsgpSerializerFilterRoundTripsThroughDeserializer(t *testing.T) {
	RegisterMsgpCodec[gadget](gadget.encodeMsg, decodeGadgetMsg)

	r := router.New()
	defer r.Shutdown()

	encodeHandle, err := BuildSerializerFilter[gadget, []byte](r, 4)
	if err != nil {
		t.Fatalf("BuildSerializerFilter: %v", err)
	}
	decodeHandle, err := BuildDeserializerFilter[gadget, []byte](r, 4)
	if err != nil {
		t.Fatalf("BuildDeserializerFilter: %v", err)
	}

	target := ids.NamedSubProgram("msgp-sink")
	received := make(chan gadget, 1)
	router.AddSubprogram[gadget](r, target, func(ctx context.Context, self ids.SubProgramID, in *stream.Input[gadget], rr *router.Router) {
		v, ok, _ := in.Pop(ctx)
		if ok {
			received <- v
		}
	}, 4)

	relay := ids.NamedSubProgram("msgp-relay")
	relayIn := make(chan SerializedMessage, 4)
	router.AddSubprogram[SerializedMessage](r, relay, func(ctx context.Context, self ids.SubProgramID, in *stream.Input[SerializedMessage], rr *router.Router) {
		for {
			v, ok, err := in.Pop(ctx)
			if err != nil || !ok {
				return
			}
			relayIn <- v
		}
	}, 4)

	source := ids.NamedSubProgram("msgp-producer")
	encodeStreamID := ids.WithMessageType[gadget]()
	r.ConnectPrograms(router.FromSubprogram(source), encodeStreamID, router.ChainTo(relay, encodeHandle))

	encodeSink, err := router.OpenOutput[gadget](r, source, encodeStreamID)
	if err != nil {
		t.Fatalf("OpenOutput gadget: %v", err)
	}
	if err := encodeSink.Send(context.Background(), gadget{Name: "wrench", Count: 3}); err != nil {
		t.Fatalf("send gadget: %v", err)
	}

	var envelope SerializedMessage
	select {
	case envelope = <-relayIn:
	case <-time.After(time.Second):
		t.Fatalf("relay never received the encoded envelope")
	}

	decodeSource := ids.NamedSubProgram("msgp-decoder")
	decodeStreamID := ids.WithMessageType[SerializedMessage]()
	r.ConnectPrograms(router.FromSubprogram(decodeSource), decodeStreamID, router.ChainTo(target, decodeHandle))
	decodeSink, err := router.OpenOutput[SerializedMessage](r, decodeSource, decodeStreamID)
	if err != nil {
		t.Fatalf("OpenOutput SerializedMessage: %v", err)
	}
	if err := decodeSink.Send(context.Background(), envelope); err != nil {
		t.Fatalf("send envelope: %v", err)
	}

	select {
	case got := <-received:
		if got.Name != "wrench" || got.Count != 3 {
			t.Fatalf("want {wrench 3}, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("sink never received the decoded gadget")
	}
}
