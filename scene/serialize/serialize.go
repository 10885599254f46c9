// Package serialize implements the serialization bridge of spec §4.11: a
// process-wide registry of serializers, per-(message-type, serializer)
// codec pairs, a human-readable type-name registry, and the filter
// factories that turn a codec
// into a router-installable stream-to-stream transform. JSON encoding uses
// github.com/json-iterator/go configured as a drop-in encoding/json
// replacement, exactly as the teacher does at its own JSON boundaries; a
// second wire format, MessagePack via github.com/tinylib/msgp, is wired the
// same way the teacher's ext/dsort wires it onto its record types, giving
// this registry the second codec it was built to host (spec §4.11).
/*
 * Copyright (c) 2024, Brayan-724. All rights reserved.
 */
package serialize

import (
	"bytes"
	"reflect"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/tinylib/msgp/msgp"

	"github.com/Brayan-724/flo-scene/cmn/cos"
	"github.com/Brayan-724/flo-scene/scene/ids"
	"github.com/Brayan-724/flo-scene/scene/router"
)

// json is the teacher's own jsoniter configuration profile
// (ConfigCompatibleWithStandardLibrary), reused here for every JSON
// boundary per SPEC_FULL.md's ambient-stack note.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SerializedMessage is the envelope of spec §4.11/§6.3: a serializer's
// output value V, tagged with the reflect.Type of the original message
// type T it was produced from so a deserializer filter can reject a
// mismatched envelope without attempting to decode it.
type SerializedMessage struct {
	Value        any
	OriginalType reflect.Type
}

type codecKey struct {
	msgType reflect.Type
	serType reflect.Type
}

type codecFuncs struct {
	encode func(v any) (any, error)
	decode func(v any) (any, bool, error) // ok=false means "wrong type", not an error
}

var (
	mu                  sync.Mutex
	serializerCtors     = map[reflect.Type]func() any{}
	codecs              = map[codecKey]codecFuncs{}
	typeNames           = map[codecKey]string{}
	namesToKey          = map[string]codecKey{}
	memoizedEncodeNames = map[[2]reflect.Type]ids.FilterHandle{}
	memoizedDecodeNames = map[[2]reflect.Type]ids.FilterHandle{}
)

// RegisterSerializer installs a zero-arg constructor for serializer type S
// (spec §4.11 "install a zero-arg constructor in a process-wide registry
// keyed by the serializer's type-id"). Most callers never need to fetch it
// back directly — RegisterCodec/BuildSerializerFilter close over the
// encode/decode functions directly — but it is kept for parity with the
// spec's registry shape and for introspection (listing installed
// serializer kinds).
func RegisterSerializer[S any](ctor func() S) {
	t := reflect.TypeOf((*S)(nil)).Elem()
	mu.Lock()
	defer mu.Unlock()
	serializerCtors[t] = func() any { return ctor() }
}

// RegisterCodec installs the serialize/deserialize function pair for
// (T, V) (spec §4.11: "install serializer/deserializer function pairs in a
// separate registry").
func RegisterCodec[T, V any](encode func(T) (V, error), decode func(V) (T, error)) {
	msgType := reflect.TypeOf((*T)(nil)).Elem()
	serType := reflect.TypeOf((*V)(nil)).Elem()
	key := codecKey{msgType: msgType, serType: serType}

	mu.Lock()
	defer mu.Unlock()
	codecs[key] = codecFuncs{
		encode: func(v any) (any, error) {
			out, err := encode(v.(T))
			return out, err
		},
		decode: func(v any) (any, bool, error) {
			val, ok := v.(V)
			if !ok {
				return nil, false, nil
			}
			out, err := decode(val)
			return out, true, err
		},
	}
}

// RegisterTypeName associates (T, V) with a globally unique, human-readable
// name (spec §4.11 "Type-name registry"). The name is read back with
// TypeNameFor; this package has no lookup from a name back to (T, V) and no
// send-by-name operation.
func RegisterTypeName[T, V any](name string) {
	msgType := reflect.TypeOf((*T)(nil)).Elem()
	serType := reflect.TypeOf((*V)(nil)).Elem()
	key := codecKey{msgType: msgType, serType: serType}

	mu.Lock()
	defer mu.Unlock()
	typeNames[key] = name
	namesToKey[name] = key
}

// TypeNameFor returns the registered name for (T, V), if any — used when
// persisting a SerializedMessage across a process boundary (spec §6.3:
// "Persisted as (type-name-string, value) pairs when the type-name
// registry has a name for original-type; otherwise not serializable
// across processes").
func TypeNameFor[T, V any]() (string, bool) {
	msgType := reflect.TypeOf((*T)(nil)).Elem()
	serType := reflect.TypeOf((*V)(nil)).Elem()
	mu.Lock()
	defer mu.Unlock()
	name, ok := typeNames[codecKey{msgType: msgType, serType: serType}]
	return name, ok
}

// BuildSerializerFilter installs (memoized, idempotent) a filter that
// consumes T and produces SerializedMessage(V, typeof(T)) via the codec
// registered for (T, V); a single message's encode failure drops only that
// message (spec §4.11 "Serializer filter"). The memo key matches spec
// §4.11's "(source-type-id, target-type-id) -> filter-handle" table.
func BuildSerializerFilter[T, V any](r *router.Router, bufferSize int) (ids.FilterHandle, error) {
	msgType := reflect.TypeOf((*T)(nil)).Elem()
	serType := reflect.TypeOf((*V)(nil)).Elem()
	memoKey := [2]reflect.Type{msgType, serType}

	mu.Lock()
	if h, ok := memoizedEncodeNames[memoKey]; ok {
		mu.Unlock()
		return h, nil
	}
	codec, ok := codecs[codecKey{msgType: msgType, serType: serType}]
	mu.Unlock()
	if !ok {
		return ids.FilterHandle{}, &cos.ErrCannotConvertResponse{Reason: "no codec registered for " + msgType.String()}
	}

	handle := ids.NewFilterHandle()
	router.RegisterFilter[T, SerializedMessage](r, handle, bufferSize, func(v T) (SerializedMessage, error) {
		encoded, err := codec.encode(v)
		if err != nil {
			return SerializedMessage{}, err
		}
		return SerializedMessage{Value: encoded, OriginalType: msgType}, nil
	})

	mu.Lock()
	memoizedEncodeNames[memoKey] = handle
	mu.Unlock()
	return handle, nil
}

// BuildDeserializerFilter installs (memoized) a filter that consumes
// SerializedMessage and produces T iff its OriginalType matches and the
// carried value type-asserts to V (spec §4.11 "Deserializer filter"):
// wrong-type or decode-error envelopes are dropped, not propagated as
// errors, since a shared deserializer sits downstream of many producers
// emitting a union of envelope types.
func BuildDeserializerFilter[T, V any](r *router.Router, bufferSize int) (ids.FilterHandle, error) {
	msgType := reflect.TypeOf((*T)(nil)).Elem()
	serType := reflect.TypeOf((*V)(nil)).Elem()
	memoKey := [2]reflect.Type{serType, msgType}

	mu.Lock()
	if h, ok := memoizedDecodeNames[memoKey]; ok {
		mu.Unlock()
		return h, nil
	}
	codec, ok := codecs[codecKey{msgType: msgType, serType: serType}]
	mu.Unlock()
	if !ok {
		return ids.FilterHandle{}, &cos.ErrCannotConvertResponse{Reason: "no codec registered for " + msgType.String()}
	}

	handle := ids.NewFilterHandle()
	router.RegisterFilter[SerializedMessage, T](r, handle, bufferSize, func(msg SerializedMessage) (T, error) {
		var zero T
		if msg.OriginalType != msgType {
			return zero, &cos.ErrCannotConvertResponse{Reason: "envelope type mismatch"}
		}
		out, ok, err := codec.decode(msg.Value)
		if err != nil {
			return zero, err
		}
		if !ok {
			return zero, &cos.ErrCannotConvertResponse{Reason: "envelope payload type mismatch"}
		}
		return out.(T), nil
	})

	mu.Lock()
	memoizedDecodeNames[memoKey] = handle
	mu.Unlock()
	return handle, nil
}

// JSONValue is the "JSON value producer" serializer of spec §4.11's
// example: its Encode/Decode round-trip any Go value through
// encoding/json-compatible marshaling via jsoniter.
type JSONValue struct{}

// NewJSONValue is the zero-arg constructor installed via
// RegisterSerializer(NewJSONValue) for processes that want to list it.
func NewJSONValue() JSONValue { return JSONValue{} }

func (JSONValue) Encode(v any) ([]byte, error) { return json.Marshal(v) }
func (JSONValue) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

// RegisterJSONCodec is a convenience wrapper around RegisterCodec for the
// common case of serializing T to/from raw JSON bytes via JSONValue.
func RegisterJSONCodec[T any]() {
	RegisterCodec[T, []byte](
		func(v T) ([]byte, error) { return json.Marshal(v) },
		func(data []byte) (T, error) {
			var v T
			err := json.Unmarshal(data, &v)
			return v, err
		},
	)
}

// MsgpValue is the MessagePack analogue of JSONValue, grounded on
// ext/dsort's own msgp.NewWriterBuf(w, buf)/EncodeMsg/Flush sequence for
// encoding its distributed-sort record format. Unlike JSONValue it cannot
// round-trip an arbitrary `any` — msgp has no reflection-based generic
// encoder — so MsgpValue has no Encode/Decode of its own; RegisterMsgpCodec
// takes the EncodeMsg/DecodeMsg pair a message type supplies, whether
// hand-written or produced by `go:generate msgp`.
type MsgpValue struct{}

// NewMsgpValue is the zero-arg constructor installed via
// RegisterSerializer(NewMsgpValue).
func NewMsgpValue() MsgpValue { return MsgpValue{} }

// RegisterMsgpCodec installs a MessagePack codec for T via the msgp.Writer/
// msgp.Reader runtime types, the same pair ext/dsort's Manager uses
// directly against a msgp.NewWriterBuf when it calls md.EncodeMsg(msgpw).
// Callers supply encodeMsg/decodeMsg (T's EncodeMsg/DecodeMsg methods,
// typically msgp-codegen'd) rather than this package assuming a fixed
// method set, since generated msgp code commonly puts DecodeMsg on a
// pointer receiver and EncodeMsg on a value receiver, which a single
// generic interface constraint over T cannot capture for both.
func RegisterMsgpCodec[T any](
	encodeMsg func(T, *msgp.Writer) error,
	decodeMsg func(*msgp.Reader) (T, error),
) {
	RegisterCodec[T, []byte](
		func(v T) ([]byte, error) {
			var buf bytes.Buffer
			w := msgp.NewWriter(&buf)
			if err := encodeMsg(v, w); err != nil {
				return nil, err
			}
			if err := w.Flush(); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		func(data []byte) (T, error) {
			return decodeMsg(msgp.NewReader(bytes.NewReader(data)))
		},
	)
}
