package value

import (
	"github.com/Brayan-724/flo-scene/cmn/cos"
	"github.com/Brayan-724/flo-scene/sym"
)

// Message is the wire shape a dispatch table actually sends: either a
// unary selector with no arguments, or a selector with a fixed argument
// vector (spec §3.1's Signature, paired with its arguments).
type Message struct {
	Signature sym.SignatureID
	Arguments []Value
}

// Converter relates a native Go type to the unary `value` / keyword
// `value:` messages, per spec §4.7. ToMessage produces a message carrying
// the receiver's content (cloning any contained reference in ctx);
// FromMessage consumes a message's arguments (the caller retains release
// responsibility for anything not claimed).
type Converter[T any] interface {
	ToMessage(v T, ctx Releaser) Message
	FromMessage(msg Message, ctx Releaser) (T, error)
}

var (
	valueSig      = sym.InternSignature(sym.NewUnary(sym.Intern("value")))
	valueColonSig = sym.InternSignature(sym.NewKeyword(sym.Intern("value:")))
)

// ValueSignature and ValueColonSignature expose the two interned
// signatures every Converter in this file dispatches against.
func ValueSignature() sym.SignatureID      { return valueSig }
func ValueColonSignature() sym.SignatureID { return valueColonSig }

// readSingleArgument extracts the sole argument of a `value:` message,
// following message_converters.rs's read_argument helper.
func readSingleArgument(msg Message) (Value, error) {
	if msg.Signature != valueColonSig || len(msg.Arguments) != 1 {
		return Value{}, &cos.ErrMessageNotSupported{SignatureID: int(msg.Signature)}
	}
	return msg.Arguments[0], nil
}

type unitConverter struct{}

// UnitConverter converts the empty/void Go type: it supports only the unary
// `value` message, and always succeeds reading it.
func UnitConverter() Converter[struct{}] { return unitConverter{} }

func (unitConverter) ToMessage(struct{}, Releaser) Message {
	return Message{Signature: valueSig}
}
func (unitConverter) FromMessage(msg Message, _ Releaser) (struct{}, error) {
	if msg.Signature != valueSig {
		return struct{}{}, &cos.ErrMessageNotSupported{SignatureID: int(msg.Signature)}
	}
	return struct{}{}, nil
}

type boolConverter struct{}

func BoolConverter() Converter[bool] { return boolConverter{} }

func (boolConverter) ToMessage(v bool, _ Releaser) Message {
	return Message{Signature: valueColonSig, Arguments: []Value{Bool(v)}}
}
func (boolConverter) FromMessage(msg Message, _ Releaser) (bool, error) {
	arg, err := readSingleArgument(msg)
	if err != nil {
		return false, err
	}
	return arg.AsBool()
}

type intConverter struct{}

func IntConverter() Converter[int64] { return intConverter{} }

func (intConverter) ToMessage(v int64, _ Releaser) Message {
	return Message{Signature: valueColonSig, Arguments: []Value{Int(v)}}
}
func (intConverter) FromMessage(msg Message, _ Releaser) (int64, error) {
	arg, err := readSingleArgument(msg)
	if err != nil {
		return 0, err
	}
	return arg.AsInt()
}

type floatConverter struct{}

func FloatConverter() Converter[float64] { return floatConverter{} }

func (floatConverter) ToMessage(v float64, _ Releaser) Message {
	return Message{Signature: valueColonSig, Arguments: []Value{Float(v)}}
}
func (floatConverter) FromMessage(msg Message, _ Releaser) (float64, error) {
	arg, err := readSingleArgument(msg)
	if err != nil {
		return 0, err
	}
	return arg.AsFloat()
}

type stringConverter struct{}

func StringConverter() Converter[string] { return stringConverter{} }

func (stringConverter) ToMessage(v string, _ Releaser) Message {
	return Message{Signature: valueColonSig, Arguments: []Value{String(v)}}
}
func (stringConverter) FromMessage(msg Message, _ Releaser) (string, error) {
	arg, err := readSingleArgument(msg)
	if err != nil {
		return "", err
	}
	return arg.AsString()
}

type referenceConverter struct{}

// ReferenceConverter converts value.Reference, consuming (i.e. taking
// ownership of, not cloning) the single argument — matching the Rust
// original's "the reference must be released by the caller" note: the
// caller, having taken the reference out of the message, now owns its
// release obligation.
func ReferenceConverter() Converter[Reference] { return referenceConverter{} }

func (referenceConverter) ToMessage(v Reference, ctx Releaser) Message {
	cloned := CloneInContext(Ref(v), ctx)
	return Message{Signature: valueColonSig, Arguments: []Value{cloned}}
}
func (referenceConverter) FromMessage(msg Message, _ Releaser) (Reference, error) {
	arg, err := readSingleArgument(msg)
	if err != nil {
		return Reference{}, err
	}
	return arg.AsReference()
}

type errorConverter struct{}

func ErrorConverter() Converter[error] { return errorConverter{} }

func (errorConverter) ToMessage(v error, _ Releaser) Message {
	return Message{Signature: valueColonSig, Arguments: []Value{Error(v)}}
}
func (errorConverter) FromMessage(msg Message, _ Releaser) (error, error) {
	arg, err := readSingleArgument(msg)
	if err != nil {
		return nil, err
	}
	return arg.AsError()
}

// ValueConverter is the identity Converter over Value itself: `value:`
// carries the value through verbatim (spec §4.7, `impl TalkMessageType for
// TalkValue`).
type valueConverter struct{}

func ValueConverter() Converter[Value] { return valueConverter{} }

func (valueConverter) ToMessage(v Value, ctx Releaser) Message {
	return Message{Signature: valueColonSig, Arguments: []Value{CloneInContext(v, ctx)}}
}
func (valueConverter) FromMessage(msg Message, _ Releaser) (Value, error) {
	return readSingleArgument(msg)
}
