// Package value implements the FloTalk tagged Value (spec §3.1), the host
// Reference type, and the host<->message conversion trait (spec §4.7).
/*
 * Copyright (c) 2024, Brayan-724. All rights reserved.
 */
package value

import (
	"fmt"

	"github.com/Brayan-724/flo-scene/cmn/cos"
	"github.com/Brayan-724/flo-scene/sym"
)

// ClassID is a dense, sequentially assigned class identifier (spec §3.1).
type ClassID int

// DataHandle is opaque outside the allocator that issued it (spec §3.1).
type DataHandle uint64

// Reference is a pair (class-id, data-handle); it is valid iff the
// handle's refcount, in the owning Context's instance of the class's
// allocator, is >= 1 (spec §3.1 invariant).
type Reference struct {
	Class  ClassID
	Handle DataHandle
}

// Kind tags which alternative of the Value union is populated.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindChar
	KindSymbol
	KindSelector
	KindArray
	KindError
	KindReference
)

// Value is the tagged union at the center of the FloTalk data model. Only
// the field matching Kind is meaningful; Go has no tagged-union sum type, so
// this follows the common idiom of one unexported field per kind guarded by a
// Kind discriminator — the same shape the teacher uses for its own tagged
// on-wire messages (transport.ObjHdr carries an Opcode discriminator
// alongside kind-specific fields).
type Value struct {
	Kind Kind

	boolVal   bool
	intVal    int64
	floatVal  float64
	strVal    string
	charVal   rune
	symVal    sym.ID
	selVal    sym.SignatureID
	arrVal    []Value
	errVal    error
	refVal    Reference
}

func Nil() Value                 { return Value{Kind: KindNil} }
func Bool(b bool) Value          { return Value{Kind: KindBool, boolVal: b} }
func Int(i int64) Value          { return Value{Kind: KindInt, intVal: i} }
func Float(f float64) Value      { return Value{Kind: KindFloat, floatVal: f} }
func String(s string) Value      { return Value{Kind: KindString, strVal: s} }
func Char(c rune) Value          { return Value{Kind: KindChar, charVal: c} }
func Symbol(id sym.ID) Value     { return Value{Kind: KindSymbol, symVal: id} }
func Selector(id sym.SignatureID) Value {
	return Value{Kind: KindSelector, selVal: id}
}
func Array(items []Value) Value { return Value{Kind: KindArray, arrVal: items} }
func Error(err error) Value     { return Value{Kind: KindError, errVal: err} }
func Ref(r Reference) Value     { return Value{Kind: KindReference, refVal: r} }

func (v Value) IsError() bool { return v.Kind == KindError }

func (v Value) AsBool() (bool, error) {
	if v.Kind != KindBool {
		return false, &cos.ErrNotABoolean{Reason: v.typeName()}
	}
	return v.boolVal, nil
}

// AsInt accepts either an Int or a Float source value (spec §4.7: "Numeric
// readers accept either int or float source").
func (v Value) AsInt() (int64, error) {
	switch v.Kind {
	case KindInt:
		return v.intVal, nil
	case KindFloat:
		return int64(v.floatVal), nil
	default:
		return 0, &cos.ErrNotAnInteger{Reason: v.typeName()}
	}
}

func (v Value) AsFloat() (float64, error) {
	switch v.Kind {
	case KindFloat:
		return v.floatVal, nil
	case KindInt:
		return float64(v.intVal), nil
	default:
		return 0, &cos.ErrNotAFloat{Reason: v.typeName()}
	}
}

func (v Value) AsString() (string, error) {
	if v.Kind != KindString {
		return "", &cos.ErrNotAString{Reason: v.typeName()}
	}
	return v.strVal, nil
}

func (v Value) AsChar() (rune, error) {
	if v.Kind != KindChar {
		return 0, &cos.ErrNotACharacter{Reason: v.typeName()}
	}
	return v.charVal, nil
}

func (v Value) AsSymbol() (sym.ID, bool) {
	if v.Kind != KindSymbol {
		return 0, false
	}
	return v.symVal, true
}

func (v Value) AsSelector() (sym.SignatureID, bool) {
	if v.Kind != KindSelector {
		return 0, false
	}
	return v.selVal, true
}

func (v Value) AsArray() ([]Value, bool) {
	if v.Kind != KindArray {
		return nil, false
	}
	return v.arrVal, true
}

func (v Value) AsError() (error, error) {
	if v.Kind != KindError {
		return nil, &cos.ErrNotAnError{Reason: v.typeName()}
	}
	return v.errVal, nil
}

func (v Value) AsReference() (Reference, error) {
	if v.Kind != KindReference {
		return Reference{}, &cos.ErrNotAReference{Reason: v.typeName()}
	}
	return v.refVal, nil
}

func (v Value) typeName() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindChar:
		return "character"
	case KindSymbol:
		return "symbol"
	case KindSelector:
		return "selector"
	case KindArray:
		return "array"
	case KindError:
		return "error"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return fmt.Sprintf("%v", v.boolVal)
	case KindInt:
		return fmt.Sprintf("%d", v.intVal)
	case KindFloat:
		return fmt.Sprintf("%g", v.floatVal)
	case KindString:
		return v.strVal
	case KindChar:
		return string(v.charVal)
	case KindSymbol:
		name, _ := sym.Lookup(v.symVal)
		return "#" + name
	case KindSelector:
		sig, _ := sym.LookupSignature(v.selVal)
		return "#" + sig.String()
	case KindArray:
		return fmt.Sprintf("%v", v.arrVal)
	case KindError:
		return fmt.Sprintf("error: %v", v.errVal)
	case KindReference:
		return fmt.Sprintf("ref(class=%d, handle=%d)", v.refVal.Class, v.refVal.Handle)
	default:
		return "?"
	}
}
