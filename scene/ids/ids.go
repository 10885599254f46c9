// Package ids implements the scene's identity types (spec §3.4, §6.2):
// subprogram ids, stream ids, and the filter handles the router resolves
// connections through. Both id kinds are hashable and JSON-serializable,
// following the teacher's own small value-type packages (cmn/cos/ids.go)
// rather than a heavier "entity" abstraction.
/*
 * Copyright (c) 2024, Brayan-724. All rights reserved.
 */
package ids

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/Brayan-724/flo-scene/cmn/cos"
)

type subKind int

const (
	subKindGUID subKind = iota
	subKindName
)

// SubProgramID is either a GUID or an interned short name, optionally
// extended with a command-sequence number for transient "task" ids (spec
// §3.4). Exactly one of guid/name is meaningful, per kind.
type SubProgramID struct {
	kind    subKind
	guid    uuid.UUID
	name    string
	hasTask bool
	task    int64
}

// NewGUIDSubProgram mints a fresh GUID-identified subprogram id.
func NewGUIDSubProgram() SubProgramID {
	return SubProgramID{kind: subKindGUID, guid: cos.GenGUID()}
}

// NamedSubProgram returns the subprogram id for a fixed, interned short
// name (spec §6.2: "named ids serialize as the name string").
func NamedSubProgram(name string) SubProgramID {
	return SubProgramID{kind: subKindName, name: name}
}

// WithTask extends id with a command-sequence number, producing a distinct
// transient "task" id used to route a single command's reply.
func (id SubProgramID) WithTask(seq int64) SubProgramID {
	id.hasTask = true
	id.task = seq
	return id
}

func (id SubProgramID) String() string {
	switch id.kind {
	case subKindGUID:
		if id.hasTask {
			return fmt.Sprintf("guid:%s#%d", id.guid, id.task)
		}
		return "guid:" + id.guid.String()
	default:
		if id.hasTask {
			return fmt.Sprintf("%s#%d", id.name, id.task)
		}
		return id.name
	}
}

// MarshalJSON serializes named ids as the bare name string and GUID ids as
// their UUID string (spec §6.2).
func (id SubProgramID) MarshalJSON() ([]byte, error) {
	if id.kind == subKindGUID && !id.hasTask {
		return json.Marshal(id.guid.String())
	}
	return json.Marshal(id.String())
}

// UnmarshalJSON parses a UUID string back into a GUID id, falling back to a
// named id for anything else.
func (id *SubProgramID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if u, err := uuid.Parse(s); err == nil {
		*id = SubProgramID{kind: subKindGUID, guid: u}
		return nil
	}
	*id = SubProgramID{kind: subKindName, name: s}
	return nil
}

// StreamIDKind tags whether a StreamID routes by message type alone or by
// a specific target subprogram (spec §3.4).
type StreamIDKind int

const (
	// ByMessageType routes to whichever subprogram declares an input
	// stream of the carried message type (spec §4.9 step 3).
	ByMessageType StreamIDKind = iota
	// ByTarget routes to a specific subprogram id.
	ByTarget
)

// StreamID carries the message type-id and, for ByTarget, the target
// subprogram id (spec §3.4).
type StreamID struct {
	Kind        StreamIDKind
	MessageType reflect.Type
	Target      SubProgramID
}

// WithMessageType builds a ByMessageType stream id for T.
func WithMessageType[T any]() StreamID {
	return StreamID{Kind: ByMessageType, MessageType: reflect.TypeOf((*T)(nil)).Elem()}
}

// TargetStreamID builds a ByTarget stream id: messages of type T directed
// specifically at target.
func TargetStreamID[T any](target SubProgramID) StreamID {
	return StreamID{Kind: ByTarget, MessageType: reflect.TypeOf((*T)(nil)).Elem(), Target: target}
}

// HashKey is the comparable struct used as a map key for a StreamID (spec
// §6.2: "stream ids hash by (kind, message-type-id)"), extended with the
// target subprogram so ByTarget ids key distinctly per target. Its fields
// are already Go-comparable (a reflect.Type is an interned pointer, and
// SubProgramID is a comparable struct), so Key() uses them directly as a map
// key rather than digesting them through cos.HashKey: unlike sym's signature
// table, there is no bucketing to do here, and hashing into a single uint64
// would only add a collision risk no correctness requirement calls for.
type HashKey struct {
	kind    StreamIDKind
	msgType reflect.Type
	target  SubProgramID
}

// Key returns the comparable map key for this stream id.
func (s StreamID) Key() HashKey {
	return HashKey{kind: s.Kind, msgType: s.MessageType, target: s.Target}
}

func (s StreamID) String() string {
	if s.Kind == ByTarget {
		return fmt.Sprintf("target(%s)/%s", s.Target, s.MessageType)
	}
	return "type/" + s.MessageType.String()
}

// FilterHandle is an opaque id resolving to a registered stream-to-stream
// transform (spec §3.4), minted with the teacher's short-id generator
// (cmn/cos.GenShortID) since it only needs process-local uniqueness.
type FilterHandle struct {
	id string
}

func NewFilterHandle() FilterHandle {
	return FilterHandle{id: cos.GenShortID()}
}

func (f FilterHandle) String() string { return "filter:" + f.id }
func (f FilterHandle) IsZero() bool   { return f.id == "" }
