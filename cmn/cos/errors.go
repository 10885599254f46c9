// Package cos ("common") holds the error taxonomy and id-generation helpers
// shared by FloTalk and the scene runtime, following the teacher's
// cmn/cos/err.go: small typed error structs rather than sentinel values, so
// callers can carry structured detail (a signature id, a subprogram id)
// without string-matching.
/*
 * Copyright (c) 2024, Brayan-724. All rights reserved.
 */
package cos

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// Script-domain errors (spec §7) — these are the values a FloTalk
// Continuation resolves to as Value::Error, never raised as Go panics
// except where noted (allocator.Retrieve on a freed handle).
type (
	// ErrMessageNotSupported is returned by a dispatch table's default
	// not-supported fallback (§4.2).
	ErrMessageNotSupported struct {
		SignatureID int
		Signature   string
	}
	ErrNotAReference  struct{ Reason string }
	ErrNotABoolean    struct{ Reason string }
	ErrNotAnInteger   struct{ Reason string }
	ErrNotAFloat      struct{ Reason string }
	ErrNotANumber     struct{ Reason string }
	ErrNotAString     struct{ Reason string }
	ErrNotACharacter  struct{ Reason string }
	ErrNotAnError     struct{ Reason string }
	ErrStreamClosed   struct{}
	ErrRuntimeDropped struct{}
)

func (e *ErrMessageNotSupported) Error() string {
	if e.Signature != "" {
		return fmt.Sprintf("message not supported: %s (sig=%d)", e.Signature, e.SignatureID)
	}
	return fmt.Sprintf("message not supported: sig=%d", e.SignatureID)
}
func (e *ErrNotAReference) Error() string { return "not a reference: " + e.Reason }
func (e *ErrNotABoolean) Error() string   { return "not a boolean: " + e.Reason }
func (e *ErrNotAnInteger) Error() string  { return "not an integer: " + e.Reason }
func (e *ErrNotAFloat) Error() string     { return "not a float: " + e.Reason }
func (e *ErrNotANumber) Error() string    { return "not a number: " + e.Reason }
func (e *ErrNotAString) Error() string    { return "not a string: " + e.Reason }
func (e *ErrNotACharacter) Error() string { return "not a character: " + e.Reason }
func (e *ErrNotAnError) Error() string    { return "not an error: " + e.Reason }
func (*ErrStreamClosed) Error() string    { return "stream closed" }
func (*ErrRuntimeDropped) Error() string  { return "runtime dropped" }

// Scene-domain errors (spec §7).
type (
	ErrNoSuchEntity struct{ ID string }
	ErrNotListening struct{ ID string }
	ErrNoCurrentScene struct{}
	ErrThreadShuttingDown struct{}
	// ErrTargetNotAvailable is returned at connection/sink-creation time
	// when the router cannot resolve a target for a stream id (§4.9 step 4).
	ErrTargetNotAvailable struct{ StreamID string }
	// ErrTargetProgramEndedBeforeReady is a send-time error: the weak
	// reference to the target input stream failed to upgrade and no
	// retarget arrived (§4.8).
	ErrTargetProgramEndedBeforeReady struct{ Target string }
	ErrUnexpectedConnectionType      struct{ Wanted, Got string }
	ErrCannotConvertResponse         struct{ Reason string }
)

func (e *ErrNoSuchEntity) Error() string   { return "no such entity: " + e.ID }
func (e *ErrNotListening) Error() string   { return "not listening: " + e.ID }
func (*ErrNoCurrentScene) Error() string   { return "no current scene" }
func (*ErrThreadShuttingDown) Error() string { return "thread shutting down" }
func (e *ErrTargetNotAvailable) Error() string {
	return "target not available for stream: " + e.StreamID
}
func (e *ErrTargetProgramEndedBeforeReady) Error() string {
	return "target program ended before ready: " + e.Target
}
func (e *ErrUnexpectedConnectionType) Error() string {
	return fmt.Sprintf("unexpected connection type: wanted %s, got %s", e.Wanted, e.Got)
}
func (e *ErrCannotConvertResponse) Error() string {
	return "cannot convert response: " + e.Reason
}

// Errs is a thread-safe multi-error collector, following cmn/cos.Errs: used
// by broadcast's concurrent fan-out (scene/broadcast.Broadcast.Send), where
// every subscriber is sent to concurrently and every independent failure is
// worth reporting rather than short-circuiting on the first one.
type Errs struct {
	mu   sync.Mutex
	errs []error
}

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

func (e *Errs) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs)
}

// Err returns nil if no error was added, the sole error if exactly one was
// added, or a combined error otherwise.
func (e *Errs) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return e.errs[0]
	default:
		msgs := make([]string, len(e.errs))
		for i, err := range e.errs {
			msgs[i] = err.Error()
		}
		return errors.Errorf("%d errors: %v", len(e.errs), msgs)
	}
}

// Wrap attaches a stack trace the first time an error crosses a package
// boundary, following the teacher's use of github.com/pkg/errors.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
