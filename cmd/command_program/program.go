// command_program is the thin composition spec §1 calls for: it wires
// scene/command's framing over a byte-stream duplex to a small dispatch
// table, without itself implementing the command grammar (pipes,
// assignment, target direction) that spec §1 marks as an out-of-scope
// collaborator. A production build would replace Registry's lookup with a
// real parser/evaluator; this package only has to prove the framing
// contract end to end (spec §8.2 scenario 7).
/*
 * Copyright (c) 2024, Brayan-724. All rights reserved.
 */
package main

import (
	"context"
	"io"
	"sync"

	"github.com/Brayan-724/flo-scene/cmn/cos"
	"github.com/Brayan-724/flo-scene/cmn/flog"
	"github.com/Brayan-724/flo-scene/scene/command"
)

// Handler answers one parsed Command with either a JSON-able result value
// or an error (rendered as an error frame, spec §7).
type Handler func(ctx context.Context, cmd command.Command) (any, error)

// Registry is the name -> Handler lookup table that stands in for the
// out-of-scope command grammar/interpreter: each registered name is
// exactly one command, dispatched with its raw JSON argument.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register installs handler under name, replacing any existing binding.
func (r *Registry) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Dispatch looks up cmd.Name and runs its handler, or reports
// ErrNoSuchEntity if nothing is registered under that name (spec §8.2
// scenario 7: an unrecognized command name produces an error frame).
func (r *Registry) Dispatch(ctx context.Context, cmd command.Command) (any, error) {
	r.mu.RLock()
	handler, ok := r.handlers[cmd.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, &cos.ErrNoSuchEntity{ID: cmd.Name}
	}
	return handler(ctx, cmd)
}

// Serve drives one connection's command/response loop over conn (spec
// §6.1): it emits the initial prompt, reads commands until conn's input
// side is exhausted, and for each dispatches through reg, writing a JSON
// response frame, an error frame, or nothing (for handlers that return a
// nil result with no error, e.g. a purely side-effecting command) before
// the next idle prompt. On input EOF it writes the session-termination
// frame and returns.
func Serve(ctx context.Context, conn io.ReadWriter, reg *Registry) error {
	out := command.NewWriter(conn)
	if err := out.InitialPrompt(); err != nil {
		return err
	}

	scanner := command.NewScanner(conn)
	for {
		select {
		case <-ctx.Done():
			return out.Terminate()
		default:
		}

		cmd, err := scanner.Next()
		if err == io.EOF {
			return out.Terminate()
		}
		if err != nil {
			flog.Warningf("command_program: parse error: %v", err)
			if werr := out.Error(err); werr != nil {
				return werr
			}
			if werr := out.Prompt(); werr != nil {
				return werr
			}
			continue
		}

		result, derr := reg.Dispatch(ctx, cmd)
		if derr != nil {
			if werr := out.Error(derr); werr != nil {
				return werr
			}
		} else if result != nil {
			if werr := out.JSON(result); werr != nil {
				return werr
			}
		}
		if werr := out.Prompt(); werr != nil {
			return werr
		}
	}
}
