// Package debug provides cheap, off-by-default assertion helpers
// used across the FloTalk and scene packages to document invariants that
// must hold at dispatch/allocator/router boundaries.
/*
 * Copyright (c) 2024, Brayan-724. All rights reserved.
 */
package debug

import (
	"fmt"
	"sync"
)

// ON reports whether assertions are currently active (see Enable/Disable;
// they start off). Assertions are a
// development aid, not a substitute for the typed error taxonomy: they catch
// programmer errors (an invariant broken by the implementation itself), not
// recoverable runtime conditions.
func ON() bool { return on }

var on = false

// Enable turns assertions on; used by test suites that want the stronger
// checking. Never call from production code paths.
func Enable()  { on = true }
func Disable() { on = false }

func Assert(cond bool, args ...any) {
	if on && !cond {
		panic(assertMsg(args...))
	}
}

func Assertf(cond bool, format string, args ...any) {
	if on && !cond {
		panicf(format, args...)
	}
}

func AssertNoErr(err error) {
	if on && err != nil {
		panic(err)
	}
}

func AssertMutexLocked(mu *sync.Mutex) {
	if !on {
		return
	}
	if mu.TryLock() {
		mu.Unlock()
		panic("mutex expected to be locked")
	}
}

func AssertFunc(f func() bool, args ...any) {
	if on && !f() {
		panic(assertMsg(args...))
	}
}

func assertMsg(args ...any) string {
	if len(args) == 0 {
		return "assertion failed"
	}
	s := "assertion failed:"
	for _, a := range args {
		s += " "
		s += toStr(a)
	}
	return s
}

func toStr(a any) string {
	if s, ok := a.(string); ok {
		return s
	}
	if e, ok := a.(error); ok {
		return e.Error()
	}
	return "?"
}

func panicf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
