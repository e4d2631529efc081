package jit

import "errors"

// ErrReentrant is returned by Run/Step when the embedder calls back
// into a Jit that is already executing on the calling goroutine (spec
// §6.3's "Run is not reentrant" note) — a CallSVC or InterpreterFallback
// callback must not turn around and call Run again on the same Jit.
var ErrReentrant = errors.New("jit: Run/Step called reentrantly")

// ErrAllocationExhausted mirrors the register allocator's panic
// message (backend/x64/regalloc.go) as a named sentinel for tests and
// any future caller that wants to distinguish it from other panics
// without string-matching.
var ErrAllocationExhausted = errors.New("jit: register allocation exhausted")

// ErrCodeBufferFull is returned internally when BlockOfCode has no
// room left for another block; Jit's dispatchCompile retries once against a
// freshly cleared cache before giving up (spec §4.6 "what happens when
// the near/far region fills").
var ErrCodeBufferFull = errors.New("jit: code buffer exhausted")
