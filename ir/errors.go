package ir

import "errors"

// ErrTypeMismatch indicates an operand's declared type does not match
// its actual type. Spec §7 classifies this as a translator bug: it is
// always a logic error in an opcode factory method, never guest-visible
// input, so the IR builder panics with this wrapped in rather than
// returning it — there is no well-defined way to keep building IR once
// the type system has been violated.
var ErrTypeMismatch = errors.New("ir: operand type mismatch")

// ErrUseCountUnderflow indicates RemoveUse was called more times than
// AddUse for some Inst: always a bug in an optimizer pass.
var ErrUseCountUnderflow = errors.New("ir: use count underflow")
