// Package a32 decodes A32 and Thumb16 instruction words into
// frontend.Step values, grounded on the bit-patterns in
// original_source's frontend/decoder/arm.h and thumb16.h tables (spec
// §4.1-4.2). Only the subset exercised by this module's seed scenarios
// is implemented; an unmatched word lowers to UndefinedInstruction.
package a32

import (
	"armjit/frontend"
	"armjit/ir"
)

// cond is the condition-field decoding shared by every A32 rule.
const (
	condAL = 0xE // always — does not start/extend a conditional block
	condNV = 0xF // unconditional-encoding space; decoder.IsUnconditionalEncoding tests for it, no A32 rule here calls it
)

// builder accumulates one instruction's StepMeta/Emit pair as a rule's
// Visit closure runs.
type builder struct {
	meta frontend.StepMeta
	emit func(e *frontend.IREmitter, loc ir.LocationDescriptor)
}

func condMeta(cond uint32, sizeBytes uint64) frontend.StepMeta {
	m := frontend.StepMeta{SizeBytes: sizeBytes}
	if uint8(cond) != condAL {
		m.HasCond = true
		m.Cond = uint8(cond)
	}
	return m
}

func signExtend24To32(imm24 uint32) int32 {
	v := imm24 << 2
	if v&0x02000000 != 0 {
		return int32(v | 0xFC000000)
	}
	return int32(v)
}

// prefetch offsets baked into branch-target computation, matching the
// ARM pipeline convention that PC reads as the current instruction's
// address plus this amount.
const (
	prefetchOffsetA32   = 8
	prefetchOffsetThumb = 4
)

func undefinedStep(sizeBytes uint64) frontend.Step {
	return frontend.Step{
		Meta: frontend.StepMeta{SizeBytes: sizeBytes, Terminal: true},
		Emit: func(e *frontend.IREmitter, loc ir.LocationDescriptor) {
			e.UndefinedInstruction()
			e.SetTerm(ir.ReturnToDispatch())
		},
	}
}
