// Package a64 decodes a representative subset of A64 instruction words
// into frontend.Step values, grounded on the bit-patterns in
// original_source's frontend/A64/decoder/a64.inc table (the decoder
// harness those patterns feed is a64.h). Unlike a32's fuller A32/Thumb16
// coverage, only MOVZ, ADD (immediate), and unconditional B are
// implemented here — enough to translate, optimize, and emit a real
// A64 basic block end to end; see DESIGN.md for the rest of the A64
// instruction set's status. An unmatched word lowers to
// UndefinedInstruction, the same fallback a32 uses.
package a64

import (
	"armjit/frontend"
	"armjit/ir"
)

// builder accumulates one instruction's StepMeta/Emit pair as a rule's
// Visit closure runs.
type builder struct {
	meta frontend.StepMeta
	emit func(e *frontend.IREmitter, loc ir.LocationDescriptor)
}

func undefinedStep() frontend.Step {
	return frontend.Step{
		Meta: frontend.StepMeta{SizeBytes: 4, Terminal: true},
		Emit: func(e *frontend.IREmitter, loc ir.LocationDescriptor) {
			e.UndefinedInstruction()
			e.SetTerm(ir.ReturnToDispatch())
		},
	}
}
