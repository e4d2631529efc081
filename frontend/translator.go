package frontend

import "armjit/ir"

// defaultMaxInstructionsPerBlock caps a single translation unit absent
// an explicit Options.MaxInstructions, mirroring the teacher's
// max-instructions-per-compilation-unit guard in its own compiler
// (spec §4.2 step 6: blocks terminate at a size limit even without a
// guest branch).
const defaultMaxInstructionsPerBlock = 1000

// StepMeta describes a decoded guest instruction's block-level effect
// before any IR is emitted for it, so Translate can decide whether the
// ConditionalState machine allows the instruction into this block at
// all (spec §4.2: a condition change must not leak partial IR into the
// block it's breaking out of).
type StepMeta struct {
	SizeBytes uint64 // 2 for Thumb16, 4 otherwise
	Cond      uint8
	HasCond   bool
	// Terminal reports that the instruction will install the block's
	// Terminal itself (a branch, an SVC, a UDF) once Emit runs.
	Terminal bool
}

// Step is one decoded guest instruction: its metadata, and the Emit
// closure that lowers it into e. Translate only calls Emit once it has
// decided, from Meta alone, that this instruction belongs in the
// block under construction.
type Step struct {
	Meta StepMeta
	// Emit lowers this instruction into e. loc is this instruction's
	// own location (not the block's start), needed for PC-relative
	// branch-target computation.
	Emit func(e *IREmitter, loc ir.LocationDescriptor)
}

// DecodeOneFunc decodes exactly one guest instruction at loc without
// emitting it yet. Concrete decoders live in frontend/a32 and
// frontend/a64; Translate is ISA-agnostic over this seam.
type DecodeOneFunc func(loc ir.LocationDescriptor) Step

// Options configures a single Translate call.
type Options struct {
	// MaxInstructions caps how many guest instructions one block may
	// contain; 0 selects defaultMaxInstructionsPerBlock.
	MaxInstructions int
}

// Translate drives decodeOne across successive locations starting at
// start, building and returning a Block that is not yet frozen (the
// caller freezes it after optimization). It owns the
// ConditionalState machine (spec §4.2) that folds a run of
// same-condition A32 instructions into one block with a single shared
// entry condition, and the size/terminal bookkeeping common to every
// ISA.
func Translate(start ir.LocationDescriptor, decodeOne DecodeOneFunc, opts Options) *ir.Block {
	block := ir.NewBlock(start)
	e := NewIREmitter(block)

	maxInsns := opts.MaxInstructions
	if maxInsns <= 0 {
		maxInsns = defaultMaxInstructionsPerBlock
	}

	state := CondNone
	loc := start

	for i := 0; i < maxInsns; i++ {
		step := decodeOne(loc)
		meta := step.Meta

		if meta.HasCond {
			switch state {
			case CondNone:
				block.SetEntryCond(meta.Cond, loc.AdvancePC(meta.SizeBytes))
				state = CondTranslating
			case CondTranslating:
				if cond, ok := block.EntryCond(); ok && cond != meta.Cond {
					state = CondBreak
				}
			case CondTrailing:
				state = CondBreak
			}
		} else if state == CondTranslating {
			state = CondTrailing
		}

		if state == CondBreak {
			// Decoded but never emitted: this instruction starts the
			// next block instead, so no partial IR leaks into this one.
			block.SetTerminal(ir.LinkBlock(loc))
			break
		}

		step.Emit(e, loc)
		block.AdvanceCycle(meta.SizeBytes)
		loc = loc.AdvancePC(meta.SizeBytes)

		if meta.Terminal {
			break
		}

		if i == maxInsns-1 {
			block.SetTerminal(ir.LinkBlock(loc))
		}
	}

	if !block.Terminal().IsValid() {
		block.SetTerminal(ir.LinkBlock(loc))
	}

	// Left unfrozen: optimize.Pipeline still needs to mutate this block
	// (GetSetElimination/DeadCodeElimination call RemoveAt). The
	// compiler freezes it once the pipeline has run, per Block.Freeze's
	// own doc comment ("called once translation and optimization are
	// complete").
	return block
}
