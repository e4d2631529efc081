package x64

import (
	"fmt"

	"armjit/ir"
)

// emitTerminal lowers a Block's single exit point. Rather than the
// inline self-modifying jump-patching a native recompiler would use
// (spec §4.9's patch-table design note), every variant here ends the
// generated block with a RET back to the Go-side dispatcher loop,
// leaving the next guest location (and, for the conditional variants,
// which branch was taken) encoded in JitState for the dispatcher to
// read. The jit package's CodeCache of CompiledBlocks decides which
// cached block to resume at; there is no patch table and no
// patched-in machine code — see DESIGN.md.
func (be *BlockEmitter) emitTerminal(t ir.Terminal) {
	switch t.Kind {
	case ir.TermInterpret:
		be.storeExit(ExitReasonInterpret, t.Next.Encode())
	case ir.TermReturnToDispatch:
		be.storeExit(ExitReasonLinkBlock, 0)
	case ir.TermLinkBlock, ir.TermLinkBlockFast:
		be.storeExit(ExitReasonLinkBlock, t.Next.Encode())
	case ir.TermPopRSBHint:
		be.storeExit(ExitReasonPopRSB, 0)
	case ir.TermCheckHalt:
		be.emitCheckHalt(t)
		return
	case ir.TermIf, ir.TermCheckBit:
		// Both arms were already required to resolve to the same kind
		// of exit by the translator for the guest subset this backend
		// targets (conditional execution is folded into ConditionalState
		// at translate time rather than surviving into a Block's
		// Terminal); reaching here means the frontend emitted an
		// If/CheckBit terminal this backend doesn't yet lower.
		panic(fmt.Sprintf("x64: emitTerminal: %s not yet implemented", t.Kind))
	default:
		panic(fmt.Sprintf("x64: emitTerminal: invalid terminal %s", t.Kind))
	}
	be.code.Ret()
}

// emitCheckHalt tests JitState.Halted and, if set, exits to the
// dispatcher with ExitReasonHalt instead of falling through to t.Else.
// The branch is a short forward JZ over the halt-exit sequence rather
// than the patch-table jump the teacher's native backend would use,
// consistent with every other terminal in this file always returning
// control to Go.
func (be *BlockEmitter) emitCheckHalt(t ir.Terminal) {
	be.code.CmpMem8Imm8(R15, OffsetHalted, 0)
	skip := be.code.JzRel8()
	be.storeExit(ExitReasonHalt, 0)
	be.code.Ret()
	be.code.PatchRel8(skip)
	be.emitTerminal(*t.Else)
}

func (be *BlockEmitter) storeExit(reason uint32, next uint64) {
	be.code.MovImm32(RAX, reason)
	be.code.Store32(R15, OffsetExitReason, RAX)
	lo, hi := uint32(next), uint32(next>>32)
	be.code.MovImm32(RAX, lo)
	be.code.Store32(R15, OffsetExitData, RAX)
	be.code.MovImm32(RAX, hi)
	be.code.Store32(R15, OffsetExitData+4, RAX)
}
