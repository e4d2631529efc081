package x64

import (
	"fmt"

	"armjit/ir"
)

// BlockEmitter walks one translated, optimized Block and emits x86-64
// machine code for it into a BlockOfCode, driving a RegAlloc to decide
// where each SSA value lives.
//
// Memory access is generated against a single flat host-mapped region
// (JitState.MemBase + guest address), the common special case of the
// general PageTable scheme described in spec §6.2 where one page
// covers the whole guest address space. callbacks.PageTable is not
// read, and no translation path routes a sparse, multi-page mapping to
// the Interpret terminal or to MemoryCallbacks: every guest data
// access is a direct load/store at MemBase + address, a scope cut
// recorded in DESIGN.md. Opcodes with no fast-path translation (guest
// supervisor calls, undefined-instruction traps, raised exceptions)
// are lowered to a JitState.ExitReason write followed by a return to
// the Go-side dispatcher, rather than an inline call into an arbitrary
// Go closure.
type BlockEmitter struct {
	code  *BlockOfCode
	alloc *RegAlloc

	// hardExit is set once an instruction writes a terminal ExitReason
	// of its own (Undefined/CallSupervisor/ExceptionRaised). These
	// always end the block (their frontend.Step sets Meta.Terminal), so
	// EmitBlock must not let the ordinary terminal emitter's storeExit
	// overwrite the reason this instruction already recorded.
	hardExit bool
}

// NewBlockEmitter creates an emitter writing into code, with a fresh
// per-block allocator.
func NewBlockEmitter(code *BlockOfCode) *BlockEmitter {
	return &BlockEmitter{code: code, alloc: NewRegAlloc()}
}

// EmitBlock lowers every Inst in block, in order, then its Terminal.
func (be *BlockEmitter) EmitBlock(block *ir.Block) {
	for _, inst := range block.Instructions() {
		be.emitInst(inst)
		be.alloc.EndOfAllocScope()
	}
	be.alloc.AssertNoMoreUses()
	// Every block spends its own guest-cycle cost against the budget
	// regardless of how it exits (original_source's terminal.h doc
	// comment on LinkBlock, see DESIGN.md); the dispatcher loop in the
	// jit package, not conditional machine code here, is what stops
	// dispatching once CyclesRemaining goes non-positive.
	if n := block.CycleCount(); n != 0 {
		be.code.SubMem64Imm32(R15, OffsetCyclesRemaining, uint32(n))
	}
	if be.hardExit {
		// OpUndefinedInstruction/OpCallSupervisor/OpExceptionRaised
		// already wrote the real ExitReason/ExitData; block.Terminal()
		// here is just the placeholder the frontend had to set to
		// satisfy SetTerm, not a second exit to honor.
		be.code.Ret()
		return
	}
	be.emitTerminal(block.Terminal())
}

// operandGpr materializes v (an Inst reference or an immediate) into a
// GPR, loading an immediate into scratch if needed.
func (be *BlockEmitter) operandGpr(v ir.Value) HostLoc {
	if v.IsImmediate() {
		scratch := be.alloc.ScratchGpr()
		be.code.MovImm32(scratch, immBits32(v))
		return scratch
	}
	return be.alloc.UseGpr(v.Inst())
}

func immBits32(v ir.Value) uint32 {
	switch v.Type() {
	case ir.U1:
		if v.U1() {
			return 1
		}
		return 0
	case ir.U8:
		return uint32(v.U8())
	case ir.U16:
		return uint32(v.U16())
	case ir.U32:
		return v.U32()
	case ir.U64:
		// Truncated to the low 32 bits. Every U64 immediate this backend
		// is asked to materialize today (A64 ADD-immediate displacements,
		// and MOVZ's #0/#16-shifted constants — frontend/a64 routes
		// larger shifts to UndefinedInstruction rather than emit one
		// here) fits within 32 bits, and MovImm32's 32-bit register
		// write zero-extends the rest.
		if hi := v.U64() >> 32; hi != 0 {
			panic("x64: immBits32: U64 immediate does not fit in 32 bits")
		}
		return uint32(v.U64())
	case ir.A32Reg, ir.A64Reg, ir.A32ExtReg:
		return uint32(v.Reg())
	default:
		panic(fmt.Sprintf("x64: immBits32: unsupported immediate type %s", v.Type()))
	}
}

func (be *BlockEmitter) emitInst(inst *ir.Inst) {
	switch inst.Opcode() {
	case ir.OpGetRegister:
		dst := be.defineGprFor(inst)
		be.code.Load32(dst, R15, OffsetRegister(inst.Arg(0).Reg()))

	case ir.OpSetRegister:
		src := be.operandGpr(inst.Arg(1))
		be.code.Store32(R15, OffsetRegister(inst.Arg(0).Reg()), src)

	case ir.OpGetX:
		dst := be.defineGprFor(inst)
		be.code.Load64(dst, R15, OffsetXRegister(inst.Arg(0).Reg()))
	case ir.OpSetX:
		src := be.operandGpr(inst.Arg(1))
		be.code.Store64(R15, OffsetXRegister(inst.Arg(0).Reg()), src)

	case ir.OpGetCFlag:
		dst := be.defineGprFor(inst)
		be.code.Load8(dst, R15, OffsetCFlag)
	case ir.OpSetCFlag:
		src := be.operandGpr(inst.Arg(0))
		be.code.Store8(R15, OffsetCFlag, src)
	case ir.OpGetNFlag:
		dst := be.defineGprFor(inst)
		be.code.Load8(dst, R15, OffsetNFlag)
	case ir.OpSetNFlag:
		src := be.operandGpr(inst.Arg(0))
		be.code.Store8(R15, OffsetNFlag, src)
	case ir.OpGetZFlag:
		dst := be.defineGprFor(inst)
		be.code.Load8(dst, R15, OffsetZFlag)
	case ir.OpSetZFlag:
		src := be.operandGpr(inst.Arg(0))
		be.code.Store8(R15, OffsetZFlag, src)
	case ir.OpGetVFlag:
		dst := be.defineGprFor(inst)
		be.code.Load8(dst, R15, OffsetVFlag)
	case ir.OpSetVFlag:
		src := be.operandGpr(inst.Arg(0))
		be.code.Store8(R15, OffsetVFlag, src)

	case ir.OpAdd32:
		be.emitAlu(inst, aluAdd)
	case ir.OpSub32:
		be.emitAlu(inst, aluSub)
	case ir.OpAdd64:
		be.emitAlu64(inst, aluAdd)
	case ir.OpSub64:
		be.emitAlu64(inst, aluSub)
	case ir.OpAnd32:
		be.emitAlu(inst, aluAnd)
	case ir.OpEor32:
		be.emitAlu(inst, aluXor)
	case ir.OpOr32:
		be.emitAlu(inst, aluOr)
	case ir.OpNot32:
		src := be.operandGpr(inst.Arg(0))
		dst := be.alloc.UseDefGpr(inst.Arg(0).Inst(), inst)
		if dst != src {
			be.code.MovRegReg(dst, src)
		}
		be.code.NotReg(dst)

	case ir.OpLogicalShiftLeft32:
		be.emitShift(inst, be.code.ShlRegCL)
	case ir.OpLogicalShiftRight32:
		be.emitShift(inst, be.code.ShrRegCL)
	case ir.OpArithShiftRight32:
		be.emitShift(inst, be.code.SarRegCL)
	case ir.OpRotateRight32:
		be.emitShift(inst, be.code.RorRegCL)

	case ir.OpGetCarryFromOp:
		dst := be.defineGprFor(inst)
		be.code.SetC(dst)

	case ir.OpReadMemory8:
		be.emitLoad(inst, 1)
	case ir.OpReadMemory32:
		be.emitLoad(inst, 4)
	case ir.OpWriteMemory8:
		be.emitStore(inst, 1)
	case ir.OpWriteMemory32:
		be.emitStore(inst, 4)

	case ir.OpUndefinedInstruction:
		be.code.MovImm32(RAX, ExitReasonUndefined)
		be.code.Store32(R15, OffsetExitReason, RAX)
		be.hardExit = true

	case ir.OpCallSupervisor:
		swi := be.operandGpr(inst.Arg(0))
		be.code.MovImm32(RAX, ExitReasonSupervisorCall)
		be.code.Store32(R15, OffsetExitReason, RAX)
		be.code.Store32(R15, OffsetExitData, swi)
		zero := be.alloc.ScratchGpr()
		be.code.MovImm32(zero, 0)
		be.code.Store32(R15, OffsetExitData+4, zero)
		be.hardExit = true

	case ir.OpExceptionRaised:
		be.code.MovImm32(RAX, ExitReasonException)
		be.code.Store32(R15, OffsetExitReason, RAX)
		be.hardExit = true

	case ir.OpIdentity, ir.OpGetOverflowFromOp, ir.OpGetNZCVFromOp,
		ir.OpGetUpperFromOp, ir.OpGetLowerFromOp, ir.OpPushRSB:
		// Not reachable by the currently supported A32/Thumb subset
		// (no emitted rule produces these yet); panicking surfaces a
		// missing emitter rather than silently emitting nothing.
		panic(fmt.Sprintf("x64: emitInst: %s not yet implemented", inst.Opcode()))

	default:
		panic(fmt.Sprintf("x64: emitInst: unhandled opcode %s", inst.Opcode()))
	}
}

// defineGprFor allocates a fresh GPR for inst's result and records the
// binding in the allocator.
func (be *BlockEmitter) defineGprFor(inst *ir.Inst) HostLoc {
	loc := be.alloc.ScratchGpr()
	be.alloc.DefineValue(inst, loc)
	return loc
}

func (be *BlockEmitter) emitAlu(inst *ir.Inst, opcode byte) {
	lhs, rhs := inst.Arg(0), inst.Arg(1)
	lhsLoc := be.operandGpr(lhs)
	rhsLoc := be.operandGpr(rhs)
	var dst HostLoc
	if !lhs.IsImmediate() {
		dst = be.alloc.UseDefGpr(lhs.Inst(), inst)
		if dst != lhsLoc {
			be.code.MovRegReg(dst, lhsLoc)
		}
	} else {
		dst = be.alloc.ScratchGpr()
		be.alloc.DefineValue(inst, dst)
		be.code.MovRegReg(dst, lhsLoc)
	}
	be.code.AluRegReg(opcode, dst, rhsLoc)
}

// emitAlu64 is emitAlu widened to 64-bit operands, for the A64 integer
// ops (OpAdd64/OpSub64) whose result must not be truncated to 32 bits
// the way MovRegReg/AluRegReg would.
func (be *BlockEmitter) emitAlu64(inst *ir.Inst, opcode byte) {
	lhs, rhs := inst.Arg(0), inst.Arg(1)
	lhsLoc := be.operandGpr(lhs)
	rhsLoc := be.operandGpr(rhs)
	var dst HostLoc
	if !lhs.IsImmediate() {
		dst = be.alloc.UseDefGpr(lhs.Inst(), inst)
		if dst != lhsLoc {
			be.code.MovRegReg64(dst, lhsLoc)
		}
	} else {
		dst = be.alloc.ScratchGpr()
		be.alloc.DefineValue(inst, dst)
		be.code.MovRegReg64(dst, lhsLoc)
	}
	be.code.AluRegReg64(opcode, dst, rhsLoc)
}

func (be *BlockEmitter) emitShift(inst *ir.Inst, shiftFn func(HostLoc)) {
	value, amount := inst.Arg(0), inst.Arg(1)
	valueLoc := be.operandGpr(value)
	dst := be.defineShiftDest(inst, value, valueLoc)
	if amount.IsImmediate() {
		be.code.MovClImm8(amount.U8())
	} else {
		amountLoc := be.operandGpr(amount)
		be.code.MovRegReg(RCX, amountLoc)
	}
	shiftFn(dst)
}

func (be *BlockEmitter) defineShiftDest(inst *ir.Inst, value ir.Value, valueLoc HostLoc) HostLoc {
	if !value.IsImmediate() {
		dst := be.alloc.UseDefGpr(value.Inst(), inst)
		if dst != valueLoc {
			be.code.MovRegReg(dst, valueLoc)
		}
		return dst
	}
	dst := be.alloc.ScratchGpr()
	be.alloc.DefineValue(inst, dst)
	be.code.MovRegReg(dst, valueLoc)
	return dst
}

// effectiveAddr computes MemBase+addr into a scratch 64-bit register.
// addr is a 32-bit guest address held in a GPR whose high 32 bits are
// already zero (every write to a 32-bit destination register
// zero-extends), so a 64-bit ADD against the 64-bit MemBase pointer is
// safe without an explicit zero-extension step.
func (be *BlockEmitter) effectiveAddr(addr HostLoc) HostLoc {
	membase := be.alloc.ScratchGpr()
	be.code.Load64(membase, R15, OffsetMemBase)
	be.code.AluRegReg64(aluAdd, membase, addr)
	return membase
}

func (be *BlockEmitter) emitLoad(inst *ir.Inst, size int) {
	addr := be.operandGpr(inst.Arg(0))
	membase := be.effectiveAddr(addr)
	dst := be.defineGprFor(inst)
	if size == 1 {
		be.code.Load8(dst, membase, 0)
	} else {
		be.code.Load32(dst, membase, 0)
	}
}

func (be *BlockEmitter) emitStore(inst *ir.Inst, size int) {
	addr := be.operandGpr(inst.Arg(0))
	val := be.operandGpr(inst.Arg(1))
	membase := be.effectiveAddr(addr)
	if size == 1 {
		be.code.Store8(membase, 0, val)
	} else {
		be.code.Store32(membase, 0, val)
	}
}
