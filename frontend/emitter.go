// Package frontend lowers guest instructions into the typed SSA IR
// (spec §4.2-4.3): IREmitter exposes typed factory methods building
// Insts into a Block; Translator drives a decoder+visitor across one
// basic block, tracking A32's ConditionalState machine.
package frontend

import "armjit/ir"

// IREmitter wraps an ir.Block and exposes opcode-shaped factory
// methods. Every factory constructs an Inst via ir.NewInst (which
// type-checks operands and updates use counts), appends it to the
// block, and returns a typed Value — matching spec §4.3 exactly.
type IREmitter struct {
	block *ir.Block
}

// NewIREmitter creates an emitter appending to block.
func NewIREmitter(block *ir.Block) *IREmitter { return &IREmitter{block: block} }

// Block returns the block being built.
func (e *IREmitter) Block() *ir.Block { return e.block }

func (e *IREmitter) emit(op ir.Opcode, args ...ir.Value) ir.Value {
	inst := ir.NewInst(op, args...)
	e.block.Append(inst)
	return ir.ValueFromInst(inst)
}

// --- guest register pseudo-locations --------------------------------------

func (e *IREmitter) GetRegister(reg uint8) ir.Value { return e.emit(ir.OpGetRegister, ir.ImmA32Reg(reg)) }
func (e *IREmitter) SetRegister(reg uint8, v ir.Value) {
	e.emit(ir.OpSetRegister, ir.ImmA32Reg(reg), v)
}

func (e *IREmitter) GetCpsr() ir.Value    { return e.emit(ir.OpGetCpsr) }
func (e *IREmitter) SetCpsr(v ir.Value)   { e.emit(ir.OpSetCpsr, v) }
func (e *IREmitter) GetNFlag() ir.Value   { return e.emit(ir.OpGetNFlag) }
func (e *IREmitter) SetNFlag(v ir.Value)  { e.emit(ir.OpSetNFlag, v) }
func (e *IREmitter) GetZFlag() ir.Value   { return e.emit(ir.OpGetZFlag) }
func (e *IREmitter) SetZFlag(v ir.Value)  { e.emit(ir.OpSetZFlag, v) }
func (e *IREmitter) GetCFlag() ir.Value   { return e.emit(ir.OpGetCFlag) }
func (e *IREmitter) SetCFlag(v ir.Value)  { e.emit(ir.OpSetCFlag, v) }
func (e *IREmitter) GetVFlag() ir.Value   { return e.emit(ir.OpGetVFlag) }
func (e *IREmitter) SetVFlag(v ir.Value)  { e.emit(ir.OpSetVFlag, v) }

func (e *IREmitter) GetW(reg uint8) ir.Value      { return e.emit(ir.OpGetW, ir.ImmA64Reg(reg)) }
func (e *IREmitter) SetW(reg uint8, v ir.Value)   { e.emit(ir.OpSetW, ir.ImmA64Reg(reg), v) }
func (e *IREmitter) GetX(reg uint8) ir.Value      { return e.emit(ir.OpGetX, ir.ImmA64Reg(reg)) }
func (e *IREmitter) SetX(reg uint8, v ir.Value)   { e.emit(ir.OpSetX, ir.ImmA64Reg(reg), v) }

// --- memory ------------------------------------------------------------------

func (e *IREmitter) ReadMemory8(addr ir.Value) ir.Value   { return e.emit(ir.OpReadMemory8, addr) }
func (e *IREmitter) ReadMemory16(addr ir.Value) ir.Value  { return e.emit(ir.OpReadMemory16, addr) }
func (e *IREmitter) ReadMemory32(addr ir.Value) ir.Value  { return e.emit(ir.OpReadMemory32, addr) }
func (e *IREmitter) ReadMemory64(addr ir.Value) ir.Value  { return e.emit(ir.OpReadMemory64, addr) }
func (e *IREmitter) WriteMemory8(addr, v ir.Value)        { e.emit(ir.OpWriteMemory8, addr, v) }
func (e *IREmitter) WriteMemory16(addr, v ir.Value)       { e.emit(ir.OpWriteMemory16, addr, v) }
func (e *IREmitter) WriteMemory32(addr, v ir.Value)       { e.emit(ir.OpWriteMemory32, addr, v) }
func (e *IREmitter) WriteMemory64(addr, v ir.Value)       { e.emit(ir.OpWriteMemory64, addr, v) }
func (e *IREmitter) ExclusiveReadMemory32(addr ir.Value) ir.Value {
	return e.emit(ir.OpExclusiveReadMemory32, addr)
}
func (e *IREmitter) ExclusiveWriteMemory32(addr, v ir.Value) ir.Value {
	return e.emit(ir.OpExclusiveWriteMemory32, addr, v)
}

// --- arithmetic / logic with side-channel companions --------------------------

// ResultAndCarry is returned by opcodes that have a carry-out
// side-channel (the shifts; Add and Sub return
// ResultAndCarryAndOverflow). Callers that need the carry call
// GetCarryFromOp; callers that don't may discard it, in which case DCE
// removes the unused companion machinery entirely since the companion
// Inst is never created.
type ResultAndCarry struct {
	Result   ir.Value
	producer *ir.Inst
}

// Producer returns the underlying Inst, for passing to
// GetCarryFromOp.
func (rc ResultAndCarry) Producer() *ir.Inst { return rc.producer }

// ResultAndCarryAndOverflow is returned by Add/Sub, which additionally
// have an overflow-flag side channel.
type ResultAndCarryAndOverflow struct {
	Result   ir.Value
	producer *ir.Inst
}

// Producer returns the underlying Inst, for passing to
// GetCarryFromOp/GetOverflowFromOp/GetNZCVFromOp.
func (rco ResultAndCarryAndOverflow) Producer() *ir.Inst { return rco.producer }

func (e *IREmitter) Add32(a, b, carryIn ir.Value) ResultAndCarryAndOverflow {
	v := e.emit(ir.OpAdd32, a, b, carryIn)
	return ResultAndCarryAndOverflow{Result: v, producer: v.Inst()}
}

func (e *IREmitter) Sub32(a, b, carryIn ir.Value) ResultAndCarryAndOverflow {
	v := e.emit(ir.OpSub32, a, b, carryIn)
	return ResultAndCarryAndOverflow{Result: v, producer: v.Inst()}
}

func (e *IREmitter) Add64(a, b, carryIn ir.Value) ResultAndCarryAndOverflow {
	v := e.emit(ir.OpAdd64, a, b, carryIn)
	return ResultAndCarryAndOverflow{Result: v, producer: v.Inst()}
}

func (e *IREmitter) Sub64(a, b, carryIn ir.Value) ResultAndCarryAndOverflow {
	v := e.emit(ir.OpSub64, a, b, carryIn)
	return ResultAndCarryAndOverflow{Result: v, producer: v.Inst()}
}

func (e *IREmitter) Mul32(a, b ir.Value) ir.Value { return e.emit(ir.OpMul32, a, b) }
func (e *IREmitter) And32(a, b ir.Value) ir.Value { return e.emit(ir.OpAnd32, a, b) }
func (e *IREmitter) Eor32(a, b ir.Value) ir.Value { return e.emit(ir.OpEor32, a, b) }
func (e *IREmitter) Or32(a, b ir.Value) ir.Value  { return e.emit(ir.OpOr32, a, b) }
func (e *IREmitter) Not32(a ir.Value) ir.Value    { return e.emit(ir.OpNot32, a) }

func (e *IREmitter) LogicalShiftLeft32(value, shift, carryIn ir.Value) ResultAndCarry {
	v := e.emit(ir.OpLogicalShiftLeft32, value, shift, carryIn)
	return ResultAndCarry{Result: v, producer: v.Inst()}
}

func (e *IREmitter) LogicalShiftRight32(value, shift, carryIn ir.Value) ResultAndCarry {
	v := e.emit(ir.OpLogicalShiftRight32, value, shift, carryIn)
	return ResultAndCarry{Result: v, producer: v.Inst()}
}

func (e *IREmitter) ArithShiftRight32(value, shift, carryIn ir.Value) ResultAndCarry {
	v := e.emit(ir.OpArithShiftRight32, value, shift, carryIn)
	return ResultAndCarry{Result: v, producer: v.Inst()}
}

func (e *IREmitter) RotateRight32(value, shift, carryIn ir.Value) ResultAndCarry {
	v := e.emit(ir.OpRotateRight32, value, shift, carryIn)
	return ResultAndCarry{Result: v, producer: v.Inst()}
}

// GetCarryFromOp attaches (or reuses) the carry companion of a
// carry-producing op, per spec §4.3's "companion opcode" contract: the
// first request constructs the OpGetCarryFromOp Inst and caches it on
// the producer so a second request for the same carry does not
// duplicate IR.
func (e *IREmitter) GetCarryFromOp(producer *ir.Inst) ir.Value {
	return e.companionOf(producer, ir.OpGetCarryFromOp)
}

func (e *IREmitter) GetOverflowFromOp(producer *ir.Inst) ir.Value {
	return e.companionOf(producer, ir.OpGetOverflowFromOp)
}

func (e *IREmitter) GetNZCVFromOp(producer *ir.Inst) ir.Value {
	return e.companionOf(producer, ir.OpGetNZCVFromOp)
}

func (e *IREmitter) companionOf(producer *ir.Inst, op ir.Opcode) ir.Value {
	if existing := producer.Companion(op); existing != nil {
		return ir.ValueFromInst(existing)
	}
	inst := ir.NewCompanion(producer, op)
	producer.AttachCompanion(inst)
	e.block.Append(inst)
	return ir.ValueFromInst(inst)
}

// --- flag packing --------------------------------------------------------------

func (e *IREmitter) NZCVFromPackedFlags(v ir.Value) ir.Value { return e.emit(ir.OpNZCVFromPackedFlags, v) }
func (e *IREmitter) PackedFlagsFromNZCV(v ir.Value) ir.Value { return e.emit(ir.OpPackedFlagsFromNZCV, v) }

// --- control-flow side effects --------------------------------------------------

func (e *IREmitter) ExceptionRaised(pc uint32, kind uint64) {
	e.emit(ir.OpExceptionRaised, ir.ImmU32(pc), ir.ImmU64(kind))
}

func (e *IREmitter) CallSupervisor(swi uint32) { e.emit(ir.OpCallSupervisor, ir.ImmU32(swi)) }

func (e *IREmitter) UndefinedInstruction() { e.emit(ir.OpUndefinedInstruction) }

// SetTerm installs the block's terminal (spec §4.3: "SetTerm(Terminal)").
func (e *IREmitter) SetTerm(t ir.Terminal) { e.block.SetTerminal(t) }
