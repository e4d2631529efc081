package ir

// Opcode is an SSA instruction opcode. Every opcode has a fixed table
// entry (see Signature) giving its return type, its argument types,
// and whether it is side-effect-free (and therefore eligible for dead
// code elimination when unused).
type Opcode uint16

const (
	OpVoid Opcode = iota // sentinel, never constructed

	// --- pseudo-operations -------------------------------------------------
	OpIdentity // no-op passthrough, used by the allocator/optimizer to alias values

	// --- guest register pseudo-locations -----------------------------------
	OpGetRegister // (A32Reg) -> U32
	OpSetRegister // (A32Reg, U32) -> Void
	OpGetExtendedRegister32
	OpSetExtendedRegister32
	OpGetExtendedRegister64
	OpSetExtendedRegister64
	OpGetCpsr     // () -> U32
	OpSetCpsr     // (U32) -> Void
	OpGetNFlag    // () -> U1
	OpSetNFlag    // (U1) -> Void
	OpGetZFlag    // () -> U1
	OpSetZFlag    // (U1) -> Void
	OpGetCFlag    // () -> U1
	OpSetCFlag    // (U1) -> Void
	OpGetVFlag    // () -> U1
	OpSetVFlag    // (U1) -> Void

	OpGetW // A64: (A64Reg) -> U32
	OpSetW // A64: (A64Reg, U32) -> Void
	OpGetX // A64: (A64Reg) -> U64
	OpSetX // A64: (A64Reg, U64) -> Void

	// --- memory --------------------------------------------------------------
	OpReadMemory8  // (U32) -> U8
	OpReadMemory16 // (U32) -> U16
	OpReadMemory32 // (U32) -> U32
	OpReadMemory64 // (U32) -> U64
	OpWriteMemory8
	OpWriteMemory16
	OpWriteMemory32
	OpWriteMemory64
	OpExclusiveReadMemory32
	OpExclusiveWriteMemory32 // -> U32 (0 on success, 1 on failure, matches STREX convention)

	// --- arithmetic / logic (main opcodes, some produce companions) --------
	OpAdd32     // (U32, U32, U1 carry_in) -> U32
	OpAdd64     // (U64, U64, U1 carry_in) -> U64
	OpSub32     // (U32, U32, U1 carry_in) -> U32
	OpSub64     // (U64, U64, U1 carry_in) -> U64
	OpMul32     // (U32, U32) -> U32
	OpMul64     // (U64, U64) -> U64
	OpAnd32     // (U32, U32) -> U32
	OpEor32     // (U32, U32) -> U32
	OpOr32      // (U32, U32) -> U32
	OpNot32     // (U32) -> U32

	OpLogicalShiftLeft32  // (U32, U8 shift, U1 carry_in) -> U32
	OpLogicalShiftRight32 // (U32, U8 shift, U1 carry_in) -> U32
	OpArithShiftRight32   // (U32, U8 shift, U1 carry_in) -> U32
	OpRotateRight32       // (U32, U8 shift, U1 carry_in) -> U32

	// --- companion (pseudo) opcodes -----------------------------------------
	// Each companion's sole argument is the Inst whose side-channel
	// result it surfaces. The emitter of the producing opcode scans its
	// uses for companions to decide which flag outputs to materialize.
	OpGetCarryFromOp    // (Opaque) -> U1
	OpGetOverflowFromOp // (Opaque) -> U1
	OpGetNZCVFromOp     // (Opaque) -> NZCV
	OpGetUpperFromOp    // (Opaque) -> U32 (high half of a widening op)
	OpGetLowerFromOp    // (Opaque) -> U32 (low half of a widening op)

	// --- nzcv materialization ------------------------------------------------
	OpNZCVFromPackedFlags // (U32) -> NZCV
	OpPackedFlagsFromNZCV // (NZCV) -> U32

	// --- control flow side effects -------------------------------------------
	OpExceptionRaised  // (U32 pc, U64 exception_kind) -> Void
	OpCallSupervisor   // (U32 swi) -> Void
	OpPushRSB          // (Opaque location) -> Void, pushes a return-address hint
	OpUndefinedInstruction // no args -> Void

	opcodeCount
)

// Signature describes one opcode's static shape.
type Signature struct {
	Name        string
	Ret         Type
	Args        []Type
	SideEffect  bool // true => never dead-code-eliminated even with zero uses
	IsCompanion bool // true => pseudo-op whose emitter binds a sibling's side-channel result
}

var signatures = [opcodeCount]Signature{
	OpVoid: {Name: "Void", Ret: Void},

	OpIdentity: {Name: "Identity", Ret: Opaque, Args: []Type{Opaque}},

	OpGetRegister: {Name: "GetRegister", Ret: U32, Args: []Type{A32Reg}},
	OpSetRegister: {Name: "SetRegister", Ret: Void, Args: []Type{A32Reg, U32}, SideEffect: true},
	OpGetExtendedRegister32: {Name: "GetExtendedRegister32", Ret: U32, Args: []Type{A32ExtReg}},
	OpSetExtendedRegister32: {Name: "SetExtendedRegister32", Ret: Void, Args: []Type{A32ExtReg, U32}, SideEffect: true},
	OpGetExtendedRegister64: {Name: "GetExtendedRegister64", Ret: U64, Args: []Type{A32ExtReg}},
	OpSetExtendedRegister64: {Name: "SetExtendedRegister64", Ret: Void, Args: []Type{A32ExtReg, U64}, SideEffect: true},
	OpGetCpsr: {Name: "GetCpsr", Ret: U32},
	OpSetCpsr: {Name: "SetCpsr", Ret: Void, Args: []Type{U32}, SideEffect: true},
	OpGetNFlag: {Name: "GetNFlag", Ret: U1},
	OpSetNFlag: {Name: "SetNFlag", Ret: Void, Args: []Type{U1}, SideEffect: true},
	OpGetZFlag: {Name: "GetZFlag", Ret: U1},
	OpSetZFlag: {Name: "SetZFlag", Ret: Void, Args: []Type{U1}, SideEffect: true},
	OpGetCFlag: {Name: "GetCFlag", Ret: U1},
	OpSetCFlag: {Name: "SetCFlag", Ret: Void, Args: []Type{U1}, SideEffect: true},
	OpGetVFlag: {Name: "GetVFlag", Ret: U1},
	OpSetVFlag: {Name: "SetVFlag", Ret: Void, Args: []Type{U1}, SideEffect: true},

	OpGetW: {Name: "GetW", Ret: U32, Args: []Type{A64Reg}},
	OpSetW: {Name: "SetW", Ret: Void, Args: []Type{A64Reg, U32}, SideEffect: true},
	OpGetX: {Name: "GetX", Ret: U64, Args: []Type{A64Reg}},
	OpSetX: {Name: "SetX", Ret: Void, Args: []Type{A64Reg, U64}, SideEffect: true},

	OpReadMemory8:  {Name: "ReadMemory8", Ret: U8, Args: []Type{U32}, SideEffect: true},
	OpReadMemory16: {Name: "ReadMemory16", Ret: U16, Args: []Type{U32}, SideEffect: true},
	OpReadMemory32: {Name: "ReadMemory32", Ret: U32, Args: []Type{U32}, SideEffect: true},
	OpReadMemory64: {Name: "ReadMemory64", Ret: U64, Args: []Type{U32}, SideEffect: true},
	OpWriteMemory8:  {Name: "WriteMemory8", Ret: Void, Args: []Type{U32, U8}, SideEffect: true},
	OpWriteMemory16: {Name: "WriteMemory16", Ret: Void, Args: []Type{U32, U16}, SideEffect: true},
	OpWriteMemory32: {Name: "WriteMemory32", Ret: Void, Args: []Type{U32, U32}, SideEffect: true},
	OpWriteMemory64: {Name: "WriteMemory64", Ret: Void, Args: []Type{U32, U64}, SideEffect: true},
	OpExclusiveReadMemory32:  {Name: "ExclusiveReadMemory32", Ret: U32, Args: []Type{U32}, SideEffect: true},
	OpExclusiveWriteMemory32: {Name: "ExclusiveWriteMemory32", Ret: U32, Args: []Type{U32, U32}, SideEffect: true},

	OpAdd32: {Name: "Add32", Ret: U32, Args: []Type{U32, U32, U1}},
	OpAdd64: {Name: "Add64", Ret: U64, Args: []Type{U64, U64, U1}},
	OpSub32: {Name: "Sub32", Ret: U32, Args: []Type{U32, U32, U1}},
	OpSub64: {Name: "Sub64", Ret: U64, Args: []Type{U64, U64, U1}},
	OpMul32: {Name: "Mul32", Ret: U32, Args: []Type{U32, U32}},
	OpMul64: {Name: "Mul64", Ret: U64, Args: []Type{U64, U64}},
	OpAnd32: {Name: "And32", Ret: U32, Args: []Type{U32, U32}},
	OpEor32: {Name: "Eor32", Ret: U32, Args: []Type{U32, U32}},
	OpOr32:  {Name: "Or32", Ret: U32, Args: []Type{U32, U32}},
	OpNot32: {Name: "Not32", Ret: U32, Args: []Type{U32}},

	OpLogicalShiftLeft32:  {Name: "LogicalShiftLeft32", Ret: U32, Args: []Type{U32, U8, U1}},
	OpLogicalShiftRight32: {Name: "LogicalShiftRight32", Ret: U32, Args: []Type{U32, U8, U1}},
	OpArithShiftRight32:   {Name: "ArithShiftRight32", Ret: U32, Args: []Type{U32, U8, U1}},
	OpRotateRight32:       {Name: "RotateRight32", Ret: U32, Args: []Type{U32, U8, U1}},

	OpGetCarryFromOp:    {Name: "GetCarryFromOp", Ret: U1, Args: []Type{Opaque}, IsCompanion: true},
	OpGetOverflowFromOp: {Name: "GetOverflowFromOp", Ret: U1, Args: []Type{Opaque}, IsCompanion: true},
	OpGetNZCVFromOp:     {Name: "GetNZCVFromOp", Ret: NZCV, Args: []Type{Opaque}, IsCompanion: true},
	OpGetUpperFromOp:    {Name: "GetUpperFromOp", Ret: U32, Args: []Type{Opaque}, IsCompanion: true},
	OpGetLowerFromOp:    {Name: "GetLowerFromOp", Ret: U32, Args: []Type{Opaque}, IsCompanion: true},

	OpNZCVFromPackedFlags: {Name: "NZCVFromPackedFlags", Ret: NZCV, Args: []Type{U32}},
	OpPackedFlagsFromNZCV: {Name: "PackedFlagsFromNZCV", Ret: U32, Args: []Type{NZCV}},

	OpExceptionRaised:      {Name: "ExceptionRaised", Ret: Void, Args: []Type{U32, U64}, SideEffect: true},
	OpCallSupervisor:       {Name: "CallSupervisor", Ret: Void, Args: []Type{U32}, SideEffect: true},
	OpPushRSB:              {Name: "PushRSB", Ret: Void, Args: []Type{Opaque}, SideEffect: true},
	OpUndefinedInstruction: {Name: "UndefinedInstruction", Ret: Void, SideEffect: true},
}

// Signature returns op's static shape. Panics if op is out of range,
// which always indicates a bug in the caller (an invalid Opcode value
// can never arise from the IR builder, which only ever constructs
// Insts through the typed factory methods in frontend.IREmitter).
func (op Opcode) Signature() Signature {
	if op >= opcodeCount {
		panic("ir: opcode out of range")
	}
	return signatures[op]
}

func (op Opcode) String() string { return op.Signature().Name }

// IsSideEffectFree reports whether op may be dropped by dead code
// elimination when it has zero uses.
func (op Opcode) IsSideEffectFree() bool { return !op.Signature().SideEffect }
