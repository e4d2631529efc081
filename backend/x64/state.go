package x64

import "unsafe"

// JitState is the fixed-layout struct a running translation addresses
// through R15 (spec §4.4's "context pointer" design note). Its field
// offsets, not its Go-level field names, are what emitted code
// actually depends on — every load/store emitter in emit_opcode.go
// computes its displacement via unsafe.Offsetof against this struct
// rather than a hand-maintained constant table, so the two can never
// drift apart.
//
// Guest condition flags are kept unpacked (one byte each) rather than
// packed into a single CPSR word, mirroring how the IR's
// PackedFlagsFromNZCV/NZCVFromPackedFlags opcodes model the two
// representations as an explicit, occasionally-needed conversion
// rather than the steady state.
type JitState struct {
	Regs [16]uint32 // guest R0-R15 (A32/Thumb)

	// XRegs holds the A64 general-purpose register file, X0-X30 plus
	// index 31 (context-dependent: SP in most instruction classes, the
	// zero register XZR/WZR in others). This module's A64 rules don't
	// yet distinguish the two uses of index 31; see frontend/a64.
	XRegs [32]uint64

	NFlag uint8
	ZFlag uint8
	CFlag uint8
	VFlag uint8

	Cpsr uint32 // packed form, valid only around NZCVFromPackedFlags/PackedFlagsFromNZCV

	CyclesRemaining int64
	Halted          uint8

	// MemBase is the host address a guest address 0 maps to, under the
	// flat-mapping special case of the PageTable scheme (see
	// emit_opcode.go's package doc for the scope this narrows).
	MemBase uintptr

	RSB      [rsbDepth]rsbEntry
	RSBIndex uint8

	ExitReason uint32
	ExitData   uint64
}

// rsbDepth matches spec §4.9's return-stack-buffer size.
const rsbDepth = 8

type rsbEntry struct {
	LocationHash uint64
	HostCodePtr  uintptr
}

// Field offsets into JitState, used by every emitter that addresses
// memory relative to R15.
var (
	OffsetRegs            = int32(unsafe.Offsetof(JitState{}.Regs))
	OffsetXRegs            = int32(unsafe.Offsetof(JitState{}.XRegs))
	OffsetNFlag            = int32(unsafe.Offsetof(JitState{}.NFlag))
	OffsetZFlag            = int32(unsafe.Offsetof(JitState{}.ZFlag))
	OffsetCFlag            = int32(unsafe.Offsetof(JitState{}.CFlag))
	OffsetVFlag            = int32(unsafe.Offsetof(JitState{}.VFlag))
	OffsetCpsr             = int32(unsafe.Offsetof(JitState{}.Cpsr))
	OffsetCyclesRemaining  = int32(unsafe.Offsetof(JitState{}.CyclesRemaining))
	OffsetHalted           = int32(unsafe.Offsetof(JitState{}.Halted))
	OffsetMemBase          = int32(unsafe.Offsetof(JitState{}.MemBase))
	OffsetRSB              = int32(unsafe.Offsetof(JitState{}.RSB))
	OffsetRSBIndex         = int32(unsafe.Offsetof(JitState{}.RSBIndex))
	OffsetExitReason       = int32(unsafe.Offsetof(JitState{}.ExitReason))
	OffsetExitData         = int32(unsafe.Offsetof(JitState{}.ExitData))
)

// OffsetRegister returns the displacement of guest register n.
func OffsetRegister(n uint8) int32 { return OffsetRegs + 4*int32(n) }

// OffsetXRegister returns the displacement of guest X register n (A64).
func OffsetXRegister(n uint8) int32 { return OffsetXRegs + 8*int32(n) }

// Exit reasons a block can leave in JitState.ExitReason when it
// returns control to the dispatcher loop instead of falling through a
// linked block (spec §4.9's terminal table, realized here as a Go-side
// dispatch rather than inline jump-patching — see DESIGN.md).
const (
	ExitReasonLinkBlock uint32 = iota
	ExitReasonPopRSB
	ExitReasonInterpret
	ExitReasonHalt
	ExitReasonUndefined
	ExitReasonSupervisorCall
	ExitReasonException
)
