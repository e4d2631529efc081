// Package callbacks declares the embedder-supplied interfaces the core
// translate/optimize/emit/dispatch pipeline consumes (spec §6.1-6.2).
// None of these are implemented here — a client program supplies
// concrete implementations backed by its own guest memory and
// supervisor-call handling.
package callbacks

// UserCallbacks is the full set of hooks the JIT calls into while
// translating and executing guest code. A client embeds the
// translator by implementing this interface once and passing it to
// jit.New.
type UserCallbacks interface {
	MemoryCallbacks
	// CallSVC delivers a guest supervisor-call trap with the decoded
	// SWI immediate.
	CallSVC(swi uint32)
	// AddTicks accounts n guest cycles against the embedder's own
	// cycle budget (A64 cycle accounting; spec §6.1).
	AddTicks(n uint64)
	// GetTicksRemaining reports the embedder's outstanding cycle
	// budget. The jit dispatcher does not call it (nor AddTicks); it
	// stops on the JIT's own CyclesRemaining counter alone.
	GetTicksRemaining() uint64
	// InterpreterFallback executes exactly one guest instruction
	// through a reference interpreter at pc, used by the Interpret
	// terminal. userArg is opaque data threaded through from the
	// embedder's Jit construction.
	InterpreterFallback(pc uint64, userArg any)
}

// MemoryCallbacks is the memory-access surface the translator
// (instruction fetch) and ConstantPropagation (read-only loads) call
// through. Emitted host code does not call it: guest data accesses are
// direct loads/stores at JitState.MemBase. Implementations may assume vaddr has
// already been validated against the embedder's own address space;
// out-of-range or faulting accesses are the embedder's concern (spec
// §1 Non-goals: "emulating guest MMU page-fault semantics beyond what
// the callbacks expose").
type MemoryCallbacks interface {
	// MemoryReadCode fetches a 4-byte-aligned, little-endian
	// instruction word for decoding.
	MemoryReadCode(vaddr uint64) uint32

	MemoryRead8(vaddr uint64) uint8
	MemoryRead16(vaddr uint64) uint16
	MemoryRead32(vaddr uint64) uint32
	MemoryRead64(vaddr uint64) uint64

	MemoryWrite8(vaddr uint64, value uint8)
	MemoryWrite16(vaddr uint64, value uint16)
	MemoryWrite32(vaddr uint64, value uint32)
	MemoryWrite64(vaddr uint64, value uint64)

	// IsReadOnlyMemory reports whether the byte at vaddr can never be
	// written by the guest for the remaining lifetime of the Jit. A
	// conservative false is always safe; true enables
	// ConstantPropagation to fold loads from that address (spec §4.4,
	// §6.1).
	IsReadOnlyMemory(vaddr uint64) bool
}

// PreCodeTranslationHook is an optional embedder instrumentation
// interface taking the instruction set (isThumb) and guest pc. It
// receives no IR emitter, and frontend.Translate does not call it.
type PreCodeTranslationHook interface {
	PreCodeTranslationHook(isThumb bool, pc uint64)
}

// PageTable describes a flat guest page table (spec §6.2) with
// PageBits fixed at 12 (4KiB pages). Nothing in this module reads it:
// the jit and backend/x64 packages reach guest data only through
// JitState.MemBase.
type PageTable struct {
	// Pages holds one entry per 4KiB guest page, indexed by
	// vaddr>>12.
	Pages []unsafePointer
}

// unsafePointer avoids an explicit unsafe import in this package's
// public surface; no package in this module dereferences these.
type unsafePointer = uintptr
