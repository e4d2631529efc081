package x64

import (
	"fmt"

	"armjit/ir"
)

// LockState is the allocator's 4-valued per-location state machine,
// resolved against original_source's HostLocState (richer than the
// simpler 2-bit sketch in the distilled spec): Idle (free), Def (just
// defined this instruction, not yet consumable by a later one until
// the current emitter finishes), Use (currently read by the
// instruction being emitted), Scratch (borrowed for the duration of
// one emitter call, never holds a live SSA value).
type LockState uint8

const (
	Idle LockState = iota
	Def
	Use
	Scratch
)

// HostLocInfo tracks one HostLoc's residency: which Inst's value (if
// any) currently lives there, how many of that value's uses remain
// unconsumed, and its lock state for the instruction currently being
// emitted.
type HostLocInfo struct {
	Loc     HostLoc
	Value   *ir.Inst // nil if this location is free
	Uses    int      // remaining uses of Value not yet consumed
	MaxBits int
	State   LockState
}

func (h *HostLocInfo) isOccupied() bool { return h.Value != nil }

// spillSlotCount bounds the fixed-size spill area
// reserved in JitState for values the allocator cannot keep resident
// (spec §4.5).
const spillSlotCount = 32

// RegAlloc performs linear-scan allocation for a single Block's worth
// of Insts, assigning each a HostLoc and emitting no code itself — it
// hands back decisions that the opcode emitters (spec §4.7) turn into
// machine code via BlockOfCode.
type RegAlloc struct {
	gprs  [16]HostLocInfo
	xmms  [16]HostLocInfo
	flags [6]HostLocInfo

	spillOwner [spillSlotCount]*ir.Inst

	// valueLoc maps a live Inst to the HostLoc its value currently
	// resides in; a spilled Inst is removed from it and recorded in
	// spillLoc with its slot index instead.
	valueLoc map[*ir.Inst]HostLoc
	spillLoc map[*ir.Inst]int
}

// NewRegAlloc creates an allocator with every GPR/XMM/flag free except
// the reserved RSP/R15 pair.
func NewRegAlloc() *RegAlloc {
	r := &RegAlloc{
		valueLoc: make(map[*ir.Inst]HostLoc),
		spillLoc: make(map[*ir.Inst]int),
	}
	for i := range r.gprs {
		r.gprs[i] = HostLocInfo{Loc: HostLoc(RAX) + HostLoc(i)}
	}
	for i := range r.xmms {
		r.xmms[i] = HostLocInfo{Loc: XMM0 + HostLoc(i)}
	}
	for i := range r.flags {
		r.flags[i] = HostLocInfo{Loc: FlagCF + HostLoc(i)}
	}
	return r
}

func (r *RegAlloc) gprInfo(loc HostLoc) *HostLocInfo { return &r.gprs[loc-RAX] }
func (r *RegAlloc) xmmInfo(loc HostLoc) *HostLocInfo { return &r.xmms[loc-XMM0] }

// DefineValue records that inst's result now lives in loc with
// exactly inst.UseCount() outstanding uses.
func (r *RegAlloc) DefineValue(inst *ir.Inst, loc HostLoc) {
	r.valueLoc[inst] = loc
	info := r.infoFor(loc)
	info.Value = inst
	info.Uses = inst.UseCount()
	info.State = Def
}

func (r *RegAlloc) infoFor(loc HostLoc) *HostLocInfo {
	switch {
	case loc.IsGpr():
		return r.gprInfo(loc)
	case loc.IsXmm():
		return r.xmmInfo(loc)
	case loc.IsFlag():
		return &r.flags[loc-FlagCF]
	default:
		panic("x64: invalid HostLoc")
	}
}

// UseGpr returns the GPR currently holding value's result, consuming
// one use. Panics (a compiler bug, not a runtime condition) if value
// was never defined or is already out of uses.
func (r *RegAlloc) UseGpr(value *ir.Inst) HostLoc {
	loc, ok := r.valueLoc[value]
	if !ok {
		panic(fmt.Sprintf("x64: UseGpr: %s has no allocated location", value.Opcode()))
	}
	info := r.infoFor(loc)
	if info.Uses <= 0 {
		panic(fmt.Sprintf("x64: UseGpr: %s has no uses remaining", value.Opcode()))
	}
	info.Uses--
	info.State = Use
	if info.Uses == 0 {
		info.Value = nil
		info.State = Idle
		delete(r.valueLoc, value)
	}
	return loc
}

// UseScratchGpr returns a fresh scratch register together with the
// GPR currently holding value, for opcodes whose x86 encoding
// destructively overwrites its source operand (spec §4.5). It emits no
// copy (the caller moves source into scratch) and, unlike UseGpr, does
// not consume a use of value, leaving the original binding intact.
func (r *RegAlloc) UseScratchGpr(value *ir.Inst) (scratch HostLoc, source HostLoc) {
	source, ok := r.valueLoc[value]
	if !ok {
		panic(fmt.Sprintf("x64: UseScratchGpr: %s has no allocated location", value.Opcode()))
	}
	scratch = r.ScratchGpr()
	return scratch, source
}

// ScratchGpr reserves a free GPR for the emitter's exclusive use for
// the duration of the current instruction, never aliasing a live SSA
// value.
func (r *RegAlloc) ScratchGpr() HostLoc {
	for i := range r.gprs {
		loc := r.gprs[i].Loc
		if reservedGprs[loc] {
			continue
		}
		if !r.gprs[i].isOccupied() {
			r.gprs[i].State = Scratch
			return loc
		}
	}
	panic("x64: ScratchGpr: no free GPR (ErrAllocationExhausted)")
}

// UseDefGpr allocates a location for a result that reuses the same
// register as one of its operands (an "early use, late def" pattern:
// the source's last use and the destination's definition share a
// register, matching x86's two-operand instruction shape). Caller
// must ensure value's use count was exactly 1 before this call.
func (r *RegAlloc) UseDefGpr(value *ir.Inst, result *ir.Inst) HostLoc {
	loc := r.UseGpr(value)
	r.DefineValue(result, loc)
	return loc
}

// HostCall reserves the System V AMD64 integer argument registers
// (RDI, RSI, RDX, RCX, R8, R9) for a call to embedder callback code,
// spilling any live value currently resident in one of them. Returns
// the argument registers in calling-convention order.
func (r *RegAlloc) HostCall(argc int) []HostLoc {
	order := []HostLoc{RDI, RSI, RDX, RCX, R8, R9}
	if argc > len(order) {
		panic("x64: HostCall: more arguments than the System V register budget")
	}
	for _, loc := range order[:argc] {
		info := r.gprInfo(loc)
		if info.isOccupied() {
			r.spill(info)
		}
	}
	return order[:argc]
}

func (r *RegAlloc) spill(info *HostLocInfo) {
	for slot, owner := range r.spillOwner {
		if owner == nil {
			r.spillOwner[slot] = info.Value
			r.spillLoc[info.Value] = slot
			delete(r.valueLoc, info.Value)
			info.Value = nil
			info.State = Idle
			return
		}
	}
	panic("x64: spill: no free spill slot (ErrAllocationExhausted)")
}

// EndOfAllocScope releases every Scratch-, Use- and Def-locked location
// back to Idle once the current instruction's emitter has finished,
// matching the
// teacher's per-instruction allocation scope convention.
func (r *RegAlloc) EndOfAllocScope() {
	for i := range r.gprs {
		if r.gprs[i].State == Scratch || r.gprs[i].State == Use || r.gprs[i].State == Def {
			if r.gprs[i].Value == nil {
				r.gprs[i].State = Idle
			} else {
				r.gprs[i].State = Idle
			}
		}
	}
	for i := range r.xmms {
		if r.xmms[i].State != Idle && r.xmms[i].Value == nil {
			r.xmms[i].State = Idle
		}
	}
}

// AssertNoMoreUses panics if any tracked value still has outstanding
// uses after the block has been fully emitted — an exact-use-count
// violation is always a register-allocator bug (spec §8).
func (r *RegAlloc) AssertNoMoreUses() {
	for inst, loc := range r.valueLoc {
		info := r.infoFor(loc)
		if info.Uses > 0 {
			panic(fmt.Sprintf("x64: AssertNoMoreUses: %s still has %d uses at end of block", inst.Opcode(), info.Uses))
		}
	}
}
