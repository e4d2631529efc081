package ir

// Block owns a linearly ordered sequence of Insts and exactly one
// Terminal (spec §3.3). It is created by the translator, mutated by
// optimizer passes, frozen before emission, and discarded when its
// host code is evicted from the cache.
type Block struct {
	location    LocationDescriptor
	endLocation LocationDescriptor
	cycleCount  int

	// entryCond and condFailLocation are only meaningful for A32: the
	// block's single shared entry condition (spec §4.2) and the PC to
	// fall through to when that condition fails at runtime.
	hasEntryCond     bool
	entryCond        uint8
	condFailLocation LocationDescriptor

	insts    []*Inst
	terminal Terminal
	frozen   bool
}

// NewBlock creates an empty block starting at start. Its terminal is
// Invalid until SetTerminal is called.
func NewBlock(start LocationDescriptor) *Block {
	return &Block{location: start, endLocation: start, terminal: Invalid()}
}

func (b *Block) Location() LocationDescriptor    { return b.location }
func (b *Block) EndLocation() LocationDescriptor { return b.endLocation }
func (b *Block) CycleCount() int                 { return b.cycleCount }
func (b *Block) Terminal() Terminal              { return b.terminal }
func (b *Block) Instructions() []*Inst           { return b.insts }
func (b *Block) Len() int                        { return len(b.insts) }

// EntryCond returns the block's shared entry condition and whether one
// is set (always false for A64 and for unconditional A32 blocks).
func (b *Block) EntryCond() (cond uint8, ok bool) { return b.entryCond, b.hasEntryCond }

// CondFailLocation returns where execution continues if the entry
// condition fails at runtime. Only meaningful when EntryCond is set.
func (b *Block) CondFailLocation() LocationDescriptor { return b.condFailLocation }

// SetEntryCond records the block's shared condition and its
// fallthrough location (spec §4.2: set when the first conditional
// instruction is seen while in ConditionalState None).
func (b *Block) SetEntryCond(cond uint8, failLoc LocationDescriptor) {
	b.mustNotFrozen()
	b.hasEntryCond = true
	b.entryCond = cond
	b.condFailLocation = failLoc
}

// Append adds inst as the next instruction in program order.
func (b *Block) Append(inst *Inst) *Inst {
	b.mustNotFrozen()
	b.insts = append(b.insts, inst)
	return inst
}

// AdvanceCycle advances the block's end location by n bytes (2 for a
// Thumb16 instruction, 4 otherwise) and increments the cycle counter by
// one guest instruction, per spec §4.2 step 5.
func (b *Block) AdvanceCycle(instrSizeBytes uint64) {
	b.mustNotFrozen()
	b.endLocation = b.endLocation.AdvancePC(instrSizeBytes)
	b.cycleCount++
}

// SetTerminal installs the block's terminal. Must be called exactly
// once before Freeze; calling it twice indicates a translator bug (two
// control-flow instructions claiming to end the same block).
func (b *Block) SetTerminal(t Terminal) {
	b.mustNotFrozen()
	if b.terminal.IsValid() {
		panic("ir: block terminal already set")
	}
	b.terminal = t
}

// ReplaceTerminal overwrites an already-set terminal; optimizer passes
// that rewrite control flow (none currently do, but the allocator's
// terminal emitter may need to specialize LinkBlock vs LinkBlockFast
// late) use this instead of SetTerminal's "exactly once" guard.
func (b *Block) ReplaceTerminal(t Terminal) {
	b.mustNotFrozen()
	b.terminal = t
}

// RemoveAt deletes the instruction at index n, decrementing the use
// count of every operand it referenced. DeadCodeElimination calls this
// during its reverse sweep; spec §4.4 notes "single reverse pass
// suffices because removal can only zero earlier uses", which is why
// this does not need to re-scan for newly-dead instructions itself —
// the caller's reverse loop naturally visits them next.
func (b *Block) RemoveAt(n int) {
	b.mustNotFrozen()
	inst := b.insts[n]
	for _, a := range inst.args {
		if ref := a.Inst(); ref != nil {
			ref.RemoveUse()
		}
	}
	b.insts = append(b.insts[:n], b.insts[n+1:]...)
}

// Freeze marks the block immutable; called once translation and
// optimization are complete, before the register allocator and emitter
// see it. Mutating methods panic after this point, which catches an
// optimizer pass accidentally running twice or a pass ordering bug.
func (b *Block) Freeze() { b.frozen = true }

func (b *Block) Frozen() bool { return b.frozen }

func (b *Block) mustNotFrozen() {
	if b.frozen {
		panic("ir: mutation of a frozen block")
	}
}
