package jit

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"armjit/backend/x64"
	"armjit/callbacks"
	"armjit/ir"
)

// Jit is the public facade wiring together the compiler, code cache,
// profiler, and host execution state into the translate/optimize/emit/
// dispatch pipeline (spec §4.2). It is the one type embedders
// construct directly; everything else in this package is reached
// through it.
type Jit struct {
	cfg      *Config
	cb       callbacks.UserCallbacks
	userArg  any
	code     *x64.BlockOfCode
	cache    *CodeCache
	profiler *BlockProfiler
	compiler *Compiler
	state    *x64.JitState

	loc     ir.LocationDescriptor
	running int32
}

// New constructs a Jit. memBase is the host address guest address 0
// maps to (JitState.MemBase, spec §6.2's flat-mapping special case);
// userArg is opaque data threaded through to
// UserCallbacks.InterpreterFallback.
func New(cb callbacks.UserCallbacks, memBase uintptr, userArg any, opts ...Option) (*Jit, error) {
	cfg := newConfig(opts)
	code, err := x64.NewBlockOfCode()
	if err != nil {
		return nil, fmt.Errorf("jit: new: %w", err)
	}

	cache := NewCodeCache()
	profiler := NewBlockProfiler()
	compiler := NewCompiler(code, cb, cache, profiler)
	compiler.maxInsns = cfg.maxInstructions

	state := &x64.JitState{MemBase: memBase}

	return &Jit{
		cfg:      cfg,
		cb:       cb,
		userArg:  userArg,
		code:     code,
		cache:    cache,
		profiler: profiler,
		compiler: compiler,
		state:    state,
	}, nil
}

// Close releases the executable memory arena.
func (j *Jit) Close() error { return j.code.Close() }

// SetPC sets the guest location execution resumes from on the next
// Run/Step call.
func (j *Jit) SetPC(loc ir.LocationDescriptor) { j.loc = loc }

// PC returns the guest location execution will resume from.
func (j *Jit) PC() ir.LocationDescriptor { return j.loc }

// GetRegister reads guest A32/Thumb register n (R0-R15). A64 X
// registers are held separately and are not read by this accessor.
func (j *Jit) GetRegister(n uint8) uint32 { return j.state.Regs[n] }

// SetRegister writes guest register n.
func (j *Jit) SetRegister(n uint8, v uint32) { j.state.Regs[n] = v }

// GetFlags returns the unpacked NZCV condition flags.
func (j *Jit) GetFlags() (n, z, c, v bool) {
	return j.state.NFlag != 0, j.state.ZFlag != 0, j.state.CFlag != 0, j.state.VFlag != 0
}

// SetFlags sets the unpacked NZCV condition flags.
func (j *Jit) SetFlags(n, z, c, v bool) {
	j.state.NFlag, j.state.ZFlag, j.state.CFlag, j.state.VFlag = boolByte(n), boolByte(z), boolByte(c), boolByte(v)
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// IsExecuting reports whether Run or Step is currently on the call
// stack of some goroutine — an embedder's CallSVC or
// InterpreterFallback callback must not call Run/Step again while
// this is true (spec §6.3's "Run is not reentrant" note).
func (j *Jit) IsExecuting() bool { return atomic.LoadInt32(&j.running) != 0 }

// HaltExecution requests that the dispatcher stop at the next
// TermCheckHalt boundary (the normal path is the embedder's CallSVC
// setting Halted from inside a callback, but this lets an embedder
// halt from outside the execution call stack too, e.g. another
// goroutine or a signal handler).
func (j *Jit) HaltExecution() { j.state.Halted = 1 }

// ClearCache discards every compiled block and resets the underlying
// code arena, forcing full re-translation on the next dispatch (spec
// §4.9). Must not be called while IsExecuting.
func (j *Jit) ClearCache() {
	j.cache.Clear()
	j.profiler.Reset()
	j.code.ResetNear()
}

// InvalidateCacheRange evicts every cached block whose entry PC falls
// in [lowPC, highPC), for guest self-modifying-code support (spec
// §4.9). The freed CompiledBlocks' machine code is left in the arena
// (only ClearCache reclaims it); a later re-translation of the same
// range simply allocates fresh bytes after it.
func (j *Jit) InvalidateCacheRange(lowPC, highPC uint64) {
	j.cache.RemoveRange(lowPC, highPC)
}

// Reset clears cached state and rewinds execution to loc, without
// discarding compiled code (unlike ClearCache). Register and flag
// state is left untouched; callers that want a clean guest state
// reset registers themselves.
func (j *Jit) Reset(loc ir.LocationDescriptor) {
	j.loc = loc
	j.state.Halted = 0
	j.state.RSBIndex = 0
}

// Stats reports the compiler, cache, and profiler's current
// bookkeeping.
type Stats struct {
	JIT     JITStats
	Cache   CacheStats
	Profile ProfilerStats
}

// GetStats returns a snapshot of the JIT's internal statistics.
func (j *Jit) GetStats() Stats {
	return Stats{JIT: j.compiler.GetStats(), Cache: j.cache.GetStats(), Profile: j.profiler.GetStats()}
}

// Disassemble compiles loc if necessary (reusing the cached block if
// one already exists) and returns a human-readable listing of its
// emitted x86-64 machine code (spec §6.3's Disassemble facade).
func (j *Jit) Disassemble(loc ir.LocationDescriptor) (string, error) {
	if err := j.code.EnableWriting(); err != nil {
		return "", fmt.Errorf("jit: disassemble: %w", err)
	}
	compiled, err := j.dispatchCompile(loc)
	if err != nil {
		return "", err
	}
	if err := j.code.DisableWriting(); err != nil {
		return "", fmt.Errorf("jit: disassemble: %w", err)
	}
	code := j.code.BytesAt(compiled.Entry, compiled.Size)
	lines, err := x64.Disassemble(code, compiled.Entry)
	if err != nil {
		return "", fmt.Errorf("jit: disassemble %s: %w", loc, err)
	}
	return x64.FormatListing(lines)
}

// Run dispatches translated blocks starting from the Jit's current PC
// until cycleCount guest cycles have elapsed, a guest halt is
// requested, or a guest exception/undefined-instruction exit occurs.
// It returns the number of cycles actually consumed.
//
// Run is not reentrant: calling it (directly or via Step) from inside
// a CallSVC or InterpreterFallback callback invoked by an
// already-running Jit returns ErrReentrant instead of recursing (spec
// §6.3).
func (j *Jit) Run(cycleCount int64) (int64, error) {
	if !atomic.CompareAndSwapInt32(&j.running, 0, 1) {
		return 0, ErrReentrant
	}
	defer atomic.StoreInt32(&j.running, 0)

	j.state.CyclesRemaining = cycleCount
	j.state.Halted = 0
	start := cycleCount

	for {
		if err := j.code.EnableWriting(); err != nil {
			return start - j.state.CyclesRemaining, fmt.Errorf("jit: run: %w", err)
		}
		compiled, err := j.dispatchCompile(j.loc)
		if err != nil {
			return start - j.state.CyclesRemaining, err
		}

		if err := j.code.DisableWriting(); err != nil {
			return start - j.state.CyclesRemaining, fmt.Errorf("jit: run: %w", err)
		}
		dispatchStart := time.Now()
		x64.RunBlock(compiled.Entry, j.state)
		j.profiler.RecordDispatch(compiled.Hash, time.Since(dispatchStart))

		done, exitErr := j.handleExit()
		if done || exitErr != nil {
			return start - j.state.CyclesRemaining, exitErr
		}
		if j.state.CyclesRemaining <= 0 {
			return start - j.state.CyclesRemaining, nil
		}
	}
}

// Step executes exactly one translated block from the Jit's current
// PC, ignoring cycle budgeting beyond what that single block consumes.
func (j *Jit) Step() error {
	if !atomic.CompareAndSwapInt32(&j.running, 0, 1) {
		return ErrReentrant
	}
	defer atomic.StoreInt32(&j.running, 0)

	j.state.CyclesRemaining = 1 << 62 // effectively unbounded for a single block
	j.state.Halted = 0

	if err := j.code.EnableWriting(); err != nil {
		return fmt.Errorf("jit: step: %w", err)
	}
	compiled, err := j.dispatchCompile(j.loc)
	if err != nil {
		return err
	}
	if err := j.code.DisableWriting(); err != nil {
		return fmt.Errorf("jit: step: %w", err)
	}
	dispatchStart := time.Now()
	x64.RunBlock(compiled.Entry, j.state)
	j.profiler.RecordDispatch(compiled.Hash, time.Since(dispatchStart))

	_, exitErr := j.handleExit()
	return exitErr
}

// dispatchCompile compiles loc, retrying once against a freshly
// cleared cache if the code arena has no room left (ErrCodeBufferFull,
// spec §4.6's "what happens when the near/far region fills").
func (j *Jit) dispatchCompile(loc ir.LocationDescriptor) (*CompiledBlock, error) {
	compiled, err := j.compiler.Compile(loc)
	if err == nil {
		return compiled, nil
	}
	j.cfg.logger.Warn("jit: compile failed, clearing cache and retrying once",
		zap.Uint64("pc", loc.PC), zap.Error(err))
	j.ClearCache()
	compiled, err = j.compiler.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("jit: compile %s after cache clear: %w", loc, err)
	}
	return compiled, nil
}

// handleExit interprets the JitState left behind by the block that
// just returned to Go, advancing j.loc (and, for Interpret/SVC exits,
// calling back into the embedder) as appropriate. It reports done=true
// when the dispatcher loop should stop, and a non-nil error for guest
// faults the embedder must see.
func (j *Jit) handleExit() (done bool, err error) {
	switch j.state.ExitReason {
	case x64.ExitReasonHalt:
		return true, nil

	case x64.ExitReasonLinkBlock:
		if j.state.ExitData != 0 {
			j.loc = ir.DecodeLocation(j.state.ExitData)
		} else {
			j.loc = j.locFromGuestPC()
		}
		return false, nil

	case x64.ExitReasonPopRSB:
		// No frontend rule currently emits a PushRSB companion, so the
		// RSB ring in JitState is always empty; falling back to a full
		// LocationDescriptor derivation from the guest PC register is
		// functionally correct, just never faster than a normal link.
		j.loc = j.locFromGuestPC()
		return false, nil

	case x64.ExitReasonInterpret:
		next := ir.DecodeLocation(j.state.ExitData)
		j.cb.InterpreterFallback(next.PC, j.userArg)
		j.loc = next
		return false, nil

	case x64.ExitReasonSupervisorCall:
		// No current A32/Thumb rule emits OpCallSupervisor as a
		// block-terminating instruction, so this exit reason is never
		// produced by this module's frontend yet; handled here so a
		// future SWI-decoding rule only needs to mark its block
		// terminal, not touch the dispatcher.
		j.cb.CallSVC(uint32(j.state.ExitData))
		j.loc = j.locFromGuestPC()
		return false, nil

	case x64.ExitReasonUndefined:
		return true, &GuestException{Kind: GuestExceptionUndefinedInstruction, PC: j.loc.PC}

	case x64.ExitReasonException:
		return true, &GuestException{Kind: GuestExceptionRaised, PC: j.loc.PC}

	default:
		return true, fmt.Errorf("jit: unknown exit reason %d", j.state.ExitReason)
	}
}

// locFromGuestPC rebuilds a LocationDescriptor from the guest PC
// register for exits that leave the target in JitState.Regs[15]
// (dynamic branches) rather than in ExitData (statically known
// targets). Thumb interworking is resolved by the target address's
// low bit, matching BX's guest-visible semantics; the bit itself is
// then cleared from PC the same way a real core would.
func (j *Jit) locFromGuestPC() ir.LocationDescriptor {
	target := j.state.Regs[15]
	thumb := target&1 != 0
	if thumb {
		target &^= 1
	} else {
		target &^= 3
	}
	return ir.NewA32(target, thumb, j.loc.Endian, j.loc.FPFlags, 0)
}
