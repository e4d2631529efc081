package optimize

import (
	"fmt"

	"armjit/ir"
)

// Verify gates VerificationPass; set false in release builds to skip
// the O(n) use-count re-scan. A client embedding this module as a
// library flips this off once its own test suite has validated the
// optimizer pipeline against its workload.
var Verify = true

// VerificationPass re-derives every Inst's use count from scratch and
// panics if it disagrees with the incrementally-maintained count, or
// if a side-effect-free Inst with zero uses survived
// DeadCodeElimination, or if the block's terminal was left Invalid
// (spec §8's structural invariants). A violation here is always a
// pipeline bug, never a guest-code condition, so it panics rather than
// returning an error.
func VerificationPass(block *ir.Block) {
	if !Verify {
		return
	}

	if !block.Terminal().IsValid() {
		panic("optimize: block terminal is Invalid after optimization")
	}

	insts := block.Instructions()
	counted := make(map[*ir.Inst]int, len(insts))
	for _, inst := range insts {
		for _, a := range inst.Args() {
			if ref := a.Inst(); ref != nil {
				counted[ref]++
			}
		}
	}

	for _, inst := range insts {
		if got, want := counted[inst], inst.UseCount(); got != want {
			panic(fmt.Sprintf("optimize: %s use count mismatch: tracked %d, recomputed %d", inst.Opcode(), want, got))
		}
		if inst.IsDead() {
			panic(fmt.Sprintf("optimize: side-effect-free dead instruction %s survived DeadCodeElimination", inst.Opcode()))
		}
	}
}
