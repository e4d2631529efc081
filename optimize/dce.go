package optimize

import "armjit/ir"

// DeadCodeElimination removes every side-effect-free Inst with zero
// uses in a single reverse sweep (spec §4.4 design note: "single
// reverse pass suffices because removal can only zero earlier uses").
// Removing instruction i can only decrement the use counts of
// instructions that appear before it in program order, so walking
// back-to-front naturally revisits any instruction that just became
// dead before this pass moves past it.
func DeadCodeElimination(block *ir.Block) {
	for i := block.Len() - 1; i >= 0; i-- {
		insts := block.Instructions()
		if i >= len(insts) {
			continue
		}
		if insts[i].IsDead() {
			block.RemoveAt(i)
		}
	}
}
