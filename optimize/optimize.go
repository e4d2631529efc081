// Package optimize runs the fixed optimizer pipeline over a
// translated Block before it reaches the register allocator (spec
// §4.4): GetSetElimination, ConstantPropagation, DeadCodeElimination,
// then VerificationPass. Order is load-bearing — GetSetElimination
// creates the dead GetRegister reads that DCE later removes
// (SetRegister has a side effect and is kept), and ConstantPropagation
// can only fold loads once
// GetSetElimination has exposed the stored value.
package optimize

import "armjit/ir"

// Callbacks narrows callbacks.UserCallbacks to the read-only predicate
// and the two memory reads ConstantPropagation needs, avoiding an
// import cycle between optimize
// and callbacks.
type Callbacks interface {
	IsReadOnlyMemory(vaddr uint64) bool
	MemoryRead8(vaddr uint64) uint8
	MemoryRead32(vaddr uint64) uint32
}

// Pipeline runs the full fixed-order optimizer pass sequence over
// block, then verifies its invariants. cb may be nil, in which case
// ConstantPropagation's read-only-memory folding step is skipped.
func Pipeline(block *ir.Block, cb Callbacks) {
	GetSetElimination(block)
	if cb != nil {
		ConstantPropagation(block, cb)
	}
	DeadCodeElimination(block)
	VerificationPass(block)
}
