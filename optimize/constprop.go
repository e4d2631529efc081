package optimize

import "armjit/ir"

// ConstantPropagation folds a memory load from a literal address into
// an immediate when the embedder reports that address as read-only
// for the Jit's lifetime (spec §4.4, §6.1). Unlike a load whose result
// merely goes unused, a folded read-only load is safe to remove
// outright — by definition its value can never change and the guest
// cannot observe the host skipping the access — so this pass deletes
// the original Inst rather than leaving it for DeadCodeElimination.
func ConstantPropagation(block *ir.Block, cb Callbacks) {
	insts := block.Instructions()

	type fold struct {
		index int
		value ir.Value
	}
	var folds []fold

	for i, inst := range insts {
		switch inst.Opcode() {
		case ir.OpReadMemory8:
			if v, ok := foldRead8(inst, cb); ok {
				folds = append(folds, fold{i, v})
			}
		case ir.OpReadMemory16:
			if v, ok := foldRead16(inst, cb); ok {
				folds = append(folds, fold{i, v})
			}
		case ir.OpReadMemory32:
			if v, ok := foldRead32(inst, cb); ok {
				folds = append(folds, fold{i, v})
			}
		}
	}

	for k := len(folds) - 1; k >= 0; k-- {
		f := folds[k]
		cur := block.Instructions()
		inst := cur[f.index]
		ir.ReplaceAllUsesWith(cur, inst, f.value)
		block.RemoveAt(f.index)
	}
}

func foldRead8(inst *ir.Inst, cb Callbacks) (ir.Value, bool) {
	addr := inst.Arg(0)
	if !addr.IsImmediate() {
		return ir.Value{}, false
	}
	vaddr := uint64(addr.U32())
	if !cb.IsReadOnlyMemory(vaddr) {
		return ir.Value{}, false
	}
	return ir.ImmU8(cb.MemoryRead8(vaddr)), true
}

func foldRead16(inst *ir.Inst, cb Callbacks) (ir.Value, bool) {
	addr := inst.Arg(0)
	if !addr.IsImmediate() {
		return ir.Value{}, false
	}
	vaddr := uint64(addr.U32())
	if !cb.IsReadOnlyMemory(vaddr) || !cb.IsReadOnlyMemory(vaddr+1) {
		return ir.Value{}, false
	}
	lo := uint16(cb.MemoryRead8(vaddr))
	hi := uint16(cb.MemoryRead8(vaddr + 1))
	return ir.ImmU16(lo | hi<<8), true
}

func foldRead32(inst *ir.Inst, cb Callbacks) (ir.Value, bool) {
	addr := inst.Arg(0)
	if !addr.IsImmediate() {
		return ir.Value{}, false
	}
	vaddr := uint64(addr.U32())
	if !cb.IsReadOnlyMemory(vaddr) {
		return ir.Value{}, false
	}
	return ir.ImmU32(cb.MemoryRead32(vaddr)), true
}
