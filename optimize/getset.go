package optimize

import "armjit/ir"

// elimPair names one Get/Set pseudo-location pair eliminated by
// GetSetElimination. keyed pairs (register files) use the first
// operand's register index as the storage key; unkeyed pairs (the
// single-valued flag/Cpsr pseudo-locations) share one key.
type elimPair struct {
	get, set ir.Opcode
	keyed    bool
}

var elimPairs = []elimPair{
	{ir.OpGetRegister, ir.OpSetRegister, true},
	{ir.OpGetW, ir.OpSetW, true},
	{ir.OpGetX, ir.OpSetX, true},
	{ir.OpGetCpsr, ir.OpSetCpsr, false},
	{ir.OpGetNFlag, ir.OpSetNFlag, false},
	{ir.OpGetZFlag, ir.OpSetZFlag, false},
	{ir.OpGetCFlag, ir.OpSetCFlag, false},
	{ir.OpGetVFlag, ir.OpSetVFlag, false},
}

type slotKey struct {
	get ir.Opcode
	key uint8
}

// GetSetElimination forwards each GetRegister/GetCpsr/GetFlag read to
// the value most recently written by an earlier SetRegister/SetCpsr/
// SetFlag of the same pseudo-location within this block, rewriting
// every consumer of the read to use that value directly (spec §4.4).
// The now-unreferenced Get instruction is left for DeadCodeElimination
// to remove, since it is side-effect-free once unused.
func GetSetElimination(block *ir.Block) {
	getRule := make(map[ir.Opcode]elimPair, len(elimPairs))
	setRule := make(map[ir.Opcode]elimPair, len(elimPairs))
	for _, p := range elimPairs {
		getRule[p.get] = p
		setRule[p.set] = p
	}

	insts := block.Instructions()
	last := make(map[slotKey]ir.Value)

	for _, inst := range insts {
		op := inst.Opcode()
		if p, ok := setRule[op]; ok {
			var key uint8
			var val ir.Value
			if p.keyed {
				key = inst.Arg(0).Reg()
				val = inst.Arg(1)
			} else {
				val = inst.Arg(0)
			}
			last[slotKey{p.get, key}] = val
			continue
		}
		if p, ok := getRule[op]; ok {
			var key uint8
			if p.keyed {
				key = inst.Arg(0).Reg()
			}
			if v, ok := last[slotKey{op, key}]; ok {
				ir.ReplaceAllUsesWith(insts, inst, v)
			}
		}
	}
}
