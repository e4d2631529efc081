package optimize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"armjit/ir"
)

type fakeCallbacks struct {
	readOnly map[uint64]bool
	mem      map[uint64]uint8
}

func (f *fakeCallbacks) IsReadOnlyMemory(vaddr uint64) bool { return f.readOnly[vaddr] }
func (f *fakeCallbacks) MemoryRead8(vaddr uint64) uint8     { return f.mem[vaddr] }
func (f *fakeCallbacks) MemoryRead32(vaddr uint64) uint32 {
	return uint32(f.mem[vaddr]) | uint32(f.mem[vaddr+1])<<8 | uint32(f.mem[vaddr+2])<<16 | uint32(f.mem[vaddr+3])<<24
}

func newTestBlock() *ir.Block {
	return ir.NewBlock(ir.NewA32(0, false, ir.LittleEndian, ir.FPRoundNearest, 0))
}

func TestGetSetEliminationForwardsStoredValue(t *testing.T) {
	block := newTestBlock()
	e := &irBuilder{block}

	stored := ir.ImmU32(42)
	e.setReg(0, stored)
	got := e.getReg(0)
	e.setReg(1, got) // consumer of the forwarded value

	GetSetElimination(block)
	DeadCodeElimination(block)

	block.SetTerminal(ir.ReturnToDispatch())
	VerificationPass(block)

	for _, inst := range block.Instructions() {
		require.NotEqual(t, ir.OpGetRegister, inst.Opcode(), "forwarded GetRegister should have been eliminated")
	}
}

func TestConstantPropagationFoldsReadOnlyLoad(t *testing.T) {
	block := newTestBlock()
	e := &irBuilder{block}

	addr := ir.ImmU32(0x1000)
	loaded := e.readMem32(addr)
	e.setReg(0, loaded)

	cb := &fakeCallbacks{readOnly: map[uint64]bool{0x1000: true}, mem: map[uint64]uint8{0x1000: 0xEF, 0x1001: 0xBE, 0x1002: 0xAD, 0x1003: 0xDE}}
	ConstantPropagation(block, cb)
	DeadCodeElimination(block)
	block.SetTerminal(ir.ReturnToDispatch())
	VerificationPass(block)

	for _, inst := range block.Instructions() {
		require.NotEqual(t, ir.OpReadMemory32, inst.Opcode())
		if inst.Opcode() == ir.OpSetRegister {
			require.Equal(t, uint32(0xDEADBEEF), inst.Arg(1).U32())
		}
	}
}

// irBuilder is a minimal local helper so these tests don't need the
// frontend package's full emitter.
type irBuilder struct {
	block *ir.Block
}

func (b *irBuilder) setReg(reg uint8, v ir.Value) {
	b.block.Append(ir.NewInst(ir.OpSetRegister, ir.ImmA32Reg(reg), v))
}

func (b *irBuilder) getReg(reg uint8) ir.Value {
	return ir.ValueFromInst(b.block.Append(ir.NewInst(ir.OpGetRegister, ir.ImmA32Reg(reg))))
}

func (b *irBuilder) readMem32(addr ir.Value) ir.Value {
	return ir.ValueFromInst(b.block.Append(ir.NewInst(ir.OpReadMemory32, addr)))
}
