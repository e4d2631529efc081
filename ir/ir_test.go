package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocationDescriptorEncodeRoundTrip(t *testing.T) {
	loc := NewA32(0x8000, true, LittleEndian, FPRoundNearest, 0x5A)
	got := DecodeLocation(loc.Encode())
	require.Equal(t, loc, got)
}

func TestLocationDescriptorAdvancePCPreservesMode(t *testing.T) {
	loc := NewA32(0x1000, true, BigEndian, 0, 0)
	next := loc.AdvancePC(2)
	require.Equal(t, uint64(0x1002), next.PC)
	require.Equal(t, loc.ISA, next.ISA)
	require.Equal(t, loc.Endian, next.Endian)
}

func TestNewInstTypeChecksArgs(t *testing.T) {
	require.Panics(t, func() {
		NewInst(OpSetRegister, ImmU32(1), ImmU32(2)) // first arg should be A32Reg, not U32
	})
}

func TestNewInstTracksUseCounts(t *testing.T) {
	reg := NewInst(OpGetRegister, ImmA32Reg(0))
	require.Equal(t, 0, reg.UseCount())

	sum := NewInst(OpAdd32, ValueFromInst(reg), ImmU32(1), ImmU1(false))
	require.Equal(t, 1, reg.UseCount())

	_ = sum
}

func TestReplaceArgUpdatesUseCounts(t *testing.T) {
	a := NewInst(OpGetRegister, ImmA32Reg(0))
	b := NewInst(OpGetRegister, ImmA32Reg(1))
	sum := NewInst(OpAdd32, ValueFromInst(a), ImmU32(0), ImmU1(false))
	require.Equal(t, 1, a.UseCount())
	require.Equal(t, 0, b.UseCount())

	sum.ReplaceArg(0, ValueFromInst(b))
	require.Equal(t, 0, a.UseCount())
	require.Equal(t, 1, b.UseCount())
}

func TestRemoveUseUnderflowPanics(t *testing.T) {
	a := NewInst(OpGetRegister, ImmA32Reg(0))
	require.Panics(t, func() { a.RemoveUse() })
}

func TestCompanionAttachment(t *testing.T) {
	shift := NewInst(OpLogicalShiftLeft32, ImmU32(1), ImmU8(2), ImmU1(false))
	carry := NewCompanion(shift, OpGetCarryFromOp)
	shift.AttachCompanion(carry)

	require.Same(t, carry, shift.Companion(OpGetCarryFromOp))
	require.Nil(t, shift.Companion(OpGetOverflowFromOp))
}

func TestIsDeadRequiresZeroUsesAndSideEffectFree(t *testing.T) {
	pureInst := NewInst(OpAdd32, ImmU32(1), ImmU32(2), ImmU1(false))
	require.True(t, pureInst.IsDead())

	sideEffecting := NewInst(OpSetRegister, ImmA32Reg(0), ImmU32(1))
	require.False(t, sideEffecting.IsDead())
}

func TestBlockTerminalSetOnce(t *testing.T) {
	b := NewBlock(NewA32(0, false, LittleEndian, 0, 0))
	require.False(t, b.Terminal().IsValid())

	b.SetTerminal(ReturnToDispatch())
	require.True(t, b.Terminal().IsValid())
	require.Panics(t, func() { b.SetTerminal(ReturnToDispatch()) })
}

func TestBlockFreezeRejectsMutation(t *testing.T) {
	b := NewBlock(NewA32(0, false, LittleEndian, 0, 0))
	b.Append(NewInst(OpUndefinedInstruction))
	b.SetTerminal(ReturnToDispatch())
	b.Freeze()

	require.Panics(t, func() { b.Append(NewInst(OpUndefinedInstruction)) })
}

func TestBlockRemoveAtDecrementsUses(t *testing.T) {
	b := NewBlock(NewA32(0, false, LittleEndian, 0, 0))
	reg := b.Append(NewInst(OpGetRegister, ImmA32Reg(0)))
	sum := b.Append(NewInst(OpAdd32, ValueFromInst(reg), ImmU32(1), ImmU1(false)))
	require.Equal(t, 1, reg.UseCount())

	b.RemoveAt(1) // removes `sum`
	require.Equal(t, 0, reg.UseCount())
	require.Equal(t, 1, b.Len())
}

func TestReplaceAllUsesWith(t *testing.T) {
	b := NewBlock(NewA32(0, false, LittleEndian, 0, 0))
	setInst := NewInst(OpSetRegister, ImmA32Reg(2), ImmU32(42))
	_ = b.Append(setInst)
	get := b.Append(NewInst(OpGetRegister, ImmA32Reg(2)))
	sum := b.Append(NewInst(OpAdd32, ValueFromInst(get), ImmU32(1), ImmU1(false)))

	ReplaceAllUsesWith(b.Instructions(), get, ImmU32(42))
	require.Equal(t, 0, get.UseCount())
	require.True(t, sum.Arg(0).IsImmediate())
	require.Equal(t, uint32(42), sum.Arg(0).U32())
}
