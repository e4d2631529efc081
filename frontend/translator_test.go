package frontend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"armjit/frontend"
	"armjit/frontend/a32"
	"armjit/ir"
)

// TestTranslateUnconditionalBranchLinksFast is spec seed scenario 4
// ("unconditional link"): a block ending with B +8 must terminate in
// LinkBlockFast targeting pc+8+prefetch_offset, with a cycle count of
// one and no IR besides the terminator.
func TestTranslateUnconditionalBranchLinksFast(t *testing.T) {
	start := ir.NewA32(0x1000, false, ir.LittleEndian, ir.FPRoundNearest, 0)
	// cond=AL(0xE), 101 fixed, L=0, imm24=2 -> disp = imm24<<2 = 8.
	words := map[uint64]uint32{0x1000: 0xEA000002}

	decodeOne := func(loc ir.LocationDescriptor) frontend.Step {
		return a32.DecodeA32(words[loc.PC])
	}

	block := frontend.Translate(start, decodeOne, frontend.Options{})

	require.Equal(t, 0, block.Len(), "B has no IR side-effects besides its terminator")
	require.Equal(t, 1, block.CycleCount())

	term := block.Terminal()
	require.Equal(t, ir.TermLinkBlockFast, term.Kind)
	require.Equal(t, uint64(0x1000+8+8), term.Next.PC)
}

// TestTranslateStopsAtMaxInstructions exercises the block-size cap
// (spec §4.2 step 6) with a run of unconditional LSLS #0 no-ops (which
// never set a terminal themselves), verifying Translate still installs
// a LinkBlock terminal once the cap is hit rather than looping forever.
func TestTranslateStopsAtMaxInstructions(t *testing.T) {
	start := ir.NewA32(0, true, ir.LittleEndian, ir.FPRoundNearest, 0)
	const lslsR0R0Sh0 = 0x0000 // lsls r0, r0, #0 — Thumb16, imm5=0

	decodeOne := func(loc ir.LocationDescriptor) frontend.Step {
		return a32.DecodeThumb16(lslsR0R0Sh0)
	}

	block := frontend.Translate(start, decodeOne, frontend.Options{MaxInstructions: 3})

	require.Equal(t, 3, block.CycleCount())
	require.True(t, block.Terminal().IsValid())
	require.Equal(t, ir.TermLinkBlock, block.Terminal().Kind)
	require.Equal(t, uint64(6), block.Terminal().Next.PC)
}
