package decoder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeVisitor struct {
	lastName string
}

func TestParsePatternFieldsInOrderOfAppearance(t *testing.T) {
	_, _, fields := ParsePatternWidth("000mmmmmddddssss", 16)
	require.Len(t, fields, 3)
	require.Equal(t, byte('m'), fields[0].Name)
	require.Equal(t, byte('d'), fields[1].Name)
	require.Equal(t, byte('s'), fields[2].Name)
}

func TestParsePatternMaskAndExpect(t *testing.T) {
	mask, expect, _ := ParsePatternWidth("1--0", 4)
	require.Equal(t, uint32(0b1001), mask)
	require.Equal(t, uint32(0b1000), expect)
}

func TestFieldExtractsValue(t *testing.T) {
	_, _, fields := ParsePatternWidth("00mmmm00", 8)
	require.Len(t, fields, 1)
	require.Equal(t, uint32(0b1010), fields[0].Extract(0b00101000))
}

func TestTableDecodePrefersMoreSpecificRule(t *testing.T) {
	generic := NewRule[*fakeVisitor]("generic", 16, "----------------", func(v *fakeVisitor, f []uint32) bool {
		v.lastName = "generic"
		return true
	})
	specific := NewRule[*fakeVisitor]("specific", 16, "0000000000000001", func(v *fakeVisitor, f []uint32) bool {
		v.lastName = "specific"
		return true
	})
	// Construct out of specificity order; NewTable must still sort
	// the more specific rule first.
	table := NewTable(generic, specific)

	v := &fakeVisitor{}
	cont, matched := table.Decode(v, 0x0001)
	require.True(t, matched)
	require.True(t, cont)
	require.Equal(t, "specific", v.lastName)
}

func TestTableDecodeNoMatch(t *testing.T) {
	table := NewTable(NewRule[*fakeVisitor]("only-ones", 16, "1111111111111111", func(v *fakeVisitor, f []uint32) bool {
		return true
	}))
	_, matched := table.Decode(&fakeVisitor{}, 0)
	require.False(t, matched)
}

func TestIsUnconditionalEncoding(t *testing.T) {
	require.True(t, IsUnconditionalEncoding(0xF0000000))
	require.False(t, IsUnconditionalEncoding(0xE0000000))
}
