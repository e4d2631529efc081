package decoder

// IsUnconditionalEncoding reports whether instr's condition field
// (bits 31:28 of an A32 word) is 0b1111, marking it as one of the
// "unconditional instructions" ARMv7 carves out of the normal
// conditional instruction space. Per spec §4.1 these are excluded from
// the VFP decoder by a pre-check.
func IsUnconditionalEncoding(instr uint32) bool {
	return instr>>28 == 0xF
}

// DecodeVFP runs the VFP table but skips instructions with the
// unconditional encoding, matching spec §4.1's required pre-check.
func DecodeVFP[V any](t *Table[V], v V, instr uint32) (shouldContinue bool, matched bool) {
	if IsUnconditionalEncoding(instr) {
		return false, false
	}
	return t.Decode(v, instr)
}
