package a64

import (
	"strings"

	"armjit/decoder"
	"armjit/frontend"
	"armjit/ir"
)

var a64Table = decoder.NewTable(
	// MOVZ Xd, #imm16{, LSL #(hw*16)} — move-wide-immediate class,
	// sf=1 (64-bit Xd) and opc=10 fixed, narrowing the general
	// MOVN/MOVZ/MOVK family to just the one form the seed scenarios
	// need (DESIGN.md).
	decoder.NewRule[*builder]("MOVZ", 32,
		"110100101hh"+strings.Repeat("i", 16)+strings.Repeat("d", 5),
		func(b *builder, f []uint32) bool {
			hw, imm16, rd := f[0], f[1], f[2]
			b.meta = frontend.StepMeta{SizeBytes: 4}
			if hw >= 2 {
				// #imm16 shifted into the upper 32 bits doesn't fit this
				// backend's 32-bit-immediate materialization path
				// (emit_opcode.go's immBits32); rather than silently
				// truncate the constant, decode it as unimplemented.
				b.meta.Terminal = true
				b.emit = func(e *frontend.IREmitter, loc ir.LocationDescriptor) {
					e.UndefinedInstruction()
					e.SetTerm(ir.ReturnToDispatch())
				}
				return true
			}
			value := uint64(imm16) << (16 * hw)
			b.emit = func(e *frontend.IREmitter, loc ir.LocationDescriptor) {
				e.SetX(uint8(rd), ir.ImmU64(value))
			}
			return true
		}),

	// ADD (immediate), 64-bit, flag-free form (sf=1, op=0, S=0 fixed —
	// ADDS and the 32-bit Wd form are out of scope for this subset).
	decoder.NewRule[*builder]("ADD_imm64", 32,
		"10010001ss"+strings.Repeat("i", 12)+strings.Repeat("n", 5)+strings.Repeat("d", 5),
		func(b *builder, f []uint32) bool {
			shift, imm12, rn, rd := f[0], f[1], f[2], f[3]
			b.meta = frontend.StepMeta{SizeBytes: 4}
			amount := uint64(imm12)
			if shift&1 != 0 {
				amount <<= 12
			}
			b.emit = func(e *frontend.IREmitter, loc ir.LocationDescriptor) {
				lhs := e.GetX(uint8(rn))
				rco := e.Add64(lhs, ir.ImmU64(amount), ir.ImmU1(false))
				e.SetX(uint8(rd), rco.Result)
			}
			return true
		}),

	// B <label> — unconditional branch, PC-relative imm26 in units of
	// 4 bytes, always a static target so it links like A32's B_BL
	// rather than needing a dynamic-target dispatcher round-trip.
	decoder.NewRule[*builder]("B", 32,
		"000101"+strings.Repeat("i", 26),
		func(b *builder, f []uint32) bool {
			imm26 := f[0]
			b.meta = frontend.StepMeta{SizeBytes: 4, Terminal: true}
			b.emit = func(e *frontend.IREmitter, loc ir.LocationDescriptor) {
				target := uint64(int64(loc.PC) + signExtend26To64(imm26))
				e.SetTerm(ir.LinkBlockFast(ir.NewA64(target, loc.FPFlags)))
			}
			return true
		}),
)

func signExtend26To64(imm26 uint32) int64 {
	v := int64(imm26) << 2
	if imm26&0x02000000 != 0 {
		v |= ^int64(0) << 28
	}
	return v
}

// DecodeA64 decodes one 32-bit A64 instruction word, returning a Step
// that, once emitted, appends its IR (and possibly the block terminal)
// to an in-progress Block.
func DecodeA64(instrWord uint32) frontend.Step {
	b := &builder{}
	_, matched := a64Table.Decode(b, instrWord)
	if !matched {
		return undefinedStep()
	}
	return frontend.Step{Meta: b.meta, Emit: b.emit}
}
