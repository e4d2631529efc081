package a32

import (
	"armjit/decoder"
	"armjit/frontend"
	"armjit/ir"
)

var a32Table = decoder.NewTable(
	decoder.NewRule[*builder]("SWP", 32, "cccc00010B00nnnndddd----1001mmmm",
		func(b *builder, f []uint32) bool {
			cond, byteFlag, rn, rd, rm := f[0], f[1], f[2], f[3], f[4]
			b.meta = condMeta(cond, 4)
			b.emit = func(e *frontend.IREmitter, loc ir.LocationDescriptor) {
				addr := e.GetRegister(uint8(rn))
				newVal := e.GetRegister(uint8(rm))
				var old ir.Value
				if byteFlag != 0 {
					old = e.ReadMemory8(addr)
					e.WriteMemory8(addr, newVal)
				} else {
					old = e.ReadMemory32(addr)
					e.WriteMemory32(addr, newVal)
				}
				e.SetRegister(uint8(rd), old)
			}
			return true
		}),

	decoder.NewRule[*builder]("BX", 32, "cccc000100101111111111110001mmmm",
		func(b *builder, f []uint32) bool {
			cond, rm := f[0], f[1]
			b.meta = condMeta(cond, 4)
			b.meta.Terminal = true
			b.emit = func(e *frontend.IREmitter, loc ir.LocationDescriptor) {
				// The branch target is only known at runtime (it's
				// whatever Rm holds), so unlike B/BL's static
				// LinkBlockFast target, the dispatcher has to read it
				// back out of the guest PC register after this block
				// returns; write it there before picking the terminal.
				e.SetRegister(15, e.GetRegister(uint8(rm)))
				if rm == 14 {
					e.SetTerm(ir.PopRSBHint())
					return
				}
				e.SetTerm(ir.ReturnToDispatch())
			}
			return true
		}),

	decoder.NewRule[*builder]("B_BL", 32, "cccc101Liiiiiiiiiiiiiiiiiiiiiiii",
		func(b *builder, f []uint32) bool {
			cond, link, imm24 := f[0], f[1], f[2]
			b.meta = condMeta(cond, 4)
			b.meta.Terminal = true
			b.emit = func(e *frontend.IREmitter, loc ir.LocationDescriptor) {
				disp := signExtend24To32(imm24)
				targetPC := uint32(int64(loc.PC)+prefetchOffsetA32) + uint32(disp)
				target := ir.NewA32(targetPC, loc.IsThumb(), loc.Endian, loc.FPFlags, 0)
				if link != 0 {
					linkPC := uint32(loc.PC) + 4
					e.SetRegister(14, ir.ImmU32(linkPC))
				}
				e.SetTerm(ir.LinkBlockFast(target))
			}
			return true
		}),
)

// DecodeA32 decodes one 32-bit A32 instruction word, returning a Step
// that, once emitted, appends its IR (and possibly the block
// terminal) to an in-progress Block.
func DecodeA32(instrWord uint32) frontend.Step {
	b := &builder{}
	_, matched := a32Table.Decode(b, instrWord)
	if !matched {
		return undefinedStep(4)
	}
	return frontend.Step{Meta: b.meta, Emit: b.emit}
}

var thumb16Table = decoder.NewTable(
	decoder.NewRule[*builder]("LSLS_imm", 16, "00000iiiiimmmddd",
		func(b *builder, f []uint32) bool {
			imm5, rm, rd := f[0], f[1], f[2]
			b.meta = frontend.StepMeta{SizeBytes: 2}
			b.emit = func(e *frontend.IREmitter, loc ir.LocationDescriptor) {
				rmVal := e.GetRegister(uint8(rm))
				if imm5 == 0 {
					// LSL #0 is a no-shift alias: carry is unchanged, result
					// passes through unmodified.
					e.SetRegister(uint8(rd), rmVal)
					return
				}
				carryIn := e.GetCFlag()
				rc := e.LogicalShiftLeft32(rmVal, ir.ImmU8(uint8(imm5)), carryIn)
				e.SetRegister(uint8(rd), rc.Result)
				// This 16-bit LSLS form only surfaces the shift's carry-out;
				// it does not touch the N/Z flags.
				e.SetCFlag(e.GetCarryFromOp(rc.Producer()))
			}
			return true
		}),
)

// DecodeThumb16 decodes one 16-bit Thumb instruction word.
func DecodeThumb16(instrWord uint16) frontend.Step {
	b := &builder{}
	_, matched := thumb16Table.Decode(b, uint32(instrWord))
	if !matched {
		return undefinedStep(2)
	}
	return frontend.Step{Meta: b.meta, Emit: b.emit}
}
