package x64

import (
	"fmt"
	"strings"

	"github.com/klauspost/asmfmt"
	"golang.org/x/arch/x86/x86asm"
)

// DisasmLine is one decoded host instruction: its absolute address and
// GNU/AT&T syntax text.
type DisasmLine struct {
	Addr uintptr
	Text string
}

// Disassemble decodes code (a BlockOfCode.BytesAt slice) as a
// contiguous run of x86-64 instructions starting at addr, the public
// facade's Disassemble(location) -> string (spec §6.3) grounded on
// decoding the emitter's own freshly emitted bytes rather than
// hand-rolling a printer. A malformed decode (this backend's own
// emitter producing something x86asm can't parse) is a bug worth
// surfacing, not silently truncating the listing.
func Disassemble(code []byte, addr uintptr) ([]DisasmLine, error) {
	var lines []DisasmLine
	for off := 0; off < len(code); {
		inst, err := x86asm.Decode(code[off:], 64)
		if err != nil {
			return lines, fmt.Errorf("x64: disassemble at %#x: %w", addr+uintptr(off), err)
		}
		lines = append(lines, DisasmLine{
			Addr: addr + uintptr(off),
			Text: x86asm.GNUSyntax(inst, uint64(addr)+uint64(off), nil),
		})
		off += inst.Len
	}
	return lines, nil
}

// FormatListing pretty-prints a Disassemble result for human
// diagnostics, the way the teacher's generated .s output is run
// through asmfmt before being written out. Each decoded instruction
// becomes one tab-indented Go-asm-style comment line so asmfmt's
// column aligner can do its normal job (lining up the address and
// mnemonic columns) without needing the listing to itself be
// well-formed Plan9 assembly.
func FormatListing(lines []DisasmLine) (string, error) {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "\t// %#016x\t%s\n", l.Addr, l.Text)
	}
	formatted, err := asmfmt.Format(strings.NewReader(b.String()))
	if err != nil {
		return "", fmt.Errorf("x64: format listing: %w", err)
	}
	return string(formatted), nil
}
