package x64

// runCode is implemented in call_amd64.s: it is the one place this
// package crosses from Go into JIT-generated machine code.
func runCode(entry uintptr, state *JitState) uint64

// RunBlock executes the translated block whose machine code begins at
// entry against state, returning once the block's terminal RETs back
// to Go. Callers must have called BlockOfCode.DisableWriting first —
// the host refuses to execute writable pages the same instruction
// stream might still be mutating.
func RunBlock(entry uintptr, state *JitState) {
	runCode(entry, state)
}
