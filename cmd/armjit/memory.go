package main

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// flatMemory is a minimal callbacks.UserCallbacks implementation backed
// by one contiguous Go byte slice — the CLI's stand-in for a real
// embedder's guest address space, analogous to backend/x64's flat
// MemBase special case (see that package's doc comment) rather than a
// sparse PageTable. base is the guest address bytes[0] corresponds to.
type flatMemory struct {
	base  uint64
	bytes []byte
}

func newFlatMemory(base uint64, size int) *flatMemory {
	return &flatMemory{base: base, bytes: make([]byte, size)}
}

// hostMemBase returns the value to pass as jit.New's memBase: the host
// address guest address 0 would map to, so emitted code's MemBase+addr
// arithmetic lands in the same bytes slice this callback reads and
// writes. Valid only as long as m.bytes is not reallocated or moved;
// the flatMemory struct keeps it alive and Go's allocator does not
// relocate a live heap slice out from under a held pointer.
func (m *flatMemory) hostMemBase() uintptr {
	return uintptr(unsafe.Pointer(&m.bytes[0])) - uintptr(m.base)
}

func (m *flatMemory) off(vaddr uint64) int {
	o := int64(vaddr) - int64(m.base)
	if o < 0 || o >= int64(len(m.bytes)) {
		panic(fmt.Sprintf("armjit: guest address %#x out of bounds of the loaded image", vaddr))
	}
	return int(o)
}

func (m *flatMemory) MemoryReadCode(vaddr uint64) uint32 { return m.MemoryRead32(vaddr) }

func (m *flatMemory) MemoryRead8(vaddr uint64) uint8 { return m.bytes[m.off(vaddr)] }
func (m *flatMemory) MemoryRead16(vaddr uint64) uint16 {
	return binary.LittleEndian.Uint16(m.bytes[m.off(vaddr):])
}
func (m *flatMemory) MemoryRead32(vaddr uint64) uint32 {
	return binary.LittleEndian.Uint32(m.bytes[m.off(vaddr):])
}
func (m *flatMemory) MemoryRead64(vaddr uint64) uint64 {
	return binary.LittleEndian.Uint64(m.bytes[m.off(vaddr):])
}

func (m *flatMemory) MemoryWrite8(vaddr uint64, v uint8) { m.bytes[m.off(vaddr)] = v }
func (m *flatMemory) MemoryWrite16(vaddr uint64, v uint16) {
	binary.LittleEndian.PutUint16(m.bytes[m.off(vaddr):], v)
}
func (m *flatMemory) MemoryWrite32(vaddr uint64, v uint32) {
	binary.LittleEndian.PutUint32(m.bytes[m.off(vaddr):], v)
}
func (m *flatMemory) MemoryWrite64(vaddr uint64, v uint64) {
	binary.LittleEndian.PutUint64(m.bytes[m.off(vaddr):], v)
}

// IsReadOnlyMemory conservatively reports false: the CLI has no way to
// know which parts of a raw-image load are meant to be read-only code
// versus writable data.
func (m *flatMemory) IsReadOnlyMemory(vaddr uint64) bool { return false }

func (m *flatMemory) CallSVC(swi uint32) {
	fmt.Printf("armjit: guest SVC #%d (no supervisor handler wired in, ignoring)\n", swi)
}

func (m *flatMemory) AddTicks(n uint64)         {}
func (m *flatMemory) GetTicksRemaining() uint64 { return ^uint64(0) }

func (m *flatMemory) InterpreterFallback(pc uint64, userArg any) {
	panic(fmt.Sprintf("armjit: interpreter fallback requested at pc=%#x but this CLI has no reference interpreter wired in", pc))
}
