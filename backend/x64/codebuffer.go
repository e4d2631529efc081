package x64

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// codeRegionSize bounds each of the near/far mmap'd regions (spec
// §4.6). Near code holds emitted block bodies, including their exit
// paths; far code holds the constant pool, kept out of the hot near
// region's instruction cache footprint.
const codeRegionSize = 16 << 20

// BlockOfCode is the executable memory arena the emitter writes into
// and the dispatcher eventually jumps to. It tracks a near and a far
// region, both W^X-toggled together around emission batches (spec §4.6
// design note, §9 "W^X / JIT memory").
type BlockOfCode struct {
	near    []byte
	far     []byte
	nearPos int
	farPos  int
	writable bool

	pool ConstantPool
}

// NewBlockOfCode maps the near and far code regions RW; callers must
// call DisableWriting before handing any pointer into these regions to
// the dispatcher.
func NewBlockOfCode() (*BlockOfCode, error) {
	near, err := unix.Mmap(-1, 0, codeRegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("x64: mmap near region: %w", err)
	}
	far, err := unix.Mmap(-1, 0, codeRegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		unix.Munmap(near)
		return nil, fmt.Errorf("x64: mmap far region: %w", err)
	}
	b := &BlockOfCode{near: near, far: far, writable: true}
	b.pool = ConstantPool{code: b}
	return b, nil
}

// Close releases both mmap'd regions.
func (b *BlockOfCode) Close() error {
	err1 := unix.Munmap(b.near)
	err2 := unix.Munmap(b.far)
	if err1 != nil {
		return err1
	}
	return err2
}

// EnableWriting flips both regions RW, required before emitting or
// patching code.
func (b *BlockOfCode) EnableWriting() error {
	if b.writable {
		return nil
	}
	if err := unix.Mprotect(b.near, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("x64: mprotect near RW: %w", err)
	}
	if err := unix.Mprotect(b.far, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("x64: mprotect far RW: %w", err)
	}
	b.writable = true
	return nil
}

// DisableWriting flips both regions RX, required before the
// dispatcher executes anything in them.
func (b *BlockOfCode) DisableWriting() error {
	if !b.writable {
		return nil
	}
	if err := unix.Mprotect(b.near, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("x64: mprotect near RX: %w", err)
	}
	if err := unix.Mprotect(b.far, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("x64: mprotect far RX: %w", err)
	}
	b.writable = false
	return nil
}

// ResetNear rewinds the near and far cursors to the start of their
// regions, discarding every previously emitted block's machine code in
// one O(1) step (spec §4.9: the CodeCache's entries are cheap map
// bookkeeping, reclaiming the executable memory they pointed into is
// what ClearCache actually needs). Callers must have no outstanding
// pointers into either region still in use.
func (b *BlockOfCode) ResetNear() {
	b.nearPos = 0
	b.farPos = 0
}

// NearCursor returns the offset the next near-region byte will be
// written at — a block's entry point once emission for it begins.
func (b *BlockOfCode) NearCursor() int { return b.nearPos }

// NearBasePtr returns the address of the near region's first byte,
// used by callers computing a block's absolute entry address.
func (b *BlockOfCode) NearBasePtr() uintptr { return uintptrOf(b.near) }

// BytesAt returns the size bytes of already-emitted near-region code
// starting at entry (an absolute address previously returned via
// NearBasePtr()+NearCursor()), for Disassemble to decode. The returned
// slice aliases the mmap'd region directly; callers must not retain it
// past a ResetNear.
func (b *BlockOfCode) BytesAt(entry uintptr, size int) []byte {
	off := int(entry - b.NearBasePtr())
	return b.near[off : off+size]
}

func (b *BlockOfCode) emitByte(v byte) {
	b.near[b.nearPos] = v
	b.nearPos++
}

func (b *BlockOfCode) emitBytes(v []byte) {
	copy(b.near[b.nearPos:], v)
	b.nearPos += len(v)
}

func (b *BlockOfCode) emitU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.emitBytes(buf[:])
}

func (b *BlockOfCode) emitU64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	b.emitBytes(buf[:])
}

// PatchU32At overwrites a previously-emitted rel32/imm32 slot. No
// caller in this module uses it: blocks are not linked by patching,
// every block returns to the dispatcher.
func (b *BlockOfCode) PatchU32At(offset int, v uint32) {
	binary.LittleEndian.PutUint32(b.near[offset:], v)
}

// ConstantPool allocates literal 32/64-bit values into the far region
// and returns their address, so an emitter can load a wide immediate
// via RIP-relative addressing instead of a multi-instruction
// materialization sequence (spec §4.6).
type ConstantPool struct {
	code *BlockOfCode
}

// MConst places v in the far region and returns its address.
func (p *ConstantPool) MConst(v uint64) uintptr {
	b := p.code
	addr := uintptrOf(b.far) + uintptr(b.farPos)
	binary.LittleEndian.PutUint64(b.far[b.farPos:], v)
	b.farPos += 8
	return addr
}
