package heap

import (
	"github.com/rwwiv/gcheap"
	"github.com/rwwiv/gcheap/internal/object"
)

const (
	wordsPerBlock      = 4 // number of words in an allocated block
	bytesPerBlock      = wordsPerBlock * object.WordSize
	stateBits          = 2 // how many bits a block state takes (see blockState type)
	blocksPerStateByte = 8 / stateBits
)

// blockState stores the four states in which a block can be.
type blockState uint8

const (
	blockStateFree blockState = iota
	blockStateHead
	blockStateTail
	blockStateMark
	blockStateMask blockState = 1<<stateBits - 1
)

// String returns a human-readable version of the block state, for debugging.
func (s blockState) String() string {
	switch s {
	case blockStateFree:
		return "free"
	case blockStateHead:
		return "head"
	case blockStateTail:
		return "tail"
	case blockStateMark:
		return "mark"
	default:
		// must never happen
		return "!err"
	}
}

// The block number in the region.
type gcBlock uintptr

// noBlock terminates the free range lists.
const noBlock = ^gcBlock(0)

// blockFromAddr returns the block containing the given region offset.
func (h *Heap) blockFromAddr(addr uintptr) gcBlock {
	if gcAsserts && addr >= h.metadataStart {
		h.fatalf(gcheap.ErrInvalidRef, "block from address %#x inside metadata", addr)
	}
	return gcBlock(addr / bytesPerBlock)
}

// address returns the region offset of the start of the block.
func (b gcBlock) address() uintptr {
	return uintptr(b) * bytesPerBlock
}

// ref returns the Ref of an object whose head is b.
func (b gcBlock) ref() gcheap.Ref {
	return gcheap.Ref(b.address() + object.HeaderSize)
}

func (h *Heap) stateByte(b gcBlock) *byte {
	return &h.mem[h.metadataStart+uintptr(b)/blocksPerStateByte]
}

// state returns the current block state.
func (h *Heap) state(b gcBlock) blockState {
	shift := (uintptr(b) % blocksPerStateByte) * stateBits
	return blockState(*h.stateByte(b)>>shift) & blockStateMask
}

// setState sets the state of block b.
func (h *Heap) setState(b gcBlock, s blockState) {
	shift := (uintptr(b) % blocksPerStateByte) * stateBits
	p := h.stateByte(b)
	*p = *p&^byte(blockStateMask<<shift) | byte(s<<shift)
	if gcAsserts && h.state(b) != s {
		h.fatalf(gcheap.ErrInvalidRef, "setState(%d, %v) was not successful", b, s)
	}
}

// findNext returns the first block just past the end of the object whose
// head is b. This may or may not be the head of an object.
func (h *Heap) findNext(b gcBlock) gcBlock {
	b++
	for b < h.endBlock && h.state(b) == blockStateTail {
		b++
	}
	return b
}

// headOf returns the head block of the object r refers to. It reports false
// if r is not the payload address of an allocated object.
func (h *Heap) headOf(r gcheap.Ref) (gcBlock, bool) {
	if uintptr(r) < object.HeaderSize {
		return 0, false
	}
	addr := uintptr(r) - object.HeaderSize
	if addr%bytesPerBlock != 0 || addr >= h.endBlock.address() {
		return 0, false
	}
	b := h.blockFromAddr(addr)
	switch h.state(b) {
	case blockStateHead, blockStateMark:
		return b, true
	}
	return 0, false
}
