package heap

import (
	"github.com/rwwiv/gcheap"
	"github.com/rwwiv/gcheap/gclayout"
	"github.com/rwwiv/gcheap/internal/object"
)

// Allocate returns a zeroed, pointer-free object of size bytes. It never
// returns Nil: if no space is found even after a collection, the heap fails
// with ErrOutOfMemory.
func (h *Heap) Allocate(size uintptr) gcheap.Ref {
	return h.alloc(size, gclayout.NoPtrs, gcheap.KindRaw)
}

// AllocateLayout returns a zeroed object of size bytes whose references are
// described by layout.
func (h *Heap) AllocateLayout(size uintptr, layout gclayout.Layout) gcheap.Ref {
	return h.alloc(size, layout, gcheap.KindObject)
}

// NewSlots returns an object of n reference words, all Nil.
func (h *Heap) NewSlots(n int) gcheap.Ref {
	if n < 0 {
		panic("gc: negative slot count")
	}
	return h.alloc(uintptr(n)*wordSize, gclayout.Pointer, gcheap.KindSlots)
}

// NewString copies b into a new string object.
func (h *Heap) NewString(b []byte) gcheap.Ref {
	r := h.alloc(uintptr(len(b)), gclayout.NoPtrs, gcheap.KindString)
	copy(h.mem.Payload(r), b)
	return r
}

// NewStringFrom copies s into a new string object.
func (h *Heap) NewStringFrom(s string) gcheap.Ref {
	r := h.alloc(uintptr(len(s)), gclayout.NoPtrs, gcheap.KindString)
	copy(h.mem.Payload(r), s)
	return r
}

// alloc tries to find some free space on the heap, possibly doing a
// collection if needed. If no space is free afterwards, it fails fatally.
func (h *Heap) alloc(size uintptr, layout gclayout.Layout, kind gcheap.Kind) gcheap.Ref {
	h.mustBeUsable()

	// Round the size up to a multiple of blocks, adding space for the header.
	neededBlocks, ok := object.BlocksFor(size, bytesPerBlock)
	if !ok {
		h.fatalf(gcheap.ErrOutOfMemory, "allocation of %d bytes overflows", size)
	}

	// Update the total allocation counters.
	h.totalAlloc += uint64(size)
	h.mallocs++

	var ranGC bool
	if threshold := uintptr(h.cfg.GCThreshold.Bytes()); threshold > 0 && h.sinceGC+size > threshold {
		h.runGC()
		ranGC = true
	}

	// Acquire a range of free blocks.
	var block gcBlock
	for {
		block = h.popFreeRange(neededBlocks)
		if block != noBlock {
			break
		}
		if !ranGC {
			// Run the collector and try again.
			h.runGC()
			ranGC = true
			continue
		}
		h.fatalf(gcheap.ErrOutOfMemory, "cannot allocate %d bytes: %d bytes free, largest free range %d bytes",
			size, h.freeBlocks*bytesPerBlock, h.largestFreeRange()*bytesPerBlock)
	}
	h.sinceGC += size

	// Set the backing blocks as being allocated.
	h.setState(block, blockStateHead)
	for i := block + 1; i != block+gcBlock(neededBlocks); i++ {
		h.setState(i, blockStateTail)
	}

	// Zero the whole range, including the rounding slack, so stale words are
	// never read as references.
	start := block.address()
	clear(h.mem[start : start+neededBlocks*bytesPerBlock])

	r := block.ref()
	h.mem.SetHeader(r, object.Header{Layout: layout, Length: size, Kind: kind})
	return r
}

// Headroom returns the largest payload, in bytes, that can be allocated
// right now without running a collection. A result of 0 means that no
// allocation is guaranteed to avoid one, not even Allocate(0): a zero-size
// object still takes a block, and once the threshold is reached every
// allocation collects first.
func (h *Heap) Headroom() uintptr {
	n := h.largestFreeRange()
	if n == 0 {
		return 0
	}
	room := n*bytesPerBlock - object.HeaderSize
	if threshold := uintptr(h.cfg.GCThreshold.Bytes()); threshold > 0 {
		if h.sinceGC >= threshold {
			return 0
		}
		room = min(room, threshold-h.sinceGC)
	}
	return room
}
