package heap

import (
	"time"

	"github.com/rwwiv/gcheap"
	"github.com/rwwiv/gcheap/gclayout"
)

// Collect performs a full collection cycle. It runs to completion before it
// returns.
func (h *Heap) Collect() {
	h.mustBeUsable()
	h.runGC()
}

// runGC performs a collection cycle and returns the number of free bytes in
// the heap afterwards.
func (h *Heap) runGC() (freeBytes uintptr) {
	start := time.Now()
	freeBefore := h.freeBlocks
	h.collecting = true

	// Mark phase: mark all reachable objects.
	h.markFrames()
	h.finishMark()

	// Sweep phase: free all non-marked objects and unmark marked objects for
	// the next collection cycle.
	freed := h.sweep()

	// Rebuild the free ranges list.
	freeBytes = h.buildFreeRanges()

	h.collecting = false
	pause := time.Since(start)
	h.numGC++
	h.frees += freed
	h.sinceGC = 0
	h.pauseTotal += pause
	h.lastFreed = (h.freeBlocks - freeBefore) * bytesPerBlock

	h.log.Debug("gc: collection",
		"cycle", h.numGC,
		"freed_objects", freed,
		"freed_bytes", h.lastFreed,
		"free_bytes", freeBytes,
		"root_slots", h.rootSlots,
		"pause", pause)
	if gcAsserts {
		h.checkHeap()
	}
	return freeBytes
}

// markRoot marks the object r refers to and queues it for scanning. It
// reports false if r is neither Nil nor a live object.
func (h *Heap) markRoot(r gcheap.Ref) bool {
	if r == gcheap.Nil {
		return true
	}
	head, ok := h.headOf(r)
	if !ok {
		// Not an object. A precise layout never gets here unless a word was
		// written through the raw payload.
		return false
	}
	if h.state(head) == blockStateMark {
		// This object is already marked.
		return true
	}
	h.setState(head, blockStateMark)
	h.markStack = append(h.markStack, r)
	return true
}

// finishMark drains the mark stack, scanning every marked object for
// references with its layout.
func (h *Heap) finishMark() {
	for len(h.markStack) > 0 {
		obj := h.markStack[len(h.markStack)-1]
		h.markStack = h.markStack[:len(h.markStack)-1]

		hdr := h.mem.Header(obj)
		scanner := gclayout.NewScanner(hdr.Layout, &h.layouts)
		if scanner.PointerFree() {
			// This is a fast path for strings and raw buffers.
			continue
		}
		words := hdr.Length / wordSize
		addr := uintptr(obj)
		for i := uintptr(0); i < words; i++ {
			if scanner.NextIsPointer() {
				h.markRoot(gcheap.Ref(h.mem.Word(addr)))
			}
			addr += wordSize
		}
	}
}

// sweep goes through all blocks, frees unmarked objects and turns marked
// heads back into plain heads. It returns the number of objects freed.
func (h *Heap) sweep() (freed uint64) {
	for b := gcBlock(0); b < h.endBlock; b++ {
		switch h.state(b) {
		case blockStateHead:
			// Unmarked head. Free it, including its tail.
			next := h.findNext(b)
			for i := b; i < next; i++ {
				h.setState(i, blockStateFree)
			}
			if gcAsserts {
				// Poison freed memory so that a dangling reference shows up
				// as garbage instead of stale data.
				poison := h.mem[b.address():next.address()]
				for i := range poison {
					poison[i] = 0xa5
				}
			}
			freed++
			b = next - 1
		case blockStateMark:
			// Marked head. Unmark it; its tail stays.
			h.setState(b, blockStateHead)
		}
	}
	return freed
}

// checkHeap verifies that the block states are consistent: no marks are left
// and every tail follows a head or another tail.
func (h *Heap) checkHeap() {
	prev := blockStateFree
	for b := gcBlock(0); b < h.endBlock; b++ {
		s := h.state(b)
		switch {
		case s == blockStateMark:
			h.fatalf(gcheap.ErrInvalidRef, "block %d still marked after sweep", b)
		case s == blockStateTail && prev == blockStateFree:
			h.fatalf(gcheap.ErrInvalidRef, "found tail without head at block %d", b)
		}
		prev = s
	}
}
