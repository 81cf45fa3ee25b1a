package heap

import "github.com/rwwiv/gcheap"

// The free ranges are structured as two nested singly-linked lists, stored in
// the first block of each range:
//   - The outer level (freeRange) has one entry for each unique range length,
//     ordered by length. Word 0 is the length in blocks, word 1 the next
//     longer range, word 2 the next range with this length.
//   - The inner level (freeRangeMore) has one entry for each additional range
//     of the same length. Word 0 is the next range with this length.
//
// This two-level structure keeps insertion and removal proportional to the
// number of distinct lengths.
const (
	freeRangeLen         = 0
	freeRangeNextLen     = 1
	freeRangeNextWithLen = 2
	freeRangeMoreNext    = 0
)

func (h *Heap) rangeWord(b gcBlock, i uintptr) uintptr {
	return h.mem.Word(b.address() + i*wordSize)
}

func (h *Heap) setRangeWord(b gcBlock, i, v uintptr) {
	h.mem.SetWord(b.address()+i*wordSize, v)
}

func (h *Heap) rangeLen(b gcBlock) uintptr {
	return h.rangeWord(b, freeRangeLen)
}

func (h *Heap) nextLen(b gcBlock) gcBlock {
	return gcBlock(h.rangeWord(b, freeRangeNextLen))
}

func (h *Heap) nextWithLen(b gcBlock) gcBlock {
	return gcBlock(h.rangeWord(b, freeRangeNextWithLen))
}

// insertFreeRange inserts a range of n blocks starting at b into the free
// list.
func (h *Heap) insertFreeRange(b gcBlock, n uintptr) {
	if gcAsserts && n == 0 {
		h.fatalf(gcheap.ErrInvalidRef, "insert 0-length free range")
	}

	// Find the insertion point by length.
	// Skip until the next range is at least the target length.
	prev, next := noBlock, h.freeRanges
	for next != noBlock && h.rangeLen(next) < n {
		prev, next = next, h.nextLen(next)
	}

	if next != noBlock && h.rangeLen(next) == n {
		// Insert into the list with this length.
		h.setRangeWord(b, freeRangeMoreNext, uintptr(h.nextWithLen(next)))
		h.setRangeWord(next, freeRangeNextWithLen, uintptr(b))
		return
	}

	// Insert into the list of lengths.
	h.setRangeWord(b, freeRangeLen, n)
	h.setRangeWord(b, freeRangeNextLen, uintptr(next))
	h.setRangeWord(b, freeRangeNextWithLen, uintptr(noBlock))
	if prev == noBlock {
		h.freeRanges = b
	} else {
		h.setRangeWord(prev, freeRangeNextLen, uintptr(b))
	}
}

// popFreeRange removes a range of n blocks from the free list and returns its
// first block. It returns noBlock if there are no sufficiently long ranges.
func (h *Heap) popFreeRange(n uintptr) gcBlock {
	if gcAsserts && n == 0 {
		h.fatalf(gcheap.ErrInvalidRef, "pop 0-length free range")
	}

	// Find the removal point by length.
	prev, rangeWithLength := noBlock, h.freeRanges
	for rangeWithLength != noBlock && h.rangeLen(rangeWithLength) < n {
		prev, rangeWithLength = rangeWithLength, h.nextLen(rangeWithLength)
	}
	if rangeWithLength == noBlock {
		// No ranges are long enough.
		return noBlock
	}
	removedLen := h.rangeLen(rangeWithLength)

	// Remove the range.
	var b gcBlock
	if more := h.nextWithLen(rangeWithLength); more != noBlock {
		// Remove from the list with this length.
		h.setRangeWord(rangeWithLength, freeRangeNextWithLen, h.rangeWord(more, freeRangeMoreNext))
		b = more
	} else {
		// Remove from the list of lengths.
		next := h.nextLen(rangeWithLength)
		if prev == noBlock {
			h.freeRanges = next
		} else {
			h.setRangeWord(prev, freeRangeNextLen, uintptr(next))
		}
		b = rangeWithLength
	}

	if removedLen > n {
		// Insert the leftover range.
		h.insertFreeRange(b+gcBlock(n), removedLen-n)
	}
	h.freeBlocks -= n
	return b
}

// buildFreeRanges rebuilds the free range lists from the block states. It
// must be called after a sweep or a reset, and returns how many bytes are
// free.
func (h *Heap) buildFreeRanges() uintptr {
	h.freeRanges = noBlock
	block := h.endBlock
	var totalBlocks uintptr
	for {
		// Skip backwards over occupied blocks.
		for block > 0 && h.state(block-1) != blockStateFree {
			block--
		}
		if block == 0 {
			break
		}

		// Find the start of the free range.
		end := block
		for block > 0 && h.state(block-1) == blockStateFree {
			block--
		}

		n := uintptr(end - block)
		totalBlocks += n
		h.insertFreeRange(block, n)
	}
	h.freeBlocks = totalBlocks
	return totalBlocks * bytesPerBlock
}

// largestFreeRange returns the length in blocks of the longest free range.
func (h *Heap) largestFreeRange() uintptr {
	var n uintptr
	for r := h.freeRanges; r != noBlock; r = h.nextLen(r) {
		n = h.rangeLen(r)
	}
	return n
}

// freeRangeCounts returns, for each distinct free range length, how many
// ranges have it, shortest first.
func (h *Heap) freeRangeCounts() (lengths, counts []uintptr) {
	for r := h.freeRanges; r != noBlock; r = h.nextLen(r) {
		total := uintptr(1)
		for more := h.nextWithLen(r); more != noBlock; more = gcBlock(h.rangeWord(more, freeRangeMoreNext)) {
			total++
		}
		lengths = append(lengths, h.rangeLen(r))
		counts = append(counts, total)
	}
	return
}
