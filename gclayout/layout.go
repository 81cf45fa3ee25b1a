// Package gclayout describes where the pointers are in a heap object.
//
// A Layout is a pointer-sized value. If the least significant bit is set, the
// bitstring is stored directly inside the value in the form
// pppp_pppp_ppps_sss1 (shown for a 16-bit word):
//   - The 'p' bits indicate which words of the object may hold a reference.
//   - The 's' bits hold the length of the bitstring in words.
//   - The lowest bit is always set.
//
// The bitstring does not give the size of the object: it repeats over the
// whole payload, so an array of references can be described with size=1.
//
// Layouts that don't fit in a word are registered in a Table and referred to
// by an even value, (index+1)<<1. The zero Layout means the layout is unknown
// and every word must be treated as a possible reference.
package gclayout

import "unsafe"

// Layout tracks reference locations in a heap object.
type Layout uintptr

const (
	// 16-bit word => bits = 4
	// 32-bit word => bits = 5
	// 64-bit word => bits = 6
	sizeFieldBits = 4 + unsafe.Sizeof(uintptr(0))/4

	sizeShift = sizeFieldBits + 1

	// MaxInlineWords is the longest bitstring that fits in a Layout value.
	MaxInlineWords = int(unsafe.Sizeof(uintptr(0))*8 - sizeShift)
)

const (
	Unknown Layout = 0
	NoPtrs         = Layout(uintptr(0b0<<sizeShift) | uintptr(0b1<<1) | uintptr(1))
	Pointer        = Layout(uintptr(0b1<<sizeShift) | uintptr(0b1<<1) | uintptr(1))
	String         = Layout(uintptr(0b01<<sizeShift) | uintptr(0b10<<1) | uintptr(1))
	Slice          = Layout(uintptr(0b001<<sizeShift) | uintptr(0b11<<1) | uintptr(1))
)

// New returns an inline layout for an element of the given number of words
// with references at the listed word indexes. It reports false if the element
// is too long to be stored inline or an index is out of range.
func New(words int, pointers ...int) (Layout, bool) {
	if words <= 0 || words > MaxInlineWords || words >= 1<<sizeFieldBits {
		return 0, false
	}
	var mask uintptr
	for _, p := range pointers {
		if p < 0 || p >= words {
			return 0, false
		}
		mask |= 1 << uintptr(p)
	}
	return Layout(mask<<sizeShift | uintptr(words)<<1 | 1), true
}

// Inline reports whether the bitstring is stored in the value itself.
func (l Layout) Inline() bool {
	return l&1 != 0
}

// PointerFree reports whether objects with this layout never hold references.
// Table layouts are only created when at least one word is a reference, so
// they are never pointer free.
func (l Layout) PointerFree() bool {
	return l.Inline() && uintptr(l)>>sizeShift == 0
}

// words returns the inline bitstring length and mask.
func (l Layout) words() (size, mask uintptr) {
	size = uintptr(l>>1) & (1<<sizeFieldBits - 1)
	mask = uintptr(l) >> sizeShift
	return
}

// tableIndex returns the descriptor index of an out-of-line layout.
func (l Layout) tableIndex() int {
	return int(l>>1) - 1
}
