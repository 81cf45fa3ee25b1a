// Package object encodes object headers and reads and writes words in a
// backing region. It is shared by the heap backends.
//
// Every object starts with a two-word header followed by the payload:
//
//	word 0: gclayout.Layout
//	word 1: length<<8 | kind
//
// A Ref is the offset of the payload, so it is never 0.
package object

import (
	"unsafe"

	"github.com/rwwiv/gcheap"
	"github.com/rwwiv/gcheap/gclayout"
)

const (
	WordSize   = unsafe.Sizeof(uintptr(0))
	HeaderSize = 2 * WordSize

	kindBits = 8

	// MaxLength is the largest payload length a header can record.
	MaxLength = ^uintptr(0) >> kindBits
)

// Header is the decoded object header.
type Header struct {
	Layout gclayout.Layout
	Length uintptr
	Kind   gcheap.Kind
}

// Memory is a backing region. Offsets passed to its methods must be word
// aligned.
type Memory []byte

// Word loads the word at off.
func (m Memory) Word(off uintptr) uintptr {
	_ = m[off+WordSize-1]
	return *(*uintptr)(unsafe.Pointer(&m[off]))
}

// SetWord stores v at off.
func (m Memory) SetWord(off, v uintptr) {
	_ = m[off+WordSize-1]
	*(*uintptr)(unsafe.Pointer(&m[off])) = v
}

// Header decodes the header of the object at r.
func (m Memory) Header(r gcheap.Ref) Header {
	off := uintptr(r) - HeaderSize
	info := m.Word(off + WordSize)
	return Header{
		Layout: gclayout.Layout(m.Word(off)),
		Length: info >> kindBits,
		Kind:   gcheap.Kind(info & (1<<kindBits - 1)),
	}
}

// SetHeader writes the header of the object at r.
func (m Memory) SetHeader(r gcheap.Ref, h Header) {
	off := uintptr(r) - HeaderSize
	m.SetWord(off, uintptr(h.Layout))
	m.SetWord(off+WordSize, h.Length<<kindBits|uintptr(h.Kind))
}

// Payload returns the payload of the object at r.
func (m Memory) Payload(r gcheap.Ref) []byte {
	n := m.Header(r).Length
	start := uintptr(r)
	return m[start : start+n : start+n]
}

// Words returns the number of whole words in the payload of the object at r.
func (m Memory) Words(r gcheap.Ref) int {
	return int(m.Header(r).Length / WordSize)
}

// LoadRef reads word i of the object at r.
func (m Memory) LoadRef(r gcheap.Ref, i int) gcheap.Ref {
	m.checkField(r, i)
	return gcheap.Ref(m.Word(uintptr(r) + uintptr(i)*WordSize))
}

// StoreRef writes word i of the object at r.
func (m Memory) StoreRef(r gcheap.Ref, i int, v gcheap.Ref) {
	m.checkField(r, i)
	m.SetWord(uintptr(r)+uintptr(i)*WordSize, uintptr(v))
}

func (m Memory) checkField(r gcheap.Ref, i int) {
	if i < 0 || i >= m.Words(r) {
		panic("gc: field index out of range")
	}
}

// BlocksFor returns the total size of an object with a payload of size bytes,
// header included, rounded up to a multiple of unit. It reports false on
// overflow.
func BlocksFor(size, unit uintptr) (uintptr, bool) {
	if size > MaxLength {
		return 0, false
	}
	total := size + HeaderSize
	total += unit - 1
	if total < size {
		// The size overflowed.
		return 0, false
	}
	return total / unit, true
}
