// Package leaky implements the simplest useful heap possible: it only
// allocates memory and never frees it. Root registration and collection are
// no-ops, so code written against gcheap.Heap runs unchanged on it, which
// makes it useful for checking whether a bug is in the collector or in the
// consumer's rooting.
package leaky

import (
	"fmt"
	"sort"

	"github.com/rwwiv/gcheap"
	"github.com/rwwiv/gcheap/gclayout"
	"github.com/rwwiv/gcheap/internal/object"
)

// DefaultChunkSize is the chunk size used when New is given a non-positive
// capacity (64 KiB).
const DefaultChunkSize = 1 << 16

// chunk is one contiguous piece of the heap. Refs into it are base+offset.
type chunk struct {
	buf    object.Memory
	base   uintptr // Ref space offset of buf[0]
	offset uintptr // bump pointer within buf
}

// Heap is a bump allocator that never frees. Chunks are added as it fills up;
// existing chunks never move, so Refs and payload slices stay valid forever.
type Heap struct {
	chunks    []chunk
	chunkSize int

	totalAlloc uint64 // total number of bytes allocated, headers included
	mallocs    uint64 // total number of allocations
	collects   uint64 // calls to Collect, which do nothing
}

var _ gcheap.Heap = (*Heap)(nil)

// New creates a leaky heap whose chunks are at least chunkSize bytes.
func New(chunkSize int) *Heap {
	h := &Heap{}
	h.Init(chunkSize)
	return h
}

// Init drops everything allocated so far and starts over with the given
// chunk size.
func (h *Heap) Init(chunkSize int) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	h.chunks = nil
	h.chunkSize = chunkSize
	h.totalAlloc, h.mallocs, h.collects = 0, 0, 0
	h.grow(uintptr(chunkSize))
}

// grow appends a new chunk of at least need bytes.
func (h *Heap) grow(need uintptr) {
	size := max(uintptr(h.chunkSize), need)
	// Ref 0 must stay Nil, so the Ref space starts at 1 word.
	base := wordSize
	if n := len(h.chunks); n > 0 {
		last := h.chunks[n-1]
		base = last.base + uintptr(len(last.buf))
	}
	h.chunks = append(h.chunks, chunk{buf: makeChunk(size), base: base})
}

// makeChunk allocates a zeroed chunk, turning a failed allocation into an
// out of memory error.
func makeChunk(size uintptr) object.Memory {
	defer func() {
		if r := recover(); r != nil {
			outOfMemory("chunk of %d bytes: %v", size, r)
		}
	}()
	return make(object.Memory, size)
}

// outOfMemory panics with an error wrapping gcheap.ErrOutOfMemory.
func outOfMemory(format string, args ...interface{}) {
	panic(fmt.Errorf("gc: %w: %s", gcheap.ErrOutOfMemory, fmt.Sprintf(format, args...)))
}

const wordSize = object.WordSize

// align rounds n up to a whole number of words.
func align(n uintptr) uintptr {
	return (n + wordSize - 1) &^ (wordSize - 1)
}

func (h *Heap) alloc(size uintptr, layout gclayout.Layout, kind gcheap.Kind) gcheap.Ref {
	if h.chunks == nil {
		panic("gc: use of uninitialized leaky heap")
	}
	if size > object.MaxLength || align(size) < size {
		outOfMemory("allocation of %d bytes overflows", size)
	}
	total := object.HeaderSize + align(size)

	h.totalAlloc += uint64(total)
	h.mallocs++

	c := &h.chunks[len(h.chunks)-1]
	if c.offset+total > uintptr(len(c.buf)) {
		h.grow(total)
		c = &h.chunks[len(h.chunks)-1]
	}
	start := c.offset
	c.offset += total

	// Chunks are zeroed when they are created and memory is never reused.
	r := gcheap.Ref(c.base + start + object.HeaderSize)
	c.buf.SetHeader(gcheap.Ref(start+object.HeaderSize), object.Header{Layout: layout, Length: size, Kind: kind})
	return r
}

// locate returns the chunk holding r and r relative to that chunk.
func (h *Heap) locate(r gcheap.Ref) (*chunk, gcheap.Ref) {
	i := sort.Search(len(h.chunks), func(i int) bool {
		c := &h.chunks[i]
		return c.base+uintptr(len(c.buf)) > uintptr(r)
	})
	if i == len(h.chunks) {
		panic("gc: invalid reference")
	}
	c := &h.chunks[i]
	local := uintptr(r) - c.base
	if uintptr(r) < c.base || local < object.HeaderSize || local > c.offset {
		panic("gc: invalid reference")
	}
	return c, gcheap.Ref(local)
}

// Allocate returns a zeroed pointer-free object of size bytes.
func (h *Heap) Allocate(size uintptr) gcheap.Ref {
	return h.alloc(size, gclayout.NoPtrs, gcheap.KindRaw)
}

// AllocateLayout returns a zeroed object of size bytes with the given layout.
func (h *Heap) AllocateLayout(size uintptr, layout gclayout.Layout) gcheap.Ref {
	return h.alloc(size, layout, gcheap.KindObject)
}

// NewSlots returns an object of n reference words.
func (h *Heap) NewSlots(n int) gcheap.Ref {
	if n < 0 {
		panic("gc: negative slot count")
	}
	return h.alloc(uintptr(n)*wordSize, gclayout.Pointer, gcheap.KindSlots)
}

// NewString copies b into a new string object.
func (h *Heap) NewString(b []byte) gcheap.Ref {
	r := h.alloc(uintptr(len(b)), gclayout.NoPtrs, gcheap.KindString)
	copy(h.Bytes(r), b)
	return r
}

// NewStringFrom copies s into a new string object.
func (h *Heap) NewStringFrom(s string) gcheap.Ref {
	r := h.alloc(uintptr(len(s)), gclayout.NoPtrs, gcheap.KindString)
	copy(h.Bytes(r), s)
	return r
}

// Bytes returns the payload of r.
func (h *Heap) Bytes(r gcheap.Ref) []byte {
	c, local := h.locate(r)
	return c.buf.Payload(local)
}

// Len returns the payload length of r.
func (h *Heap) Len(r gcheap.Ref) int {
	c, local := h.locate(r)
	return int(c.buf.Header(local).Length)
}

// Kind returns the shape tag of r.
func (h *Heap) Kind(r gcheap.Ref) gcheap.Kind {
	c, local := h.locate(r)
	return c.buf.Header(local).Kind
}

// LoadRef reads word i of obj.
func (h *Heap) LoadRef(obj gcheap.Ref, i int) gcheap.Ref {
	c, local := h.locate(obj)
	return c.buf.LoadRef(local, i)
}

// StoreRef writes word i of obj.
func (h *Heap) StoreRef(obj gcheap.Ref, i int, v gcheap.Ref) {
	c, local := h.locate(obj)
	c.buf.StoreRef(local, i, v)
}

// PushRoots does nothing: nothing is ever collected.
func (h *Heap) PushRoots(slots ...*gcheap.Ref) gcheap.Frame {
	return gcheap.Frame{}
}

// Collect does nothing.
func (h *Heap) Collect() {
	h.collects++
}

// MemStats records statistics about a leaky heap.
type MemStats struct {
	Sys        uint64 // bytes in all chunks
	HeapInuse  uint64 // bytes handed out, headers included
	TotalAlloc uint64 // same as HeapInuse: nothing is freed
	Mallocs    uint64
	Frees      uint64 // always 0
	Chunks     int
	Collects   uint64 // calls to Collect
}

// ReadMemStats populates m with heap statistics.
func (h *Heap) ReadMemStats(m *MemStats) {
	*m = MemStats{
		TotalAlloc: h.totalAlloc,
		Mallocs:    h.mallocs,
		Chunks:     len(h.chunks),
		Collects:   h.collects,
	}
	for _, c := range h.chunks {
		m.Sys += uint64(len(c.buf))
		m.HeapInuse += uint64(c.offset)
	}
}

// InUse returns the number of bytes handed out, headers and padding included.
func (h *Heap) InUse() uintptr {
	var n uintptr
	for _, c := range h.chunks {
		n += c.offset
	}
	return n
}
