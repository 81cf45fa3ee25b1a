package gcheap

import (
	"bytes"
	"errors"

	"github.com/rwwiv/gcheap/gclayout"
)

// Ref is an opaque reference to a managed object: the byte offset of the
// object's payload inside the heap that allocated it.
type Ref uintptr

// Nil is the zero Ref. It never refers to an object.
const Nil Ref = 0

// Kind is the shape tag stored in every object header.
type Kind uint8

const (
	KindRaw    Kind = iota // pointer-free bytes
	KindString             // immutable bytes
	KindSlots              // every word is a reference
	KindObject             // words described by an explicit layout
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindString:
		return "string"
	case KindSlots:
		return "slots"
	case KindObject:
		return "object"
	default:
		return "!err"
	}
}

var (
	// ErrOutOfMemory means an allocation could not be satisfied even after a
	// full collection.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrUnbalancedFrame means a root frame was popped out of order or twice.
	ErrUnbalancedFrame = errors.New("unbalanced root frame")

	// ErrInvalidRef means a Ref does not refer to a live object.
	ErrInvalidRef = errors.New("invalid reference")

	// ErrReentrant means the heap was used while a collection was running.
	ErrReentrant = errors.New("heap used during collection")
)

// FrameOwner is implemented by heaps that keep a root frame stack.
type FrameOwner interface {
	// PopFrame removes f, which must be the topmost frame.
	PopFrame(f Frame)
}

// Frame is the token returned when a set of root slots is registered. The
// zero Frame is valid and its Pop does nothing.
type Frame struct {
	owner  FrameOwner
	depth  int
	serial uint64
}

// NewFrame returns a frame token for the frame pushed at depth. The serial
// number tells apart frames pushed at the same depth at different times.
func NewFrame(owner FrameOwner, depth int, serial uint64) Frame {
	return Frame{owner: owner, depth: depth, serial: serial}
}

// Pop deregisters the frame.
func (f Frame) Pop() {
	if f.owner != nil {
		f.owner.PopFrame(f)
	}
}

// Depth returns the position of the frame on its stack.
func (f Frame) Depth() int {
	return f.depth
}

// Serial returns the serial number the owner gave the frame.
func (f Frame) Serial() uint64 {
	return f.serial
}

// Heap is the allocation and rooting surface shared by all backends.
//
// Allocation never returns Nil and never returns an error: when memory cannot
// be found the heap fails fatally by panicking with an error wrapping
// ErrOutOfMemory.
type Heap interface {
	// Allocate returns a zeroed pointer-free object of size bytes.
	Allocate(size uintptr) Ref
	// AllocateLayout returns a zeroed object of size bytes whose references
	// are described by layout.
	AllocateLayout(size uintptr, layout gclayout.Layout) Ref
	// NewString copies b into a new string object.
	NewString(b []byte) Ref
	// NewStringFrom copies s into a new string object.
	NewStringFrom(s string) Ref
	// NewSlots returns an object of n reference words, all Nil.
	NewSlots(n int) Ref

	// Bytes returns the payload of r. The slice aliases heap memory.
	Bytes(r Ref) []byte
	// Len returns the payload length of r in bytes.
	Len(r Ref) int
	// Kind returns the shape tag of r.
	Kind(r Ref) Kind
	// LoadRef reads reference word i of obj.
	LoadRef(obj Ref, i int) Ref
	// StoreRef writes reference word i of obj.
	StoreRef(obj Ref, i int, v Ref)

	// PushRoots registers the given slots as roots until the returned frame
	// is popped.
	PushRoots(slots ...*Ref) Frame
	// Collect runs a full collection.
	Collect()
}

// StringOf returns a copy of the payload of r as a Go string.
func StringOf(h Heap, r Ref) string {
	return string(h.Bytes(r))
}

// Equal reports whether the payloads of a and b are identical.
func Equal(h Heap, a, b Ref) bool {
	return bytes.Equal(h.Bytes(a), h.Bytes(b))
}
