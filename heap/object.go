package heap

import (
	"github.com/rwwiv/gcheap"
	"github.com/rwwiv/gcheap/gclayout"
)

// checkRef fails with ErrInvalidRef unless r refers to an allocated object.
func (h *Heap) checkRef(r gcheap.Ref) {
	h.mustBeUsable()
	if _, ok := h.headOf(r); !ok {
		h.fatalf(gcheap.ErrInvalidRef, "%#x is not a live object", uintptr(r))
	}
}

// Bytes returns the payload of r. The slice aliases heap memory and stays
// valid while r is reachable.
func (h *Heap) Bytes(r gcheap.Ref) []byte {
	h.checkRef(r)
	return h.mem.Payload(r)
}

// Len returns the payload length of r in bytes.
func (h *Heap) Len(r gcheap.Ref) int {
	h.checkRef(r)
	return int(h.mem.Header(r).Length)
}

// Kind returns the shape tag of r.
func (h *Heap) Kind(r gcheap.Ref) gcheap.Kind {
	h.checkRef(r)
	return h.mem.Header(r).Kind
}

// LayoutOf returns the layout r was allocated with.
func (h *Heap) LayoutOf(r gcheap.Ref) gclayout.Layout {
	h.checkRef(r)
	return h.mem.Header(r).Layout
}

// LoadRef reads word i of obj as a reference.
func (h *Heap) LoadRef(obj gcheap.Ref, i int) gcheap.Ref {
	h.checkRef(obj)
	return h.mem.LoadRef(obj, i)
}

// StoreRef writes v into word i of obj. v must be Nil or a live object. The
// word must be one that the object's layout marks as a reference, otherwise
// the collector will not see v.
func (h *Heap) StoreRef(obj gcheap.Ref, i int, v gcheap.Ref) {
	h.checkRef(obj)
	if v != gcheap.Nil {
		h.checkRef(v)
	}
	if gcAsserts && !gclayout.IsPointer(h.mem.Header(obj).Layout, &h.layouts, i) {
		h.fatalf(gcheap.ErrInvalidRef, "word %d of %#x is not a reference word", i, uintptr(obj))
	}
	h.mem.StoreRef(obj, i, v)
}

// LoadWord reads word i of obj as plain data.
func (h *Heap) LoadWord(obj gcheap.Ref, i int) uintptr {
	return uintptr(h.LoadRef(obj, i))
}

// StoreWord writes plain data into word i of obj. A value stored this way in
// a reference word must still be Nil or a live object.
func (h *Heap) StoreWord(obj gcheap.Ref, i int, v uintptr) {
	h.checkRef(obj)
	h.mem.StoreRef(obj, i, gcheap.Ref(v))
}

// IsLive reports whether r currently refers to an allocated object.
func (h *Heap) IsLive(r gcheap.Ref) bool {
	if h.mem == nil {
		return false
	}
	_, ok := h.headOf(r)
	return ok
}
