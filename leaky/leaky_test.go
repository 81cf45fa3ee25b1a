package leaky

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"unsafe"

	"github.com/rwwiv/gcheap"
	"github.com/rwwiv/gcheap/gclayout"
	"github.com/rwwiv/gcheap/internal/object"
)

func TestAllocate(t *testing.T) {
	h := New(0)

	seen := make(map[gcheap.Ref]bool)
	for size := uintptr(0); size < 200; size += 9 {
		r := h.Allocate(size)
		if r == gcheap.Nil || seen[r] {
			t.Fatalf("Allocate(%d) = %#x", size, uintptr(r))
		}
		seen[r] = true
		if h.Len(r) != int(size) || h.Kind(r) != gcheap.KindRaw {
			t.Fatalf("Allocate(%d): len %d kind %v", size, h.Len(r), h.Kind(r))
		}
		if !bytes.Equal(h.Bytes(r), make([]byte, size)) {
			t.Fatalf("Allocate(%d) is not zeroed", size)
		}
	}
}

func TestCollectFreesNothing(t *testing.T) {
	h := New(4 << 10)

	h.NewStringFrom("garbage")
	h.Allocate(100)
	before := h.InUse()
	h.Collect()
	h.Collect()
	if h.InUse() != before {
		t.Errorf("InUse() = %d after Collect, want %d", h.InUse(), before)
	}

	var m MemStats
	h.ReadMemStats(&m)
	if m.Collects != 2 || m.Frees != 0 || m.Mallocs != 2 {
		t.Errorf("stats = %+v", m)
	}
	if m.TotalAlloc != m.HeapInuse {
		t.Errorf("TotalAlloc %d != HeapInuse %d", m.TotalAlloc, m.HeapInuse)
	}
}

func TestRootsAreNoOps(t *testing.T) {
	h := New(0)

	var a, b gcheap.Ref
	f := h.PushRoots(&a, &b)
	g := h.PushRoots(nil)
	// Out of order and repeated pops are fine here.
	f.Pop()
	g.Pop()
	f.Pop()
}

func TestChunkGrowth(t *testing.T) {
	h := New(256)

	first := h.NewStringFrom("first")
	payload := h.Bytes(first)

	var refs []gcheap.Ref
	for i := 0; i < 100; i++ {
		refs = append(refs, h.NewStringFrom(strings.Repeat("x", i)))
	}
	big := h.Allocate(1000)

	var m MemStats
	h.ReadMemStats(&m)
	if m.Chunks < 2 {
		t.Fatalf("Chunks = %d, want growth", m.Chunks)
	}
	if h.Len(big) != 1000 {
		t.Errorf("Len(big) = %d", h.Len(big))
	}
	if string(payload) != "first" || gcheap.StringOf(h, first) != "first" {
		t.Error("first string moved or changed")
	}
	for i, r := range refs {
		if got := gcheap.StringOf(h, r); got != strings.Repeat("x", i) {
			t.Fatalf("string %d = %q", i, got)
		}
	}
}

func TestReferences(t *testing.T) {
	h := New(0)

	obj := h.AllocateLayout(3*wordSize, gclayout.String)
	s := h.NewStringFrom("target")
	h.StoreRef(obj, 2, s)
	if h.LoadRef(obj, 2) != s || h.LoadRef(obj, 0) != gcheap.Nil {
		t.Error("LoadRef does not return what StoreRef wrote")
	}
	if h.Kind(obj) != gcheap.KindObject {
		t.Errorf("Kind = %v", h.Kind(obj))
	}

	slots := h.NewSlots(2)
	if h.Kind(slots) != gcheap.KindSlots || h.Len(slots) != 2*int(wordSize) {
		t.Errorf("NewSlots(2): kind %v len %d", h.Kind(slots), h.Len(slots))
	}
}

func TestInvalidReference(t *testing.T) {
	h := New(0)
	h.Allocate(10)

	for name, r := range map[string]gcheap.Ref{
		"nil":         gcheap.Nil,
		"past end":    gcheap.Ref(1 << 30),
		"unused tail": gcheap.Ref(DefaultChunkSize - 8),
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			h.Bytes(r)
		})
	}
}

func TestInit(t *testing.T) {
	h := New(0)
	h.Allocate(100)
	h.Init(1024)

	var m MemStats
	h.ReadMemStats(&m)
	if m.Mallocs != 0 || m.HeapInuse != 0 || m.Chunks != 1 || m.Sys != 1024 {
		t.Errorf("stats after Init = %+v", m)
	}
}

func TestOutOfMemory(t *testing.T) {
	sizes := map[string]uintptr{"overflow": ^uintptr(0)}
	if unsafe.Sizeof(uintptr(0)) == 8 {
		// Longer than any Go slice can be.
		sizes["huge"] = object.MaxLength
	}
	for name, size := range sizes {
		t.Run(name, func(t *testing.T) {
			h := New(0)
			defer func() {
				err, _ := recover().(error)
				if !errors.Is(err, gcheap.ErrOutOfMemory) {
					t.Errorf("recovered %v, want an error wrapping %v", err, gcheap.ErrOutOfMemory)
				}
			}()
			h.Allocate(size)
		})
	}
}
