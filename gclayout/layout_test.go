package gclayout

import "testing"

// bitsOf returns the first n answers of a scanner for l.
func bitsOf(l Layout, t *Table, n int) []bool {
	s := NewScanner(l, t)
	out := make([]bool, n)
	for i := range out {
		out[i] = s.NextIsPointer()
	}
	return out
}

func equalBits(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNamedLayouts(t *testing.T) {
	tests := []struct {
		name        string
		layout      Layout
		pointerFree bool
		bits        []bool
	}{
		{"unknown", Unknown, false, []bool{true, true, true, true}},
		{"no pointers", NoPtrs, true, []bool{false, false, false, false}},
		{"pointer", Pointer, false, []bool{true, true, true, true}},
		{"string", String, false, []bool{true, false, true, false}},
		{"slice", Slice, false, []bool{true, false, false, true, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanner(tt.layout, nil)
			if s.PointerFree() != tt.pointerFree {
				t.Errorf("PointerFree() = %v, want %v", s.PointerFree(), tt.pointerFree)
			}
			if got := bitsOf(tt.layout, nil, len(tt.bits)); !equalBits(got, tt.bits) {
				t.Errorf("bits = %v, want %v", got, tt.bits)
			}
			if tt.layout != Unknown && !tt.layout.Inline() {
				t.Errorf("named layout %#x is not inline", uintptr(tt.layout))
			}
		})
	}
}

func TestNew(t *testing.T) {
	l, ok := New(3, 0, 2)
	if !ok {
		t.Fatal("New(3, 0, 2) failed")
	}
	want := []bool{true, false, true, true, false, true}
	if got := bitsOf(l, nil, len(want)); !equalBits(got, want) {
		t.Errorf("bits = %v, want %v", got, want)
	}

	if l, ok := New(1); !ok || l != NoPtrs {
		t.Errorf("New(1) = %#x, %v; want NoPtrs", uintptr(l), ok)
	}
	if l, ok := New(1, 0); !ok || l != Pointer {
		t.Errorf("New(1, 0) = %#x, %v; want Pointer", uintptr(l), ok)
	}
	if l, ok := New(2, 0); !ok || l != String {
		t.Errorf("New(2, 0) = %#x, %v; want String", uintptr(l), ok)
	}

	for _, tc := range []struct {
		words    int
		pointers []int
	}{
		{0, nil},
		{-1, nil},
		{2, []int{2}},
		{2, []int{-1}},
		{MaxInlineWords + 1, []int{0}},
	} {
		if _, ok := New(tc.words, tc.pointers...); ok {
			t.Errorf("New(%d, %v) succeeded, want failure", tc.words, tc.pointers)
		}
	}
}

func TestTableLayout(t *testing.T) {
	var table Table

	short := table.Layout(2, 1)
	if !short.Inline() || table.Len() != 0 {
		t.Fatalf("short layout was registered: inline=%v len=%d", short.Inline(), table.Len())
	}

	words := MaxInlineWords + 10
	long := table.Layout(words, 0, words-1)
	if long.Inline() || long == Unknown {
		t.Fatalf("long layout %#x is not a table layout", uintptr(long))
	}
	if table.Len() != 1 {
		t.Fatalf("table.Len() = %d, want 1", table.Len())
	}
	d, ok := table.Descriptor(long)
	if !ok || d.Words != words {
		t.Fatalf("Descriptor() = %+v, %v", d, ok)
	}

	s := NewScanner(long, &table)
	if s.PointerFree() {
		t.Error("table layout reported pointer free")
	}
	for i := 0; i < 2*words; i++ {
		want := i%words == 0 || i%words == words-1
		if got := s.NextIsPointer(); got != want {
			t.Fatalf("word %d: NextIsPointer() = %v, want %v", i, got, want)
		}
	}

	if got := table.Layout(words); got != NoPtrs {
		t.Errorf("long layout without pointers = %#x, want NoPtrs", uintptr(got))
	}

	second := table.Layout(words, 5)
	if second == long {
		t.Error("two descriptors share a layout value")
	}
	if !IsPointer(second, &table, 5) || IsPointer(second, &table, 4) {
		t.Error("IsPointer disagrees with the descriptor")
	}

	table.Reset()
	if _, ok := table.Descriptor(long); ok {
		t.Error("descriptor survived Reset")
	}
	// A missing descriptor is scanned as unknown.
	if got := bitsOf(long, &table, 3); !equalBits(got, []bool{true, true, true}) {
		t.Errorf("missing descriptor bits = %v", got)
	}
}

func TestTableLayoutPanics(t *testing.T) {
	var table Table
	for _, tc := range []struct {
		name     string
		words    int
		pointers []int
	}{
		{"zero words", 0, nil},
		{"index out of range", MaxInlineWords + 1, []int{MaxInlineWords + 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			table.Layout(tc.words, tc.pointers...)
		})
	}
}

func TestIsPointer(t *testing.T) {
	l, _ := New(3, 1)
	for i, want := range []bool{false, true, false, false, true, false} {
		if got := IsPointer(l, nil, i); got != want {
			t.Errorf("IsPointer(word %d) = %v, want %v", i, got, want)
		}
	}
	if IsPointer(NoPtrs, nil, 0) {
		t.Error("NoPtrs word reported as pointer")
	}
	if !IsPointer(Unknown, nil, 7) {
		t.Error("Unknown word reported as non-pointer")
	}
}
