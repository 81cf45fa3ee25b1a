package qsn

import (
	"fmt"
	"testing"

	"github.com/rwwiv/gcheap"
	"github.com/rwwiv/gcheap/heap"
	"github.com/rwwiv/gcheap/leaky"
)

// backends returns a fresh heap of every kind.
func backends(t *testing.T) map[string]gcheap.Heap {
	t.Helper()
	gc, err := heap.New(heap.Config{Capacity: 16 << 10, Backing: heap.BackingGo})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { gc.Release() })
	return map[string]gcheap.Heap{
		"heap":  gc,
		"leaky": leaky.New(0),
	}
}

func TestXEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"a", `\x61`},
		{"hi", `\x68\x69`},
		{"\x00\xff\n", `\x00\xff\x0a`},
	}
	for name, h := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for rep := 0; rep < 10; rep++ {
				for _, tt := range tests {
					var s, x gcheap.Ref
					f := h.PushRoots(&s, &x)
					s = h.NewStringFrom(tt.in)
					x = XEscape(h, s)
					h.Collect()
					if got := gcheap.StringOf(h, x); got != tt.want {
						t.Errorf("XEscape(%q) = %q, want %q", tt.in, got, tt.want)
					}
					if got := gcheap.StringOf(h, s); got != tt.in {
						t.Errorf("input changed to %q", got)
					}
					f.Pop()
				}
			}
		})
	}
}

func TestUEscape(t *testing.T) {
	tests := []struct {
		in   rune
		want string
	}{
		{0x61, `\u{61}`},
		{0, `\u{0}`},
		{'é', `\u{e9}`},
		{0x1f600, `\u{1f600}`},
	}
	for name, h := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for rep := 0; rep < 10; rep++ {
				for _, tt := range tests {
					var u gcheap.Ref
					f := h.PushRoots(&u)
					u = UEscape(h, tt.in)
					h.Allocate(64)
					h.Collect()
					if got := gcheap.StringOf(h, u); got != tt.want {
						t.Errorf("UEscape(%#x) = %q, want %q", tt.in, got, tt.want)
					}
					f.Pop()
				}
			}
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", `''`},
		{"plain", "plain"},
		{"a/b.c-d_e=f:g,h+i@j%k", "a/b.c-d_e=f:g,h+i@j%k"},
		{"hello world", `'hello world'`},
		{"$HOME", `'$HOME'`},
		{"it's", `$'it\'s'`},
		{"a\nb\tc\r", `$'a\nb\tc\r'`},
		{`back\slash`, `'back\slash'`},
		{"back\\slash\n", `$'back\\slash\n'`},
		{"nul\x00", `$'nul\x00'`},
		{"del\x7f", `$'del\x7f'`},
		{"héllo", `$'héllo'`},
		{"bad\xffutf8", `$'bad\xffutf8'`},
	}
	for name, h := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, tt := range tests {
				var s, e gcheap.Ref
				f := h.PushRoots(&s, &e)
				s = h.NewStringFrom(tt.in)
				e = Encode(h, s)
				h.Collect()
				if got := gcheap.StringOf(h, e); got != tt.want {
					t.Errorf("Encode(%q) = %s, want %s", tt.in, got, tt.want)
				}
				f.Pop()
			}
		})
	}
}

func TestInputsRootedDuringCall(t *testing.T) {
	gc, err := heap.New(heap.Config{Capacity: 4 << 10, Backing: heap.BackingGo})
	if err != nil {
		t.Fatal(err)
	}
	defer gc.Release()

	// Fill the heap with garbage so that every escape collects while only
	// the function itself holds the input.
	for i := 0; i < 50; i++ {
		gc.Collect()
		var out gcheap.Ref
		f := gc.PushRoots(&out)
		in := gc.NewStringFrom(fmt.Sprintf("input %d", i))
		gc.Allocate(gc.Headroom())
		if gc.Free() != 0 {
			t.Fatalf("%d bytes still free", gc.Free())
		}
		out = XEscape(gc, in)
		if got, want := gcheap.StringOf(gc, out), escaped(fmt.Sprintf("input %d", i)); got != want {
			t.Fatalf("XEscape = %q, want %q", got, want)
		}
		f.Pop()
	}
	if gc.NumGC() != 100 {
		t.Errorf("NumGC() = %d, want 100", gc.NumGC())
	}
}

func escaped(s string) string {
	out := make([]byte, 0, 4*len(s))
	for i := 0; i < len(s); i++ {
		out = appendX(out, s[i])
	}
	return string(out)
}

func BenchmarkXEscape(b *testing.B) {
	h, err := heap.New(heap.Config{Capacity: 1 << 20, Backing: heap.BackingGo})
	if err != nil {
		b.Fatal(err)
	}
	defer h.Release()

	var s gcheap.Ref
	defer h.PushRoots(&s).Pop()
	s = h.NewStringFrom("benchmark input string")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		XEscape(h, s)
	}
}
