package main

import (
	"fmt"
	"strings"

	"github.com/rwwiv/gcheap"
	"github.com/rwwiv/gcheap/qsn"
)

const longLived = "long-lived string"

// stress allocates and drops short-lived strings while one long-lived string
// stays rooted, and checks the escaping codec on every iteration.
func stress(h gcheap.Heap, iterations int) error {
	var long, short, x, u gcheap.Ref
	defer h.PushRoots(&long, &short, &x, &u).Pop()

	long = h.NewStringFrom(longLived)
	addr := long
	for i := 0; i < iterations; i++ {
		text := fmt.Sprintf("short-%d", i)
		short = h.NewStringFrom(text)
		x = qsn.XEscape(h, short)
		if got, want := gcheap.StringOf(h, x), xEscaped(text); got != want {
			return fmt.Errorf("iteration %d: XEscape(%q) = %q, want %q", i, text, got, want)
		}

		u = qsn.UEscape(h, rune(0x61+i%26))
		if got, want := gcheap.StringOf(h, u), fmt.Sprintf(`\u{%x}`, 0x61+i%26); got != want {
			return fmt.Errorf("iteration %d: UEscape = %q, want %q", i, got, want)
		}

		// Unrooted garbage.
		h.Allocate(uintptr(16 + i%64))
		short, x, u = gcheap.Nil, gcheap.Nil, gcheap.Nil
	}

	if long != addr {
		return fmt.Errorf("long-lived string moved from %#x to %#x", uintptr(addr), uintptr(long))
	}
	if got := gcheap.StringOf(h, long); got != longLived {
		return fmt.Errorf("long-lived string = %q, want %q", got, longLived)
	}
	return nil
}

func xEscaped(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		fmt.Fprintf(&b, `\x%02x`, s[i])
	}
	return b.String()
}
