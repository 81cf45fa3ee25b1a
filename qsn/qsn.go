// Package qsn turns managed strings into quoted, human-readable forms.
//
// Every function takes its input as a Ref on h and returns a new string
// object on h. Inputs are registered as roots for the duration of the call,
// so callers only need to root what they keep.
package qsn

import (
	"strconv"
	"unicode/utf8"

	"github.com/rwwiv/gcheap"
)

const hexDigits = "0123456789abcdef"

// XEscape returns s with every byte written as \xNN.
func XEscape(h gcheap.Heap, s gcheap.Ref) gcheap.Ref {
	defer h.PushRoots(&s).Pop()

	in := h.Bytes(s)
	out := make([]byte, 0, 4*len(in))
	for _, c := range in {
		out = appendX(out, c)
	}
	return h.NewString(out)
}

// UEscape returns the code point r written as \u{N...} in lower case hex.
func UEscape(h gcheap.Heap, r rune) gcheap.Ref {
	out := make([]byte, 0, 12)
	out = appendU(out, r)
	return h.NewString(out)
}

// Encode returns s quoted so that a POSIX shell reads it back as the same
// bytes:
//   - the empty string is ''
//   - a string of shell-safe bytes is returned as is
//   - a printable string without single quotes is wrapped in '...'
//   - anything else is written as $'...' with C-style escapes; valid UTF-8
//     is kept, other bytes become \xNN.
func Encode(h gcheap.Heap, s gcheap.Ref) gcheap.Ref {
	defer h.PushRoots(&s).Pop()

	in := h.Bytes(s)
	switch {
	case len(in) == 0:
		return h.NewStringFrom("''")
	case isShellSafe(in):
		return h.NewString(in)
	case isPlain(in):
		out := make([]byte, 0, len(in)+2)
		out = append(out, '\'')
		out = append(out, in...)
		out = append(out, '\'')
		return h.NewString(out)
	}

	out := make([]byte, 0, 2*len(in)+3)
	out = append(out, '$', '\'')
	for i := 0; i < len(in); {
		c := in[i]
		switch c {
		case '\\':
			out = append(out, '\\', '\\')
		case '\'':
			out = append(out, '\\', '\'')
		case '\n':
			out = append(out, '\\', 'n')
		case '\t':
			out = append(out, '\\', 't')
		case '\r':
			out = append(out, '\\', 'r')
		default:
			if c >= utf8.RuneSelf {
				r, size := utf8.DecodeRune(in[i:])
				if r == utf8.RuneError && size == 1 {
					out = appendX(out, c)
				} else {
					out = append(out, in[i:i+size]...)
				}
				i += size
				continue
			}
			if c < 0x20 || c == 0x7f {
				out = appendX(out, c)
			} else {
				out = append(out, c)
			}
		}
		i++
	}
	out = append(out, '\'')
	return h.NewString(out)
}

func appendX(out []byte, c byte) []byte {
	return append(out, '\\', 'x', hexDigits[c>>4], hexDigits[c&0xf])
}

func appendU(out []byte, r rune) []byte {
	out = append(out, '\\', 'u', '{')
	out = strconv.AppendInt(out, int64(r), 16)
	return append(out, '}')
}

// isShellSafe reports whether every byte of b can appear unquoted in a shell
// word.
func isShellSafe(b []byte) bool {
	for _, c := range b {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case c == '_', c == '-', c == '.', c == '/', c == '=', c == ':', c == ',', c == '+', c == '@', c == '%':
		default:
			return false
		}
	}
	return true
}

// isPlain reports whether b can be wrapped in single quotes as is.
func isPlain(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c >= 0x7f || c == '\'' {
			return false
		}
	}
	return true
}
