package gclayout

// Scanner walks the words of one object and tells, for each word, whether it
// may hold a reference. It is only valid for the layout and table it was
// created with.
type Scanner struct {
	index  uintptr
	size   uintptr
	bitmap uintptr
	bits   []byte
}

// NewScanner returns a scanner positioned at the first word of an object with
// layout l. Out-of-line layouts are looked up in t. An out-of-line layout that
// is missing from t is scanned as Unknown.
func NewScanner(l Layout, t *Table) Scanner {
	scanner := Scanner{}
	switch {
	case l == Unknown:
		// Unknown layout. Assume all words in the object could be pointers.
		scanner.size = 1
		scanner.bitmap = 1
	case l.Inline():
		scanner.size, scanner.bitmap = l.words()
	default:
		d, ok := t.Descriptor(l)
		if !ok {
			scanner.size = 1
			scanner.bitmap = 1
			break
		}
		scanner.size = uintptr(d.Words)
		scanner.bits = d.Bits
	}
	return scanner
}

// PointerFree reports whether no word of the object can be a reference.
func (scanner *Scanner) PointerFree() bool {
	if scanner.bits != nil {
		// Table layouts always hold at least one reference.
		return false
	}
	return scanner.bitmap == 0
}

// NextIsPointer reports whether the current word may be a reference and moves
// on to the next word. The bitstring wraps around at its end.
func (scanner *Scanner) NextIsPointer() bool {
	index := scanner.index
	scanner.index++
	if scanner.index == scanner.size {
		scanner.index = 0
	}

	if scanner.bits != nil {
		return (scanner.bits[index/8]>>(index%8))&1 != 0
	}
	return (scanner.bitmap>>index)&1 != 0
}

// IsPointer reports whether word i of an object with layout l may hold a
// reference.
func IsPointer(l Layout, t *Table, i int) bool {
	scanner := NewScanner(l, t)
	if scanner.PointerFree() {
		return false
	}
	scanner.index = uintptr(i) % scanner.size
	return scanner.NextIsPointer()
}
