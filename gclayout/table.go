package gclayout

// Descriptor is an out-of-line layout: a bitstring of Words bits stored in
// little endian byte order.
type Descriptor struct {
	Words int
	Bits  []byte
}

// Table holds the out-of-line layouts of one heap. The zero value is ready to
// use.
type Table struct {
	descs []Descriptor
}

// Layout returns a layout for an element of the given number of words with
// references at the listed word indexes. Short layouts are stored inline,
// longer ones are registered in the table. It panics if an index is out of
// range or words is not positive.
func (t *Table) Layout(words int, pointers ...int) Layout {
	if l, ok := New(words, pointers...); ok {
		return l
	}
	if words <= 0 {
		panic("gclayout: layout must have at least one word")
	}
	if len(pointers) == 0 {
		return NoPtrs
	}
	bits := make([]byte, (words+7)/8)
	for _, p := range pointers {
		if p < 0 || p >= words {
			panic("gclayout: pointer index out of range")
		}
		bits[p/8] |= 1 << (p % 8)
	}
	t.descs = append(t.descs, Descriptor{Words: words, Bits: bits})
	return Layout(len(t.descs) << 1)
}

// Descriptor returns the out-of-line descriptor of l.
func (t *Table) Descriptor(l Layout) (Descriptor, bool) {
	if l == 0 || l.Inline() || t == nil {
		return Descriptor{}, false
	}
	i := l.tableIndex()
	if i < 0 || i >= len(t.descs) {
		return Descriptor{}, false
	}
	return t.descs[i], true
}

// Len returns the number of registered descriptors.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.descs)
}

// Reset drops all registered descriptors. Layouts handed out earlier become
// invalid.
func (t *Table) Reset() {
	t.descs = nil
}
