package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unsafe"

	"github.com/google/shlex"
	"github.com/inhies/go-bytesize"

	"github.com/rwwiv/gcheap"
	"github.com/rwwiv/gcheap/heap"
	"github.com/rwwiv/gcheap/leaky"
	"github.com/rwwiv/gcheap/qsn"
)

// maxVars is the number of script variables. They are all rooted by one
// frame for the lifetime of the interpreter.
const maxVars = 64

var errUsage = errors.New("usage")

// interp runs script commands against a heap.
type interp struct {
	h     gcheap.Heap
	out   *printer
	vars  [maxVars]gcheap.Ref
	names map[string]int
	frame gcheap.Frame
}

func newInterp(h gcheap.Heap, out *printer) *interp {
	it := &interp{h: h, out: out, names: make(map[string]int)}
	slots := make([]*gcheap.Ref, maxVars)
	for i := range it.vars {
		slots[i] = &it.vars[i]
	}
	it.frame = h.PushRoots(slots...)
	return it
}

// Close deregisters the interpreter's variables.
func (it *interp) Close() {
	it.frame.Pop()
}

// slot returns the index of a variable, creating it if create is set.
func (it *interp) slot(name string, create bool) (int, error) {
	if i, ok := it.names[name]; ok {
		return i, nil
	}
	if !create {
		return 0, fmt.Errorf("undefined variable %q", name)
	}
	if len(it.names) == maxVars {
		return 0, fmt.Errorf("too many variables (max %d)", maxVars)
	}
	i := len(it.names)
	it.names[name] = i
	return i, nil
}

func (it *interp) get(name string) (gcheap.Ref, error) {
	i, err := it.slot(name, false)
	if err != nil {
		return gcheap.Nil, err
	}
	if it.vars[i] == gcheap.Nil {
		return gcheap.Nil, fmt.Errorf("variable %q is nil", name)
	}
	return it.vars[i], nil
}

func (it *interp) set(name string, r gcheap.Ref) error {
	i, err := it.slot(name, true)
	if err != nil {
		return err
	}
	it.vars[i] = r
	return nil
}

// Run executes every line of r, stopping at the first error.
func (it *interp) Run(r io.Reader) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if err := it.Exec(sc.Text()); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}

// Exec executes one command line. Blank lines and lines starting with '#'
// are ignored.
func (it *interp) Exec(line string) error {
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return nil
	}
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil
	}
	cmd, args := args[0], args[1:]
	if err := it.exec(cmd, args); err != nil {
		if errors.Is(err, errUsage) {
			return fmt.Errorf("%s: %w: %s", cmd, err, usage[cmd])
		}
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

var usage = map[string]string{
	"string":      "string VAR TEXT",
	"slots":       "slots VAR N",
	"set":         "set VAR I SRC",
	"get":         "get DST VAR I",
	"drop":        "drop VAR",
	"print":       "print VAR",
	"xescape":     "xescape DST VAR",
	"encode":      "encode DST VAR",
	"garbage":     "garbage N SIZE",
	"collect":     "collect",
	"stats":       "stats",
	"assert-live": "assert-live VAR TEXT",
}

func (it *interp) exec(cmd string, args []string) error {
	h := it.h
	want := func(n int) error {
		if len(args) != n {
			return errUsage
		}
		return nil
	}

	switch cmd {
	case "string":
		if err := want(2); err != nil {
			return err
		}
		return it.set(args[0], h.NewStringFrom(args[1]))

	case "slots":
		if err := want(2); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return errUsage
		}
		return it.set(args[0], h.NewSlots(n))

	case "set":
		if err := want(3); err != nil {
			return err
		}
		obj, err := it.get(args[0])
		if err != nil {
			return err
		}
		i, err := it.field(obj, args[1])
		if err != nil {
			return err
		}
		src := gcheap.Nil
		if args[2] != "nil" {
			if src, err = it.get(args[2]); err != nil {
				return err
			}
		}
		h.StoreRef(obj, i, src)
		return nil

	case "get":
		if err := want(3); err != nil {
			return err
		}
		obj, err := it.get(args[1])
		if err != nil {
			return err
		}
		i, err := it.field(obj, args[2])
		if err != nil {
			return err
		}
		return it.set(args[0], h.LoadRef(obj, i))

	case "drop":
		if err := want(1); err != nil {
			return err
		}
		return it.set(args[0], gcheap.Nil)

	case "print":
		if err := want(1); err != nil {
			return err
		}
		r, err := it.get(args[0])
		if err != nil {
			return err
		}
		it.print(args[0], r)
		return nil

	case "xescape", "encode":
		if err := want(2); err != nil {
			return err
		}
		r, err := it.get(args[1])
		if err != nil {
			return err
		}
		if cmd == "xescape" {
			return it.set(args[0], qsn.XEscape(h, r))
		}
		return it.set(args[0], qsn.Encode(h, r))

	case "garbage":
		if err := want(2); err != nil {
			return err
		}
		n, err1 := strconv.Atoi(args[0])
		sz, err2 := heap.ParseSize(args[1])
		if err1 != nil || err2 != nil || n < 0 {
			return errUsage
		}
		for i := 0; i < n; i++ {
			h.Allocate(uintptr(sz.Bytes()))
		}
		return nil

	case "collect":
		if err := want(0); err != nil {
			return err
		}
		h.Collect()
		return nil

	case "stats":
		if err := want(0); err != nil {
			return err
		}
		it.stats()
		return nil

	case "assert-live":
		if err := want(2); err != nil {
			return err
		}
		r, err := it.get(args[0])
		if err != nil {
			return err
		}
		if got := gcheap.StringOf(h, r); got != args[1] {
			return fmt.Errorf("%s = %q, want %q", args[0], got, args[1])
		}
		return nil
	}
	return fmt.Errorf("unknown command")
}

// field parses a slot index of obj. Scripts only store Refs in slot objects,
// the one kind whose every word is traced.
func (it *interp) field(obj gcheap.Ref, arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errUsage
	}
	if k := it.h.Kind(obj); k != gcheap.KindSlots {
		return 0, fmt.Errorf("%s object has no slots", k)
	}
	if n := words(it.h, obj); i < 0 || i >= n {
		return 0, fmt.Errorf("field %d out of range (%d words)", i, n)
	}
	return i, nil
}

func (it *interp) print(name string, r gcheap.Ref) {
	h := it.h
	switch h.Kind(r) {
	case gcheap.KindString:
		enc := qsn.Encode(h, r)
		it.out.Printf("%s = %s\n", name, gcheap.StringOf(h, enc))
	case gcheap.KindSlots:
		n := words(h, r)
		var b strings.Builder
		for i := 0; i < n; i++ {
			if i > 0 {
				b.WriteString(" ")
			}
			if f := h.LoadRef(r, i); f == gcheap.Nil {
				b.WriteString("nil")
			} else {
				fmt.Fprintf(&b, "%#x", uintptr(f))
			}
		}
		it.out.Printf("%s = slots[%s]\n", name, b.String())
	default:
		it.out.Printf("%s = %v(%d bytes)\n", name, h.Kind(r), h.Len(r))
	}
}

func (it *interp) stats() {
	switch h := it.h.(type) {
	case *heap.Heap:
		var m heap.MemStats
		h.ReadMemStats(&m)
		it.out.Printf("in use %s, idle %s, headroom %s, objects %d\n",
			size(m.HeapInuse), size(m.HeapIdle), size(m.Headroom), m.HeapObjects)
		it.out.Printf("mallocs %d, frees %d, gc %d (pause %v), roots %d in %d frames\n",
			m.Mallocs, m.Frees, m.NumGC, m.PauseTotal, m.RootSlots, m.Frames)
	case *leaky.Heap:
		var m leaky.MemStats
		h.ReadMemStats(&m)
		it.out.Printf("in use %s of %s in %d chunks, mallocs %d (leaky)\n",
			size(m.HeapInuse), size(m.Sys), m.Chunks, m.Mallocs)
	}
}

const wordBytes = int(unsafe.Sizeof(uintptr(0)))

func words(h gcheap.Heap, r gcheap.Ref) int {
	return h.Len(r) / wordBytes
}

func size(n uint64) string {
	return bytesize.New(float64(n)).String()
}
