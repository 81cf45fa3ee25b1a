// Command gcstress exercises a managed heap: it runs the built-in stress
// scenario, a command script, or an interactive session against either the
// collecting heap or the leaky backend.
//
// Usage:
//
//	gcstress [-config heap.yaml] [-capacity 1MB] [-leaky] [-iterations N]
//	         [-script file | -i] [-dump file] [-v]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/gofrs/flock"

	"github.com/rwwiv/gcheap"
	"github.com/rwwiv/gcheap/heap"
	"github.com/rwwiv/gcheap/leaky"
)

var (
	flagConfig      = flag.String("config", "", "YAML heap configuration file")
	flagCapacity    = flag.String("capacity", "", "heap capacity, e.g. 1MB (overrides -config)")
	flagLeaky       = flag.Bool("leaky", false, "use the non-collecting backend")
	flagIterations  = flag.Int("iterations", 1000, "stress scenario iterations")
	flagScript      = flag.String("script", "", "run commands from this file ('-' for stdin)")
	flagInteractive = flag.Bool("i", false, "read commands from the terminal")
	flagDump        = flag.String("dump", "", "write a block map of the heap to this file at exit")
	flagVerbose     = flag.Bool("v", false, "log collections to stderr")
)

func main() {
	flag.Parse()
	out := newStdoutPrinter()
	if err := run(out); err != nil {
		out.Fail("gcstress: %v", err)
		os.Exit(1)
	}
}

func run(out *printer) error {
	level := slog.LevelInfo
	if *flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := heap.DefaultConfig()
	if *flagConfig != "" {
		var err error
		if cfg, err = heap.LoadConfig(*flagConfig); err != nil {
			return err
		}
	}
	if *flagCapacity != "" {
		c, err := heap.ParseSize(*flagCapacity)
		if err != nil {
			return fmt.Errorf("-capacity: %w", err)
		}
		cfg.Capacity = c
	}
	cfg.Logger = logger
	cfg.OnFatal = func(err error) {
		out.Fail("fatal: %v", err)
		os.Exit(2)
	}

	var h gcheap.Heap
	var gc *heap.Heap
	if *flagLeaky {
		h = leaky.New(cfg.Capacity.Bytes())
	} else {
		var err error
		if gc, err = heap.New(cfg); err != nil {
			return err
		}
		defer gc.Release()
		h = gc
	}

	var err error
	switch {
	case *flagScript != "" || *flagInteractive:
		err = runCommands(h, out)
	default:
		if err = stress(h, *flagIterations); err == nil {
			out.OK("stress: %d iterations ok", *flagIterations)
		}
	}
	if err != nil {
		return err
	}
	if gc != nil {
		gc.CheckBalanced(0)
		if *flagDump != "" {
			if err := dump(gc, *flagDump); err != nil {
				return err
			}
		}
	}
	return nil
}

func runCommands(h gcheap.Heap, out *printer) error {
	it := newInterp(h, out)
	defer it.Close()

	if *flagInteractive {
		return interactive(it, out)
	}
	if *flagScript == "-" {
		return it.Run(os.Stdin)
	}
	f, err := os.Open(*flagScript)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := it.Run(f); err != nil {
		return err
	}
	out.OK("%s: ok", *flagScript)
	return nil
}

// dump writes the block map of h to path while holding an exclusive lock on
// path+".lock", so concurrent runs don't interleave their dumps.
func dump(h *heap.Heap, path string) error {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%s is locked by another process", path)
	}
	defer lock.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := h.DumpHeap(f); err != nil {
		f.Close()
		return fmt.Errorf("dump heap: %w", err)
	}
	return f.Close()
}
