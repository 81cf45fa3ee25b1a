package heap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rwwiv/gcheap"
	"github.com/rwwiv/gcheap/gclayout"
	"github.com/rwwiv/gcheap/internal/object"
)

const wordSize = object.WordSize

// Heap is a precise mark/sweep heap. The zero value is not usable; create one
// with New.
type Heap struct {
	cfg Config
	log *slog.Logger

	mem     object.Memory // the whole region, metadata included
	release func() error

	metadataStart uintptr // offset of the block state area
	endBlock      gcBlock // the block just past the end of the available space
	freeRanges    gcBlock // shortest entry of the outer free range list
	freeBlocks    uintptr // number of blocks on the free range lists

	frames      []rootFrame
	rootSlots   int
	frameSerial uint64
	initSerial  uint64 // frames with a lower serial belong to an earlier Init

	markStack  []gcheap.Ref
	layouts    gclayout.Table
	collecting bool

	totalAlloc uint64        // total number of bytes requested
	mallocs    uint64        // total number of allocations
	frees      uint64        // total number of objects reclaimed
	numGC      uint32        // number of completed collections
	sinceGC    uintptr       // bytes requested since the last collection
	pauseTotal time.Duration // time spent collecting
	lastFreed  uintptr       // bytes reclaimed by the last collection
}

var _ gcheap.Heap = (*Heap)(nil)

// New creates a heap from cfg. Unset fields take their default values.
func New(cfg Config) (*Heap, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	h := &Heap{cfg: cfg, log: cfg.Logger}
	if h.log == nil {
		h.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := h.Init(cfg.Capacity.Bytes()); err != nil {
		return nil, err
	}
	return h, nil
}

// Init (re)initializes the heap with a region of capacity bytes. All Refs
// handed out before are invalid afterwards, all root frames are dropped and
// all counters are reset.
func (h *Heap) Init(capacity int) error {
	if h.collecting {
		h.fatalf(gcheap.ErrReentrant, "Init during collection")
	}
	if capacity <= 0 {
		return fmt.Errorf("invalid heap capacity %d", capacity)
	}
	metadataStart, endBlock := calculateHeapAddresses(uintptr(capacity))
	if endBlock == 0 {
		return fmt.Errorf("heap capacity %d is too small for a single block", capacity)
	}
	if err := h.Release(); err != nil {
		return err
	}
	mem, release, err := mapRegion(capacity, h.cfg.Backing)
	if err != nil {
		return fmt.Errorf("init heap: %w", err)
	}

	h.mem = mem
	h.release = release
	h.cfg.Capacity = Size(capacity)
	h.metadataStart = metadataStart
	h.endBlock = endBlock

	// Set all block states to 'free'.
	clear(h.mem[h.metadataStart:])

	h.frames = h.frames[:0]
	h.rootSlots = 0
	h.initSerial = h.frameSerial
	h.markStack = h.markStack[:0]
	h.layouts.Reset()
	h.totalAlloc, h.mallocs, h.frees, h.numGC = 0, 0, 0, 0
	h.sinceGC, h.pauseTotal, h.lastFreed = 0, 0, 0

	// Rebuild the free ranges list.
	h.buildFreeRanges()

	h.log.Debug("gc: heap initialized",
		"capacity", capacity,
		"blocks", uint64(endBlock),
		"metadata", capacity-int(metadataStart),
		"backing", string(h.cfg.Backing))
	return nil
}

// Release gives the region back. Every later use of the heap except Init
// panics.
func (h *Heap) Release() error {
	if h.mem == nil {
		return nil
	}
	var err error
	if h.release != nil {
		err = h.release()
	}
	h.mem = nil
	h.release = nil
	h.endBlock = 0
	h.freeRanges = noBlock
	h.freeBlocks = 0
	if err != nil {
		return fmt.Errorf("release heap: %w", err)
	}
	return nil
}

// calculateHeapAddresses splits a region of totalSize bytes into blocks and
// the metadata area that keeps 2 bits of information about every block.
func calculateHeapAddresses(totalSize uintptr) (metadataStart uintptr, endBlock gcBlock) {
	metadataSize := (totalSize + blocksPerStateByte*bytesPerBlock) / (1 + blocksPerStateByte*bytesPerBlock)
	metadataStart = totalSize - metadataSize

	// Use the rest of the available memory as heap.
	numBlocks := metadataStart / bytesPerBlock
	if metadataSize*blocksPerStateByte < numBlocks {
		// sanity check
		panic("gc: metadata array is too small")
	}
	return metadataStart, gcBlock(numBlocks)
}

func goRegion(size int) (object.Memory, func() error, error) {
	return make(object.Memory, size), nil, nil
}

// fatalf reports an unrecoverable condition: the error is logged, handed to
// Config.OnFatal and then raised as a panic.
func (h *Heap) fatalf(sentinel error, format string, args ...interface{}) {
	err := fmt.Errorf("gc: %w: %s", sentinel, fmt.Sprintf(format, args...))
	h.log.Error("gc: fatal", "err", err)
	if h.cfg.OnFatal != nil {
		h.cfg.OnFatal(err)
	}
	panic(err)
}

// mustBeUsable panics if the heap was released or is collecting.
func (h *Heap) mustBeUsable() {
	if h.mem == nil {
		panic("gc: use of released heap")
	}
	if h.collecting {
		h.fatalf(gcheap.ErrReentrant, "heap used during collection")
	}
}

// AsFatal returns v, a value recovered from a panic, if it is a fatal heap
// error, and nil otherwise.
func AsFatal(v interface{}) error {
	err, ok := v.(error)
	if !ok {
		return nil
	}
	for _, sentinel := range []error{gcheap.ErrOutOfMemory, gcheap.ErrUnbalancedFrame, gcheap.ErrInvalidRef, gcheap.ErrReentrant} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return nil
}

// Layouts returns the table of out-of-line layouts of this heap.
func (h *Heap) Layouts() *gclayout.Table {
	return &h.layouts
}

// Layout returns a layout for objects made of elements of the given number of
// words with references at the listed word indexes.
func (h *Heap) Layout(words int, pointers ...int) gclayout.Layout {
	return h.layouts.Layout(words, pointers...)
}
