package heap

import "time"

// MemStats records statistics about the heap.
type MemStats struct {
	Sys         uint64 // bytes in the region, metadata included
	HeapSys     uint64 // bytes available for blocks
	GCSys       uint64 // bytes of block metadata
	HeapInuse   uint64 // bytes in allocated blocks
	HeapIdle    uint64 // bytes in free blocks
	HeapAlloc   uint64 // same as HeapInuse
	TotalAlloc  uint64 // cumulative bytes requested
	Mallocs     uint64 // cumulative count of allocations
	Frees       uint64 // cumulative count of reclaimed objects
	HeapObjects uint64 // live objects

	NumGC      uint32
	PauseTotal time.Duration
	LastFreed  uint64 // bytes reclaimed by the last collection
	Headroom   uint64 // largest payload allocatable without a collection
	Frames     int    // active root frames
	RootSlots  int    // registered root slots
	Layouts    int    // out-of-line layouts
}

// ReadMemStats populates m with heap statistics. It does not collect.
func (h *Heap) ReadMemStats(m *MemStats) {
	*m = MemStats{}
	if h.mem == nil {
		return
	}
	m.Sys = uint64(len(h.mem))
	m.HeapSys = uint64(h.endBlock.address())
	m.GCSys = uint64(uintptr(len(h.mem)) - h.metadataStart)

	// Count live heads. Since we are outside of a collection, nothing is
	// marked.
	var liveHeads uint64
	for b := gcBlock(0); b < h.endBlock; b++ {
		if h.state(b) == blockStateHead {
			liveHeads++
		}
	}
	m.HeapObjects = liveHeads
	m.HeapInuse = uint64(h.InUse())
	m.HeapAlloc = m.HeapInuse
	m.HeapIdle = uint64(h.freeBlocks * bytesPerBlock)

	m.TotalAlloc = h.totalAlloc
	m.Mallocs = h.mallocs
	m.Frees = h.frees
	m.NumGC = h.numGC
	m.PauseTotal = h.pauseTotal
	m.LastFreed = uint64(h.lastFreed)
	m.Headroom = uint64(h.Headroom())
	m.Frames = len(h.frames)
	m.RootSlots = h.rootSlots
	m.Layouts = h.layouts.Len()
}

// InUse returns the number of bytes in allocated blocks.
func (h *Heap) InUse() uintptr {
	return (uintptr(h.endBlock) - h.freeBlocks) * bytesPerBlock
}

// Free returns the number of bytes in free blocks.
func (h *Heap) Free() uintptr {
	return h.freeBlocks * bytesPerBlock
}

// Capacity returns the size of the region in bytes.
func (h *Heap) Capacity() int {
	return len(h.mem)
}

// NumGC returns the number of completed collections since the last Init.
func (h *Heap) NumGC() uint32 {
	return h.numGC
}
