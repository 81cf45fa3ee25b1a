package heap

import "github.com/rwwiv/gcheap"

// rootFrame is one entry of the root frame stack.
type rootFrame struct {
	slots  []*gcheap.Ref
	serial uint64
}

// PushRoots registers the addresses of local Ref variables as roots. They
// stay registered until the returned frame is popped, which must happen on
// every exit path of the scope that pushed it:
//
//	var s, x gcheap.Ref
//	defer h.PushRoots(&s, &x).Pop()
//
// The collector reads the slots when it runs, so later assignments to the
// variables are seen.
func (h *Heap) PushRoots(slots ...*gcheap.Ref) gcheap.Frame {
	h.mustBeUsable()
	for i, slot := range slots {
		if slot == nil {
			h.fatalf(gcheap.ErrInvalidRef, "root slot %d is nil", i)
		}
	}
	h.frameSerial++
	depth := len(h.frames)
	h.frames = append(h.frames, rootFrame{slots: slots, serial: h.frameSerial})
	h.rootSlots += len(slots)
	return gcheap.NewFrame(h, depth, h.frameSerial)
}

// PopFrame removes f from the root frame stack. It fails fatally with
// ErrUnbalancedFrame unless f is the topmost frame. Frames pushed before the
// last Init are ignored.
func (h *Heap) PopFrame(f gcheap.Frame) {
	if f.Serial() <= h.initSerial {
		return
	}
	if h.collecting {
		h.fatalf(gcheap.ErrReentrant, "root frame popped during collection")
	}
	top := len(h.frames) - 1
	if top < 0 || f.Depth() != top || h.frames[top].serial != f.Serial() {
		h.fatalf(gcheap.ErrUnbalancedFrame, "pop of frame %d (serial %d) with %d frames active", f.Depth(), f.Serial(), len(h.frames))
	}
	h.rootSlots -= len(h.frames[top].slots)
	h.frames[top] = rootFrame{}
	h.frames = h.frames[:top]
}

// Frames returns the number of active root frames.
func (h *Heap) Frames() int {
	return len(h.frames)
}

// RootSlots returns the number of slots registered across all active frames.
func (h *Heap) RootSlots() int {
	return h.rootSlots
}

// CheckBalanced fails with ErrUnbalancedFrame unless exactly depth frames are
// active. Drivers call it after a unit of work to catch frames that were
// never popped.
func (h *Heap) CheckBalanced(depth int) {
	if len(h.frames) != depth {
		h.fatalf(gcheap.ErrUnbalancedFrame, "%d root frames active, want %d", len(h.frames), depth)
	}
}

// markFrames marks every object referenced from a registered slot, bottom
// frame first.
func (h *Heap) markFrames() {
	for _, frame := range h.frames {
		for _, slot := range frame.slots {
			root := *slot
			if !h.markRoot(root) && gcAsserts {
				h.fatalf(gcheap.ErrInvalidRef, "root slot holds %#x, which is not a live object", uintptr(root))
			}
		}
	}
}
