package heap

import (
	"bufio"
	"fmt"
	"io"
)

// DumpHeap writes the state of each block to w, 64 blocks per line:
// '*' for a head, '-' for a tail, '#' for a marked head and '·' for a free
// block. It is followed by the free range counts.
func (h *Heap) DumpHeap(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "heap:")
	for block := gcBlock(0); block < h.endBlock; block++ {
		switch h.state(block) {
		case blockStateHead:
			bw.WriteString("*")
		case blockStateTail:
			bw.WriteString("-")
		case blockStateMark:
			bw.WriteString("#")
		default: // free
			bw.WriteString("·")
		}
		if block%64 == 63 || block+1 == h.endBlock {
			bw.WriteString("\n")
		}
	}
	fmt.Fprintln(bw, "free ranges:")
	lengths, counts := h.freeRangeCounts()
	for i := range lengths {
		fmt.Fprintf(bw, "- %d x %d\n", lengths[i], counts[i])
	}
	return bw.Flush()
}
