//go:build linux || darwin || freebsd || netbsd || openbsd

package heap

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/rwwiv/gcheap/internal/object"
)

const defaultBacking = BackingMmap

// mapRegion returns a zeroed region of size bytes and a function that gives
// it back.
func mapRegion(size int, backing Backing) (object.Memory, func() error, error) {
	if backing == BackingGo {
		return goRegion(size)
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return object.Memory(b), func() error { return unix.Munmap(b) }, nil
}
