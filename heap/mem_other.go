//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package heap

import "github.com/rwwiv/gcheap/internal/object"

const defaultBacking = BackingGo

func mapRegion(size int, backing Backing) (object.Memory, func() error, error) {
	return goRegion(size)
}
