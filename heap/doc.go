// Package heap implements a precise, explicitly rooted mark/sweep heap over a
// fixed region of memory.
//
// The memory manager uses blocks of 4 words (see bytesPerBlock). Every
// allocation is rounded up to whole blocks, including a two-word header that
// holds the object's layout, length and kind. It first tries to find a free
// range of blocks that is big enough. If there is none, it runs a collection
// and tries once more. If it still cannot find space, the heap fails fatally.
//
// Every block has 2 bits of metadata, stored in an area at the end of the
// region. The four states are "free", "head", "tail" and "mark". Outside a
// collection there are no marked blocks. Every object starts with a head
// block followed by tail blocks, so the extent of any object can be found
// from its head.
//
// Free ranges are kept in two nested intrusive lists stored in the free
// blocks themselves: one entry per distinct range length, ordered by length,
// each with a list of further ranges of the same length. The lists are
// rebuilt after each sweep.
//
// # Roots
//
// The collector never scans the goroutine stack. It traces only from the
// slots registered with PushRoots, and from there through every word that an
// object's layout marks as a reference. A Ref held in a variable that is not
// registered while a collection runs is a dangling reference afterwards. The
// heap cannot detect this in general: Bytes, LoadRef and friends reject a Ref
// whose block is free, but not one whose block has been reused. Register
// every local Ref before any call that may allocate.
//
// # Pointer stability
//
// Objects never move. A Ref, and a slice returned by Bytes, stays valid for
// as long as the object is reachable from the roots.
//
// # Concurrency
//
// A Heap must only be used from one goroutine. Separate heaps are
// independent.
//
// More information:
// https://aykevl.nl/2020/09/gc-tinygo
// "The Garbage Collection Handbook" by Richard Jones, Antony Hosking, Eliot
// Moss.
package heap
