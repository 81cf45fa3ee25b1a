// Package gcheap defines the surface shared by the managed heap backends.
//
// # Overview
//
// A managed heap hands out references (Ref) into a region of memory it owns.
// Objects reference each other only through words their layout marks as
// references, so the collector can find every outgoing edge without knowing
// anything else about the object.
//
// Two backends implement Heap:
//
//   - heap: a precise mark/sweep collector over a fixed region.
//   - leaky: a bump allocator that never frees anything.
//
// The same consumer code runs against either one.
//
// # Roots
//
// The collector only knows about references it can reach from registered
// root slots. Every function that keeps a Ref in a local variable across a
// call that may allocate must register the address of that variable for as
// long as the variable is in use:
//
//	var s, x gcheap.Ref
//	defer h.PushRoots(&s, &x).Pop()
//
//	s = h.NewStringFrom("a")
//	x = qsn.XEscape(h, s) // may collect; s is still rooted
//
// A Ref that is held in an unregistered variable while a collection runs may
// point to reclaimed memory afterwards. The heap cannot detect this. Frames
// are strictly last-in first-out; popping out of order is fatal.
//
// # Pointer stability
//
// Both backends are non-moving: a Ref stays valid, and a []byte returned by
// Bytes stays pointed at the same object, for as long as the object is
// reachable.
package gcheap
