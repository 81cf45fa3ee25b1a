//go:build !gcheap.asserts

package heap

// gcAsserts enables expensive sanity checks. Build with -tags gcheap.asserts
// to turn them on.
const gcAsserts = false
