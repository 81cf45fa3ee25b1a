//go:build gcheap.asserts

package heap

const gcAsserts = true
