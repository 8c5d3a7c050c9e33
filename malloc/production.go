//go:build !debug

package malloc

import "unsafe"

const debugBuild = false

var zeroblkinit = make([]byte, 1024)

// initblock zero-fills a freshly carved unit. Cheaper than debug's
// poison fill and what applications actually expect from a general
// purpose allocator.
func initblock(block uintptr, size int64) {
	dst := unsafe.Slice((*byte)(unsafe.Pointer(block)), size)
	for off := int64(0); off < size; off += int64(len(zeroblkinit)) {
		copy(dst[off:], zeroblkinit)
	}
}

// assertf is a no-op in release builds: contract violations (double
// free, foreign pointer, mismatched size) are undefined behavior here,
// same as with the system allocator.
func assertf(cond bool, format string, args ...interface{}) {}
