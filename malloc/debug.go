//go:build debug

package malloc

import "unsafe"

const debugBuild = true

var poolblkinit = make([]byte, 1024)

func init() {
	for i := range poolblkinit {
		poolblkinit[i] = 0xff
	}
}

// initblock poisons a freshly carved unit with 0xff so that use of
// stale, uninitialized memory is easy to spot under a debugger.
func initblock(block uintptr, size int64) {
	dst := unsafe.Slice((*byte)(unsafe.Pointer(block)), size)
	for off := int64(0); off < size; off += int64(len(poolblkinit)) {
		n := copy(dst[off:], poolblkinit)
		_ = n
	}
}

// assertf panics with a logged message when cond is false. Compiled in
// only for debug builds; the release build's assertf is a no-op so the
// hot allocate/deallocate path pays nothing for it by default.
func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		fatalf(format, args...)
		panicerr(format, args...)
	}
}
