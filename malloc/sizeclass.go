package malloc

import "fmt"

// Alignment is the machine-word boundary every allocation is rounded up
// to. It is also the minimum allocation size, since a free unit must be
// able to hold its own intrusive next-pointer.
const Alignment = int64(8)

// PageSize is the unit the page cache deals in.
const PageSize = int64(4096)

// MaxCachedUnitSize is the largest request serviced by the tiered
// caches; anything bigger takes the oversize path straight to the page
// cache, which maps its own pages from the OS for it.
const MaxCachedUnitSize = int64(16 * 1024)

// NumSizeClasses is the number of distinct unit sizes the tiered caches
// recognize, one per multiple of Alignment up to MaxCachedUnitSize.
const NumSizeClasses = int(MaxCachedUnitSize / Alignment)

// MaxUnitsPerSpan bounds how many units a single page-span can carve in
// its debug (bitmap) accounting form.
const MaxUnitsPerSpan = int64(PageSize / Alignment)

// MaxFreeBytesPerList caps how many bytes a thread cache is allowed to
// hold, per size class, before it spills half of it back to the central
// cache. Overridable at startup via ApplySettings (config.go).
var MaxFreeBytesPerList = int64(256 * 1024)

// BulkPageRequest is the minimum number of pages the page cache fetches
// from the OS on a miss, roughly 8MiB at the default PageSize.
// Overridable at startup via ApplySettings (config.go).
var BulkPageRequest = int64(2048)

// align rounds n up to the next multiple of Alignment. Undefined for n == 0.
func align(n int64) int64 {
	return alignTo(n, Alignment)
}

// alignTo rounds n up to the next multiple of boundary, which must be a
// power of two. Used for both Alignment (size classes) and PageSize
// (page cache requests).
func alignTo(n, boundary int64) int64 {
	return (n + boundary - 1) &^ (boundary - 1)
}

// classIndex returns the size-class index that serves requests of n
// bytes. Undefined for n == 0.
func classIndex(n int64) int {
	return int(align(n)/Alignment) - 1
}

// unitSize returns the fixed unit size handed out by size class i.
func unitSize(i int) int64 {
	return int64(i+1) * Alignment
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
