//go:build !debug

package malloc

import "unsafe"

// pageSpan tracks, for a single run of pages carved for one size class,
// how many of its units are currently outstanding. The release form is
// a bare counter: no per-unit bookkeeping, no bound on carve count, and
// no ability to catch a double-free or foreign pointer — exactly the
// same trade the system allocator makes.
type pageSpan struct {
	span     memorySpan
	unitSize int64
	carved   int64
	live     int64
}

func newPageSpan(span memorySpan, unitSize int64) *pageSpan {
	return &pageSpan{span: span, unitSize: unitSize, carved: span.size / unitSize}
}

func (ps *pageSpan) carveCount() int64 {
	return ps.carved
}

func (ps *pageSpan) data() unsafe.Pointer {
	return ps.span.base
}

func (ps *pageSpan) size() int64 {
	return ps.span.size
}

func (ps *pageSpan) isEmpty() bool {
	return ps.live == 0
}

func (ps *pageSpan) liveCount() int64 {
	return ps.live
}

func (ps *pageSpan) indexOf(unit unsafe.Pointer) (int64, bool) {
	base, end := uintptr(ps.span.base), uintptr(ps.span.end())
	p := uintptr(unit)
	if p < base || p >= end {
		return 0, false
	}
	diff := uint64(p - base)
	if diff%uint64(ps.unitSize) != 0 {
		return 0, false
	}
	return int64(diff / uint64(ps.unitSize)), true
}

func (ps *pageSpan) allocate(idx int64) {
	ps.live++
}

func (ps *pageSpan) deallocate(idx int64) {
	ps.live--
}
