package malloc

import (
	"sort"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// pageCache is the process-wide, OS-facing tier. It hands out runs of
// whole pages to the central cache, coalescing adjacent returned spans
// so that long-running processes don't fragment their mapped address
// space into unusably small pieces. It also services the oversize path
// directly, bypassing size classes altogether.
//
// Grounded on page_cache.{h,cpp}: byLength indexes free spans by page
// count, lengths keeps that index's keys sorted ascending so a miss can
// lower-bound-scan for the smallest sufficiently large bucket instead of
// taking whatever bucket a map range happens to visit first, byAddr
// indexes spans by base address for coalescing: the right neighbor is a
// direct lookup, the left neighbor is found by a linear scan of byAddr.
type pageCache struct {
	mu       sync.Mutex
	byLength map[int64]map[memorySpan]struct{}
	lengths  []int64 // sorted ascending, kept in sync with byLength's keys
	byAddr   map[uintptr]memorySpan
	mapped   []memorySpan // every mmap'd region, for teardown only
	stopped  bool
}

var (
	globalPageCache     *pageCache
	globalPageCacheOnce sync.Once
)

func thePageCache() *pageCache {
	globalPageCacheOnce.Do(func() {
		globalPageCache = &pageCache{
			byLength: make(map[int64]map[memorySpan]struct{}),
			byAddr:   make(map[uintptr]memorySpan),
		}
	})
	return globalPageCache
}

// allocatePages returns a span of exactly pageCount*PageSize bytes,
// first trying the free index, falling back to an anonymous mmap of at
// least BulkPageRequest pages when nothing free is large enough.
func (pc *pageCache) allocatePages(pageCount int64) (memorySpan, error) {
	if pageCount <= 0 {
		return memorySpan{}, ErrorInvalidSize
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if span, ok := pc.takeFreeLocked(pageCount); ok {
		return span, nil
	}

	toMap := pageCount
	if toMap < BulkPageRequest {
		toMap = BulkPageRequest
	}
	mapped, err := pc.systemAllocate(toMap)
	if err != nil {
		return memorySpan{}, err
	}
	pc.mapped = append(pc.mapped, mapped)

	used := mapped.subspan(0, pageCount*PageSize)
	rest := mapped.subspanFrom(pageCount * PageSize)
	if rest.size > 0 {
		pc.insertFreeLocked(rest)
	}
	return used, nil
}

// takeFreeLocked finds the smallest free span with at least pageCount
// pages -- lower-bounding the sorted length index rather than ranging
// over the map, so the choice doesn't depend on Go's randomized map
// iteration order -- splits off the excess back into the free index,
// and returns the exact-sized remainder. Caller holds pc.mu.
func (pc *pageCache) takeFreeLocked(pageCount int64) (memorySpan, bool) {
	i := sort.Search(len(pc.lengths), func(i int) bool {
		return pc.lengths[i] >= pageCount
	})
	if i == len(pc.lengths) {
		return memorySpan{}, false
	}
	length := pc.lengths[i]
	set := pc.byLength[length]

	var span memorySpan
	for s := range set {
		span = s
		break
	}
	pc.removeFreeLocked(span)

	used := span.subspan(0, pageCount*PageSize)
	rest := span.subspanFrom(pageCount * PageSize)
	if rest.size > 0 {
		pc.insertFreeLocked(rest)
	}
	return used, true
}

func (pc *pageCache) insertFreeLocked(span memorySpan) {
	length := span.pages()
	set := pc.byLength[length]
	if set == nil {
		set = make(map[memorySpan]struct{})
		pc.byLength[length] = set
		insertLengthSorted(&pc.lengths, length)
	}
	set[span] = struct{}{}
	pc.byAddr[uintptr(span.base)] = span
}

func (pc *pageCache) removeFreeLocked(span memorySpan) {
	length := span.pages()
	if set := pc.byLength[length]; set != nil {
		delete(set, span)
		if len(set) == 0 {
			delete(pc.byLength, length)
			removeLengthSorted(&pc.lengths, length)
		}
	}
	delete(pc.byAddr, uintptr(span.base))
}

func insertLengthSorted(lengths *[]int64, length int64) {
	list := *lengths
	i := sort.Search(len(list), func(i int) bool { return list[i] >= length })
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = length
	*lengths = list
}

func removeLengthSorted(lengths *[]int64, length int64) {
	list := *lengths
	i := sort.Search(len(list), func(i int) bool { return list[i] >= length })
	if i < len(list) && list[i] == length {
		*lengths = append(list[:i], list[i+1:]...)
	}
}

// deallocatePages returns span to the free index, merging it with an
// immediately preceding and/or following free span so adjacent runs
// coalesce back into one entry.
func (pc *pageCache) deallocatePages(span memorySpan) {
	assertf(span.size%PageSize == 0, "pageCache.deallocatePages: size %v not a page multiple", span.size)

	pc.mu.Lock()
	defer pc.mu.Unlock()

	// merge with the span immediately to the left, if one is free.
	for {
		merged := false
		for _, left := range pc.byAddr {
			if uintptr(left.end()) == uintptr(span.base) {
				pc.removeFreeLocked(left)
				span = memorySpan{base: left.base, size: left.size + span.size}
				merged = true
				break
			}
		}
		if !merged {
			break
		}
	}

	// merge with the span immediately to the right, if one is free.
	for {
		if right, ok := pc.byAddr[uintptr(span.end())]; ok {
			pc.removeFreeLocked(right)
			span = memorySpan{base: span.base, size: span.size + right.size}
			continue
		}
		break
	}

	pc.insertFreeLocked(span)
}

// allocateUnit services an oversize request (> MaxCachedUnitSize)
// directly with its own mmap, bypassing size classes and page-span
// bookkeeping entirely.
func (pc *pageCache) allocateUnit(size int64) (memorySpan, error) {
	pages := alignTo(size, PageSize) / PageSize
	span, err := pc.systemAllocate(pages)
	if err != nil {
		return memorySpan{}, err
	}
	return span.subspan(0, size), nil
}

// deallocateUnit unmaps an oversize span allocated by allocateUnit.
func (pc *pageCache) deallocateUnit(span memorySpan) {
	pages := alignTo(span.size, PageSize) / PageSize
	full := memorySpan{base: span.base, size: pages * PageSize}
	if err := unix.Munmap(spanBytes(full)); err != nil {
		fatalf("pageCache.deallocateUnit: munmap failed: %v", err)
	}
}

func (pc *pageCache) systemAllocate(pageCount int64) (memorySpan, error) {
	size := pageCount * PageSize
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return memorySpan{}, ErrorOutofMemory
	}
	debugf("pageCache: mapped %v bytes from OS", size)
	return memorySpan{base: unsafe.Pointer(&data[0]), size: size}, nil
}

// spanBytes reconstructs the []byte view of span that unix.Munmap needs.
func spanBytes(span memorySpan) []byte {
	return unsafe.Slice((*byte)(span.base), span.size)
}

// Utilization reports what percentage of bytes ever mapped from the OS
// are currently outstanding rather than sitting in the free index.
// Grounded on malloc/arena.go's Allocated/Available ratio; a
// caller-invoked diagnostic, never touched on the hot path.
func (pc *pageCache) Utilization() float64 {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	var mapped, free int64
	for _, span := range pc.mapped {
		mapped += span.size
	}
	for _, set := range pc.byLength {
		for span := range set {
			free += span.size
		}
	}
	if mapped == 0 {
		return 0
	}
	return float64(mapped-free) / float64(mapped) * 100
}

// Stop unmaps every region ever fetched from the OS. Safe to call more
// than once; subsequent calls are no-ops. Mirrors page_cache::stop(),
// which the original calls from its destructor; callers here must
// invoke it explicitly since Go has no deterministic destructors.
func (pc *pageCache) Stop() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.stopped {
		return
	}
	pc.stopped = true
	for _, span := range pc.mapped {
		if err := unix.Munmap(spanBytes(span)); err != nil {
			fatalf("pageCache.Stop: munmap failed: %v", err)
		}
	}
	pc.mapped = nil
	pc.byLength = make(map[int64]map[memorySpan]struct{})
	pc.lengths = nil
	pc.byAddr = make(map[uintptr]memorySpan)
}
