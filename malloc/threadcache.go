package malloc

import "unsafe"

// ThreadCache is a single goroutine's private free-list array, one
// chain per size class. It is the only tier callers touch directly on
// the hot path; refills from and spills to the central cache happen in
// batches so the shared, lock-protected tier is hit far less often than
// the pointer at hand.
//
// Grounded on thread_cache.{h,cpp}. Go has no thread-local storage, so
// where the original reaches a *thread_cache via a thread_local
// singleton, this package hands callers an explicit *ThreadCache
// (see allocator.go for the goroutine-keyed registry built on top).
type ThreadCache struct {
	freeHead  [NumSizeClasses]unsafe.Pointer
	freeCount [NumSizeClasses]int64
	nextBatch [NumSizeClasses]int64
}

// NewThreadCache returns an empty thread cache. Safe for use by exactly
// one goroutine at a time; sharing one across goroutines defeats its
// purpose and is not synchronized.
func NewThreadCache() *ThreadCache {
	return &ThreadCache{}
}

// Allocate returns a unit of at least n bytes, rounded up to the
// nearest size class, or falls through to the oversize path when n
// exceeds MaxCachedUnitSize.
func (tc *ThreadCache) Allocate(n int64) (unsafe.Pointer, error) {
	if n <= 0 {
		return nil, ErrorInvalidSize
	}
	size := align(n)
	if size > MaxCachedUnitSize {
		span, err := thePageCache().allocateUnit(size)
		if err != nil {
			return nil, err
		}
		return span.base, nil
	}

	index := classIndex(size)
	if tc.freeHead[index] != nil {
		unit, rest := chainPop(tc.freeHead[index])
		tc.freeHead[index] = rest
		tc.freeCount[index]--
		return unit, nil
	}
	return tc.refillFromCentral(index, size)
}

// Deallocate returns a unit previously obtained from Allocate. n must
// be the same size passed to the matching Allocate call.
func (tc *ThreadCache) Deallocate(unit unsafe.Pointer, n int64) {
	if unit == nil || n <= 0 {
		return
	}
	size := align(n)
	if size > MaxCachedUnitSize {
		thePageCache().deallocateUnit(memorySpan{base: unit, size: size})
		return
	}

	index := classIndex(size)
	tc.freeHead[index] = chainPush(tc.freeHead[index], unit)
	tc.freeCount[index]++

	if tc.freeCount[index]*size > MaxFreeBytesPerList {
		tc.spillHalf(index, size)
	}
}

// refillFromCentral pulls a batch of units from the central cache,
// keeps all but the first for future Allocate calls, and returns the
// first to the caller.
func (tc *ThreadCache) refillFromCentral(index int, size int64) (unsafe.Pointer, error) {
	count := tc.batchSize(index, size)
	chain, err := theCentralCache().allocate(size, count)
	if err != nil {
		return nil, err
	}
	unit, rest := chainPop(chain)
	if rest != nil {
		restLen := chainLen(rest)
		tc.freeHead[index] = joinChains(rest, tc.freeHead[index])
		tc.freeCount[index] += int64(restLen)
	}
	return unit, nil
}

// spillHalf returns half of the class's cached units to the central
// cache, the adaptive counterpart to refillFromCentral's growth: a
// class that built up a large cache shrinks its next request too.
func (tc *ThreadCache) spillHalf(index int, size int64) {
	n := int(tc.freeCount[index] / 2)
	if n <= 0 {
		return
	}
	head, _, rest := chainTake(tc.freeHead[index], n)
	tc.freeHead[index] = rest
	tc.freeCount[index] -= int64(n)
	theCentralCache().deallocate(head, size)
	tc.nextBatch[index] /= 2
}

// batchSize computes how many units to request on the next refill,
// doubling each time up to the thread cache's own per-class byte budget
// and, in debug builds, the central cache's per-span bound. Grounded on
// thread_cache::compute_allocate_count.
func (tc *ThreadCache) batchSize(index int, unitSize int64) int {
	result := tc.nextBatch[index]
	if result < 4 {
		result = 4
	}
	next := result * 2
	if debugBuild && next > MaxUnitsPerSpan {
		next = MaxUnitsPerSpan
	}
	if byBudget := MaxFreeBytesPerList / unitSize / 2; next > byBudget {
		next = byBudget
	}
	if next < 1 {
		next = 1
	}
	tc.nextBatch[index] = next
	return int(result)
}

// joinChains appends b onto the tail of a, returning the combined head.
func joinChains(a, b unsafe.Pointer) unsafe.Pointer {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	tail := a
	for chainNext(tail) != nil {
		tail = chainNext(tail)
	}
	chainSetNext(tail, b)
	return a
}
