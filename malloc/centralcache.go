package malloc

import (
	"sort"
	"sync"
	"sync/atomic"
	"unsafe"
)

// centralSizeClass is the per-size-class state the central cache keeps:
// a free chain, its length, a page-span index ordered by base address
// for O(log n) neighbor lookup on deallocate, and a spinlock guarding
// all three. One of these exists per size class, lazily, inside
// centralCache.classes.
//
// Grounded on central_cache.{h,cpp}'s m_free_array / m_free_array_size
// / m_page_set triple; each slot of the fixed-size classes array is
// filled lazily since NumSizeClasses here is large and classes are
// sparse in practice.
type centralSizeClass struct {
	lock      spinlock
	freeHead  unsafe.Pointer
	freeCount int64
	spans     []*pageSpan // kept sorted by span.data()
	nextGroup int64       // release-mode adaptive page-group counter
}

type centralCache struct {
	classes [NumSizeClasses]atomic.Pointer[centralSizeClass]
}

var (
	globalCentralCache     *centralCache
	globalCentralCacheOnce sync.Once
)

func theCentralCache() *centralCache {
	globalCentralCacheOnce.Do(func() {
		globalCentralCache = &centralCache{}
	})
	return globalCentralCache
}

// classFor returns the size class at index, creating it on first use.
// The slot is an atomic.Pointer so a goroutine reading a class another
// goroutine is concurrently creating never observes a half-initialized
// value or races the CAS below.
func (cc *centralCache) classFor(index int) *centralSizeClass {
	if c := cc.classes[index].Load(); c != nil {
		return c
	}
	fresh := &centralSizeClass{}
	if cc.classes[index].CompareAndSwap(nil, fresh) {
		return fresh
	}
	return cc.classes[index].Load()
}

// allocate returns a chain of up to count units of the given unitSize,
// refilling from the page cache when the class's free chain is short.
// It may return fewer than count units if that's all a freshly fetched
// span can carve, matching central_cache::allocate's block_count is a
// request, not a guarantee.
func (cc *centralCache) allocate(unitSize int64, count int) (unsafe.Pointer, error) {
	assertf(unitSize%Alignment == 0, "centralCache.allocate: size %v not aligned", unitSize)
	assertf(int64(count) <= MaxUnitsPerSpan, "centralCache.allocate: count %v exceeds %v", count, MaxUnitsPerSpan)

	index := classIndex(unitSize)
	class := cc.classFor(index)
	unlock := spinlockGuard(&class.lock)
	defer unlock()

	if class.freeCount < int64(count) {
		if err := cc.growLocked(class, index, unitSize); err != nil {
			return nil, err
		}
	}

	n := count
	if int64(n) > class.freeCount {
		n = int(class.freeCount)
	}
	head, _, rest := chainTake(class.freeHead, n)
	class.freeHead = rest
	class.freeCount -= int64(n)

	// a unit only counts as outstanding once it leaves the central
	// cache's own free chain; mark each one in its owning span now,
	// whether it just came off growLocked's fresh carve or out of a
	// span this class already held.
	for cur := head; cur != nil; cur = chainNext(cur) {
		ps := findSpan(class.spans, cur)
		assertf(ps != nil, "centralCache.allocate: carved unit outside any known span")
		idx, ok := ps.indexOf(cur)
		assertf(ok, "centralCache.allocate: misaligned carved unit")
		ps.allocate(idx)
	}
	return head, nil
}

// growLocked fetches a new run of pages from the page cache and carves
// it into unitSize chunks, pushing every chunk onto the class's free
// chain. Caller holds class.lock.
func (cc *centralCache) growLocked(class *centralSizeClass, index int, unitSize int64) error {
	pageCount := cc.pageRequestLocked(class, index, unitSize)
	span, err := thePageCache().allocatePages(pageCount)
	if err != nil {
		return err
	}

	ps := newPageSpan(span, unitSize)
	insertSpanSorted(&class.spans, ps)

	carved := ps.carveCount()
	for i := int64(0); i < carved; i++ {
		unit := unsafe.Pointer(uintptr(span.base) + uintptr(i*unitSize))
		initblock(uintptr(unit), unitSize)
		class.freeHead = chainPush(class.freeHead, unit)
		class.freeCount++
	}
	return nil
}

// pageRequestForRelease sizes a release-build page-cache request as
// nextGroup (at least 1) times MaxFreeBytesPerList, rounded up to whole
// pages, and advances nextGroup by one. The growth is linear and has no
// upper cap; deallocate halves nextGroup whenever a span is reclaimed.
func pageRequestForRelease(class *centralSizeClass, unitSize int64) int64 {
	group := class.nextGroup
	if group < 1 {
		group = 1
	}
	class.nextGroup = group + 1
	bytes := group * MaxFreeBytesPerList
	return alignTo(bytes, PageSize) / PageSize
}

// pageRequestLocked sizes the next page-cache request, following the
// debug/release split in central_cache::get_page_allocate_count: debug
// builds always carve a span to the bitmap's bound, release builds use
// pageRequestForRelease.
func (cc *centralCache) pageRequestLocked(class *centralSizeClass, index int, unitSize int64) int64 {
	if debugBuild {
		bytes := MaxUnitsPerSpan * unitSize
		return alignTo(bytes, PageSize) / PageSize
	}
	return pageRequestForRelease(class, unitSize)
}

// deallocate returns a chain of units, all of unitSize, to the central
// cache. Each unit is located in its owning span and marked free there;
// a span that becomes entirely free is pulled out of the chain and
// returned whole to the page cache.
func (cc *centralCache) deallocate(chainHead unsafe.Pointer, unitSize int64) {
	assertf(chainHead != nil, "centralCache.deallocate: nil chain")

	index := classIndex(unitSize)
	class := cc.classFor(index)
	unlock := spinlockGuard(&class.lock)
	defer unlock()

	current := chainHead
	for current != nil {
		next := chainNext(current)

		class.freeHead = chainPush(class.freeHead, current)
		class.freeCount++

		ps := findSpan(class.spans, current)
		assertf(ps != nil, "centralCache.deallocate: pointer outside any known span")
		idx, ok := ps.indexOf(current)
		assertf(ok, "centralCache.deallocate: misaligned pointer within span")
		ps.deallocate(idx)

		if ps.isEmpty() {
			cc.reclaimSpanLocked(class, ps, unitSize)
			if !debugBuild {
				class.nextGroup /= 2
			}
		}

		current = next
	}
}

// reclaimSpanLocked removes every free unit that falls inside ps from
// the class's free chain, removes ps from the span index, and returns
// its backing pages to the page cache. Caller holds class.lock.
func (cc *centralCache) reclaimSpanLocked(class *centralSizeClass, ps *pageSpan, unitSize int64) {
	base, end := uintptr(ps.data()), uintptr(ps.data())+uintptr(ps.size())

	var kept, keptTail unsafe.Pointer
	removed := int64(0)
	for cur := class.freeHead; cur != nil; {
		next := chainNext(cur)
		p := uintptr(cur)
		if p >= base && p < end {
			removed++
		} else if kept == nil {
			kept, keptTail = cur, cur
			chainSetNext(cur, nil)
		} else {
			chainSetNext(keptTail, cur)
			chainSetNext(cur, nil)
			keptTail = cur
		}
		cur = next
	}
	class.freeHead = kept
	class.freeCount -= removed

	removeSpanSorted(&class.spans, ps)
	thePageCache().deallocatePages(ps.span)
}

func insertSpanSorted(spans *[]*pageSpan, ps *pageSpan) {
	list := *spans
	i := sort.Search(len(list), func(i int) bool {
		return uintptr(list[i].data()) >= uintptr(ps.data())
	})
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = ps
	*spans = list
}

func removeSpanSorted(spans *[]*pageSpan, ps *pageSpan) {
	list := *spans
	for i, s := range list {
		if s == ps {
			*spans = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Utilization reports, per active size class, what fraction of the
// bytes its carved spans hold is currently outstanding to callers.
// Grounded on malloc/arena.go's Utilization, which returns the same
// per-size-class unit-size/percentage shape; a caller-invoked
// diagnostic, like GatherStats, never touched on the hot path.
func (cc *centralCache) Utilization() (sizes []int64, pct []float64) {
	for i := range cc.classes {
		class := cc.classes[i].Load()
		if class == nil {
			continue
		}
		size := unitSize(i)
		unlock := spinlockGuard(&class.lock)
		var capacity, outstanding int64
		for _, ps := range class.spans {
			capacity += ps.carveCount() * size
			outstanding += ps.liveCount() * size
		}
		unlock()
		if capacity > 0 {
			sizes = append(sizes, size)
			pct = append(pct, float64(outstanding)/float64(capacity)*100)
		}
	}
	return sizes, pct
}

// findSpan locates the span owning unit by address, mirroring
// m_page_set[index].upper_bound(current) followed by a decrement.
func findSpan(spans []*pageSpan, unit unsafe.Pointer) *pageSpan {
	p := uintptr(unit)
	i := sort.Search(len(spans), func(i int) bool {
		return uintptr(spans[i].data()) > p
	})
	if i == 0 {
		return nil
	}
	candidate := spans[i-1]
	if p >= uintptr(candidate.data()) && p < uintptr(candidate.data())+uintptr(candidate.size()) {
		return candidate
	}
	return nil
}
