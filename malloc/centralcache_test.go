package malloc

import (
	"sync"
	"testing"
	"unsafe"
)

func TestCentralCacheAllocateDeallocate(t *testing.T) {
	cc := theCentralCache()
	size := int64(64)

	chain, err := cc.allocate(size, 4)
	if err != nil {
		t.Fatal(err)
	}
	if chain == nil {
		t.Fatal("expected a non-nil chain")
	}
	n := chainLen(chain)
	if n == 0 {
		t.Fatalf("expected at least one unit, got %v", n)
	}

	cc.deallocate(chain, size)
}

func TestCentralCacheGrowsOnMiss(t *testing.T) {
	cc := &centralCache{}
	size := int64(128)

	chain, err := cc.allocate(size, 8)
	if err != nil {
		t.Fatal(err)
	}
	class := cc.classFor(classIndex(size))
	if len(class.spans) == 0 {
		t.Fatalf("expected at least one span after a miss-driven grow")
	}
	cc.deallocate(chain, size)
}

// TestCentralCacheSpanReclaimedWhenEmpty pulls every unit a span was
// carved into through legitimate allocate() calls (so each one is
// actually marked outstanding), returns them all, and checks the span
// is removed from the index once it's fully drained.
func TestCentralCacheSpanReclaimedWhenEmpty(t *testing.T) {
	cc := &centralCache{}
	size := int64(256)
	index := classIndex(size)

	class := cc.classFor(index)
	first, err := cc.allocate(size, 1)
	if err != nil {
		t.Fatal(err)
	}
	span := class.spans[0]
	carveCount := span.carveCount()

	var all unsafe.Pointer = first
	for int64(chainLen(all)) < carveCount {
		unit, err := cc.allocate(size, 1)
		if err != nil {
			t.Fatal(err)
		}
		all = chainPush(all, unit)
	}
	if int64(chainLen(all)) != carveCount {
		t.Fatalf("expected to hold all %v carved units, have %v", carveCount, chainLen(all))
	}

	cc.deallocate(all, size)
	if len(class.spans) != 0 {
		t.Fatalf("expected span list empty after full reclaim, got %v spans", len(class.spans))
	}
}

func TestCentralCacheConcurrentSameClass(t *testing.T) {
	cc := &centralCache{}
	size := int64(32)

	var wg sync.WaitGroup
	const workers = 8
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				chain, err := cc.allocate(size, 2)
				if err != nil {
					t.Errorf("allocate: %v", err)
					return
				}
				cc.deallocate(chain, size)
			}
		}()
	}
	wg.Wait()
}

// TestCentralCacheUtilizationReflectsOutstandingShare checks that
// Utilization reports a percentage in (0, 100] for a class with units
// outstanding, and drops the class once every unit is returned and its
// span reclaimed.
func TestCentralCacheUtilizationReflectsOutstandingShare(t *testing.T) {
	cc := &centralCache{}
	size := int64(96)

	held, err := cc.allocate(size, 3)
	if err != nil {
		t.Fatal(err)
	}

	sizes, pct := cc.Utilization()
	found := false
	for i, s := range sizes {
		if s == unitSize(classIndex(size)) {
			found = true
			if pct[i] <= 0 || pct[i] > 100 {
				t.Fatalf("expected a utilization percentage in (0, 100], got %v", pct[i])
			}
		}
	}
	if !found {
		t.Fatalf("expected an active entry for size class %v", classIndex(size))
	}

	cc.deallocate(held, size)
	sizes, _ = cc.Utilization()
	for _, s := range sizes {
		if s == unitSize(classIndex(size)) {
			t.Fatalf("expected the class's span to be reclaimed (and drop out of Utilization) once every unit is returned")
		}
	}
}

func TestSpansKeptSortedByAddress(t *testing.T) {
	cc := &centralCache{}
	size := int64(40)
	class := cc.classFor(classIndex(size))

	chain1, err := cc.allocate(size, 2)
	if err != nil {
		t.Fatal(err)
	}
	chain2, err := cc.allocate(size, 2)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i < len(class.spans); i++ {
		if uintptr(class.spans[i-1].data()) >= uintptr(class.spans[i].data()) {
			t.Fatalf("spans not kept sorted by address")
		}
	}

	found := findSpan(class.spans, chain1)
	if found == nil {
		t.Fatalf("expected to find owning span for chain1")
	}

	cc.deallocate(chain1, size)
	cc.deallocate(chain2, size)
}
