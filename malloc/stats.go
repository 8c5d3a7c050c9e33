package malloc

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats is a point-in-time snapshot of how much memory each tier has
// obtained from the OS versus how much of it is actually outstanding to
// callers. Grounded on malloc/arena.go's Memory/Allocated/Available
// trio; gathering one walks every size class and the page cache's free
// index, so it is a diagnostics call, never invoked from the
// Allocate/Deallocate path.
type Stats struct {
	MappedBytes      int64
	FreeBytes        int64
	OutstandingUnits int64
	SizeClasses      int
}

// String renders a Stats value with human-readable byte counts, the
// way the retrieval pack's bubt/llrb packages format sizes with
// go-humanize rather than raw byte counts.
func (s Stats) String() string {
	return fmt.Sprintf(
		"mapped=%s free=%s outstanding_units=%d active_classes=%d",
		humanize.Bytes(uint64(s.MappedBytes)),
		humanize.Bytes(uint64(s.FreeBytes)),
		s.OutstandingUnits,
		s.SizeClasses,
	)
}

// GatherStats walks the central cache and page cache and returns a
// Stats snapshot. Caller-invoked only; takes every relevant lock in
// turn so it is safe to call concurrently with allocation traffic, at
// the cost of briefly blocking it.
func GatherStats() Stats {
	cc := theCentralCache()
	pc := thePageCache()

	var outstanding int64
	var active int
	for i := range cc.classes {
		class := cc.classes[i].Load()
		if class == nil {
			continue
		}
		unlock := spinlockGuard(&class.lock)
		if len(class.spans) > 0 {
			active++
		}
		for _, ps := range class.spans {
			outstanding += ps.liveCount()
		}
		unlock()
	}

	pc.mu.Lock()
	var mapped, free int64
	for _, span := range pc.mapped {
		mapped += span.size
	}
	for _, set := range pc.byLength {
		for span := range set {
			free += span.size
		}
	}
	pc.mu.Unlock()

	return Stats{
		MappedBytes:      mapped,
		FreeBytes:        free,
		OutstandingUnits: outstanding,
		SizeClasses:      active,
	}
}
