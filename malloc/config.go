package malloc

import s "github.com/prataprc/gosettings"

// Defaultsettings returns the tunable knobs this package exposes on top
// of its fixed size-class arithmetic. ALIGNMENT, PAGE_SIZE and
// MAX_CACHED_UNIT_SIZE stay compile-time constants (sizeclass.go); only
// the heuristics that govern how aggressively each tier grows are
// settings, grounded on malloc/config.go's Defaultsettings idiom.
//
// "bulkpages" (int64, default: BulkPageRequest)
//		Minimum number of pages the page cache fetches from the OS on a
//		miss.
//
// "maxfreebytes" (int64, default: MaxFreeBytesPerList)
//		Per-size-class byte budget a thread cache holds before spilling
//		half of it back to the central cache.
func Defaultsettings() s.Settings {
	return s.Settings{
		"bulkpages":    BulkPageRequest,
		"maxfreebytes": MaxFreeBytesPerList,
	}
}

// ApplySettings overrides the package's tunable knobs. Intended to be
// called once, before any Allocate/Deallocate call, typically right
// after process startup; it is not safe to call concurrently with
// allocation traffic since BulkPageRequest/MaxFreeBytesPerList are read
// without synchronization on the hot path.
func ApplySettings(setts s.Settings) {
	if v, ok := setts["bulkpages"]; ok {
		BulkPageRequest = v.(int64)
	}
	if v, ok := setts["maxfreebytes"]; ok {
		MaxFreeBytesPerList = v.(int64)
	}
}
