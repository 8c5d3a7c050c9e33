// Package-level two-call surface: Allocate and Deallocate, plus the
// goroutine registry that stands in for C++'s thread_local thread_cache.
package malloc

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"unsafe"
)

var (
	registryMu sync.Mutex
	registry   = make(map[uint64]*ThreadCache)
)

// goroutineID parses the numeric id out of runtime.Stack's header line
// ("goroutine 123 [running]:..."). There is no supported API for this;
// it is a best-effort key, stable for the lifetime of one goroutine,
// used only to route a goroutine to its own ThreadCache.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	line := buf[:n]
	line = bytes.TrimPrefix(line, []byte("goroutine "))
	if i := bytes.IndexByte(line, ' '); i >= 0 {
		line = line[:i]
	}
	id, err := strconv.ParseUint(string(line), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// threadCacheFor returns the calling goroutine's ThreadCache, creating
// one on first use. Entries are never evicted: a goroutine that exits
// leaves its cache (and any units never returned to the central cache)
// behind until process exit, the same leak-until-exit behavior the
// original accepts for a thread_local instance of a detached thread.
func threadCacheFor() *ThreadCache {
	id := goroutineID()

	registryMu.Lock()
	tc, ok := registry[id]
	if !ok {
		tc = NewThreadCache()
		registry[id] = tc
		debugf("malloc: registered thread cache for goroutine %v (%v total)", id, len(registry))
	}
	registryMu.Unlock()
	return tc
}

// Allocate returns at least n bytes, not safe to assume aligned beyond
// Alignment. The contents are not cleared: units are zero-filled
// (release build) or poisoned (debug build) only when first carved,
// their first word holds a free-list link while cached, and a reused
// unit keeps what its previous holder wrote. Requests above
// MaxCachedUnitSize go straight to the page cache via its own mmap,
// bypassing size classes entirely.
func Allocate(n int64) (unsafe.Pointer, error) {
	return threadCacheFor().Allocate(n)
}

// Deallocate returns a pointer previously obtained from Allocate. n
// must match the size originally requested; passing the wrong size is
// undefined behavior, same as the C allocator this package replaces.
func Deallocate(ptr unsafe.Pointer, n int64) {
	threadCacheFor().Deallocate(ptr, n)
}

// Stop tears down the page cache's OS mappings. Intended for tests and
// for an embedding process's clean shutdown path; an application that
// never calls it simply leaves its mappings for the OS to reclaim at
// process exit, same as the original's lazy destructor-driven stop().
func Stop() {
	thePageCache().Stop()
}
