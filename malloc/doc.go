// Package malloc implements a three-tier general purpose allocator, a
// drop-in replacement for the system allocator tuned for multi-threaded
// workloads that allocate objects smaller than 16KiB.
//
// Three layers, leaves first:
//
//   - page cache: a process-singleton that obtains page-aligned memory
//     from the OS via anonymous mmap and coalesces returned spans.
//   - central cache: a process-singleton, per-size-class store that
//     carves page runs into fixed-size units and serves batches of
//     units to thread caches.
//   - thread cache: one per goroutine, holding a per-size-class free
//     list, refilling from and spilling back to the central cache in
//     adaptively sized batches.
//
// Client code calls Allocate/Deallocate at the package level; each
// goroutine gets its own thread cache on first use. Requests above
// MaxCachedUnitSize bypass the tiered caches and go straight to the
// page cache's oversize path, which maps its own pages from the OS.
//
// Sized deallocation is mandatory: callers must pass the same size used
// at allocation time. This is the only contract deviation from the
// system allocator, and it is what lets Deallocate route to the right
// tier without per-pointer metadata.
package malloc

// TODO: a goroutine's thread cache is never reclaimed early; its blocks
// leak until process exit, same as the registry entry that holds it.
