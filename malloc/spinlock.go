package malloc

import (
	"runtime"
	"sync/atomic"
)

// spinlock is a test-and-set lock with yield-on-contention, ported from
// the original's atomic_flag_guard. Central cache per-size-class state
// is protected by one of these each; critical sections are bounded by a
// constant number of list/map operations per unit in a chain, so
// spinning is preferable to the overhead of a full mutex.
type spinlock struct {
	flag atomic.Bool
}

func (l *spinlock) lock() {
	for !l.flag.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (l *spinlock) unlock() {
	l.flag.Store(false)
}

// spinlockGuard acquires l and returns a release function, mirroring the
// scoped-acquisition discipline of the original's RAII guard: callers
// defer the returned func so the lock releases on every exit path.
func spinlockGuard(l *spinlock) func() {
	l.lock()
	return l.unlock
}
