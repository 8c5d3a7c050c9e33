package malloc

import (
	"sync/atomic"

	golog "github.com/bnclabs/golog"
)

// logok gates every log call in this package behind a single atomic
// flag, default off. Grounded on llrb/log.go's identical logok idiom:
// logging is opt-in and, even when enabled, the call sites below are
// placed only at tier transitions (OS mmap, munmap failure, registry
// growth, debug-assertion failure) -- never on the
// Allocate/Deallocate hot path.
var logok int64

// EnableLogging turns on diagnostic logging for this package. Disabled
// by default so embedding an allocator in a latency-sensitive process
// costs nothing until an operator opts in.
func EnableLogging() {
	atomic.StoreInt64(&logok, 1)
}

// DisableLogging turns logging back off.
func DisableLogging() {
	atomic.StoreInt64(&logok, 0)
}

var log golog.Logger = golog.SetLogger(nil, map[string]interface{}{
	"log.level": "info",
	"log.file":  "",
})

// SetLogger lets an embedding application route this package's log
// output through its own Logger implementation.
func SetLogger(logger golog.Logger) {
	log = golog.SetLogger(logger, nil)
}

func debugf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Debugf(format, v...)
	}
}

func warnf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Warnf(format, v...)
	}
}

func fatalf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Fatalf(format, v...)
	}
}
