package malloc

import (
	"sync"
	"testing"
)

func TestSpinlockExcludes(t *testing.T) {
	var l spinlock
	var counter int
	var wg sync.WaitGroup

	const goroutines, iterations = 16, 2000
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				unlock := spinlockGuard(&l)
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*iterations {
		t.Fatalf("expected %v, got %v (lock did not exclude)", goroutines*iterations, counter)
	}
}

func TestSpinlockUnlockAllowsReacquire(t *testing.T) {
	var l spinlock
	l.lock()
	l.unlock()
	l.lock()
	l.unlock()
}
