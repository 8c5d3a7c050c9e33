package malloc

import (
	"testing"
	"unsafe"
)

func makeUnits(n int) []unsafe.Pointer {
	buf := make([]byte, n*int(Alignment))
	units := make([]unsafe.Pointer, n)
	for i := 0; i < n; i++ {
		units[i] = unsafe.Pointer(&buf[i*int(Alignment)])
	}
	return units
}

func TestChainPushPop(t *testing.T) {
	units := makeUnits(3)
	var head unsafe.Pointer
	for _, u := range units {
		head = chainPush(head, u)
	}
	if chainLen(head) != 3 {
		t.Fatalf("expected chain length 3, got %v", chainLen(head))
	}

	top, rest := chainPop(head)
	if top != units[2] {
		t.Fatalf("expected most recently pushed unit at head")
	}
	if chainLen(rest) != 2 {
		t.Fatalf("expected remaining chain length 2, got %v", chainLen(rest))
	}
}

func TestChainTake(t *testing.T) {
	units := makeUnits(5)
	var head unsafe.Pointer
	for i := len(units) - 1; i >= 0; i-- {
		head = chainPush(head, units[i])
	}

	subHead, subTail, rest := chainTake(head, 2)
	if chainLen(subHead) != 2 {
		t.Fatalf("expected sub-chain length 2, got %v", chainLen(subHead))
	}
	if chainNext(subTail) != nil {
		t.Fatalf("expected sub-chain tail to be terminated")
	}
	if chainLen(rest) != 3 {
		t.Fatalf("expected remainder length 3, got %v", chainLen(rest))
	}
}

func TestChainTakeTooManyPanics(t *testing.T) {
	units := makeUnits(2)
	var head unsafe.Pointer
	for _, u := range units {
		head = chainPush(head, u)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected chainTake to panic when chain is shorter than n")
		}
	}()
	chainTake(head, 5)
}

func TestChainTakeZero(t *testing.T) {
	units := makeUnits(1)
	subHead, subTail, rest := chainTake(units[0], 0)
	if subHead != nil || subTail != nil || rest != units[0] {
		t.Fatalf("chainTake(head, 0) should return the whole chain as rest")
	}
}
