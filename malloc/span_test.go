package malloc

import (
	"testing"
	"unsafe"
)

func TestMemorySpanSubspan(t *testing.T) {
	buf := make([]byte, 256)
	span := memorySpan{base: unsafe.Pointer(&buf[0]), size: int64(len(buf))}

	left := span.subspan(0, 100)
	right := span.subspanFrom(100)

	if left.size != 100 || right.size != 156 {
		t.Fatalf("unexpected split sizes: left=%v right=%v", left.size, right.size)
	}
	if left.end() != right.base {
		t.Fatalf("subspan boundaries don't touch: left.end=%v right.base=%v", left.end(), right.base)
	}
}

func TestMemorySpanSubspanOutOfRangePanics(t *testing.T) {
	buf := make([]byte, 64)
	span := memorySpan{base: unsafe.Pointer(&buf[0]), size: int64(len(buf))}

	defer func() {
		if recover() == nil {
			t.Fatal("expected subspan to panic on out-of-range request")
		}
	}()
	span.subspan(0, 128)
}

func TestMemorySpanLess(t *testing.T) {
	buf := make([]byte, 16)
	low := memorySpan{base: unsafe.Pointer(&buf[0]), size: 8}
	high := memorySpan{base: unsafe.Pointer(&buf[8]), size: 8}

	if !low.less(high) || high.less(low) {
		t.Fatalf("less() did not order spans by base address")
	}
}

func TestMemorySpanPages(t *testing.T) {
	span := memorySpan{size: 3 * PageSize}
	if span.pages() != 3 {
		t.Fatalf("pages() = %v, want 3", span.pages())
	}
}
