package malloc

import "testing"

func TestAlign(t *testing.T) {
	cases := map[int64]int64{1: 8, 7: 8, 8: 8, 9: 16, 16: 16, 17: 24}
	for in, want := range cases {
		if got := align(in); got != want {
			t.Errorf("align(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestClassIndexUnitSizeRoundtrip(t *testing.T) {
	for n := int64(1); n <= MaxCachedUnitSize; n += 7 {
		idx := classIndex(n)
		size := unitSize(idx)
		if size < n {
			t.Fatalf("unitSize(classIndex(%v))=%v is smaller than request", n, size)
		}
		if size%Alignment != 0 {
			t.Fatalf("unitSize(%v)=%v not aligned", idx, size)
		}
	}
}

func TestClassIndexBounds(t *testing.T) {
	if idx := classIndex(Alignment); idx != 0 {
		t.Errorf("classIndex(Alignment) = %v, want 0", idx)
	}
	if idx := classIndex(MaxCachedUnitSize); idx != NumSizeClasses-1 {
		t.Errorf("classIndex(MaxCachedUnitSize) = %v, want %v", idx, NumSizeClasses-1)
	}
}

func TestAlignToPageSize(t *testing.T) {
	if got := alignTo(1, PageSize); got != PageSize {
		t.Errorf("alignTo(1, PageSize) = %v, want %v", got, PageSize)
	}
	if got := alignTo(PageSize, PageSize); got != PageSize {
		t.Errorf("alignTo(PageSize, PageSize) = %v, want %v", got, PageSize)
	}
	if got := alignTo(PageSize+1, PageSize); got != 2*PageSize {
		t.Errorf("alignTo(PageSize+1, PageSize) = %v, want %v", got, 2*PageSize)
	}
}
