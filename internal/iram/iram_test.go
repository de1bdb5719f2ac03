package iram

import (
	"errors"
	"testing"
)

func TestAllocAccounting(t *testing.T) {
	r := NewRegion(1024)
	if got := r.CapBytes(); got != 1024 {
		t.Fatalf("CapBytes() = %d, want 1024", got)
	}

	a, err := r.Alloc(256)
	if err != nil {
		t.Fatalf("Alloc(256) = %v", err)
	}
	b, err := r.Alloc(512)
	if err != nil {
		t.Fatalf("Alloc(512) = %v", err)
	}
	if got := r.UsedBytes(); got != 768 {
		t.Fatalf("UsedBytes() = %d, want 768", got)
	}

	a.Free()
	if got := r.UsedBytes(); got != 512 {
		t.Fatalf("UsedBytes() after free = %d, want 512", got)
	}
	b.Free()
	if got := r.UsedBytes(); got != 0 {
		t.Fatalf("UsedBytes() after freeing all = %d, want 0", got)
	}
}

func TestAllocRegionFull(t *testing.T) {
	r := NewRegion(128)

	if _, err := r.Alloc(129); !errors.Is(err, ErrRegionFull) {
		t.Fatalf("Alloc(129) = %v, want ErrRegionFull", err)
	}

	buf, err := r.Alloc(128)
	if err != nil {
		t.Fatalf("Alloc(128) = %v", err)
	}
	if _, err := r.Alloc(1); !errors.Is(err, ErrRegionFull) {
		t.Fatalf("Alloc(1) on a full region = %v, want ErrRegionFull", err)
	}

	buf.Free()
	if _, err := r.Alloc(64); err != nil {
		t.Fatalf("Alloc(64) after free = %v", err)
	}
}

func TestAllocInvalidSize(t *testing.T) {
	r := NewRegion(128)
	for _, n := range []int{0, -1} {
		if _, err := r.Alloc(n); err == nil {
			t.Fatalf("Alloc(%d) succeeded, want error", n)
		}
	}
}

func TestGrow(t *testing.T) {
	r := NewRegion(1024)
	buf, err := r.Alloc(64)
	if err != nil {
		t.Fatalf("Alloc(64) = %v", err)
	}

	if err := buf.Grow(512); err != nil {
		t.Fatalf("Grow(512) = %v", err)
	}
	if got := buf.Cap(); got != 512 {
		t.Fatalf("Cap() after grow = %d, want 512", got)
	}
	if got := r.UsedBytes(); got != 512 {
		t.Fatalf("UsedBytes() after grow = %d, want 512", got)
	}

	// Growing never shrinks.
	if err := buf.Grow(64); err != nil {
		t.Fatalf("Grow(64) = %v", err)
	}
	if got := buf.Cap(); got != 512 {
		t.Fatalf("Cap() after smaller grow = %d, want 512", got)
	}

	if err := buf.Grow(2048); !errors.Is(err, ErrRegionFull) {
		t.Fatalf("Grow(2048) = %v, want ErrRegionFull", err)
	}
	if got := buf.Cap(); got != 512 {
		t.Fatalf("Cap() after failed grow = %d, want 512", got)
	}
}

func TestDefaultBudget(t *testing.T) {
	for _, n := range []int{0, -5} {
		r := NewRegion(n)
		if got := r.CapBytes(); got != DefaultRegionBytes {
			t.Fatalf("NewRegion(%d).CapBytes() = %d, want %d", n, got, DefaultRegionBytes)
		}
	}
}
