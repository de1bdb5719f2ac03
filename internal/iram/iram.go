// Package iram models the restricted driver-accessible memory region that
// flash transfer buffers must live in. A Buffer can only be obtained from a
// Region, so "this byte slice is DMA-safe" is a property of the type rather
// than a calling convention.
package iram

import (
	"errors"
	"fmt"
	"sync"
)

// ErrRegionFull indicates the region cannot satisfy an allocation.
var ErrRegionFull = errors.New("iram: region full")

// DefaultRegionBytes is the pool budget used when none is configured.
const DefaultRegionBytes = 256 * 1024

// Region is a fixed-budget pool of restricted memory.
type Region struct {
	mu   sync.Mutex
	cap  int
	used int
}

// NewRegion creates a pool of capBytes bytes. Non-positive values fall back
// to DefaultRegionBytes.
func NewRegion(capBytes int) *Region {
	if capBytes <= 0 {
		capBytes = DefaultRegionBytes
	}
	return &Region{cap: capBytes}
}

// CapBytes returns the pool budget.
func (r *Region) CapBytes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cap
}

// UsedBytes returns the bytes currently allocated from the pool.
func (r *Region) UsedBytes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// Buffer is a byte buffer that lives in a Region.
type Buffer struct {
	region *Region
	data   []byte
}

// Alloc carves an n-byte buffer out of the region.
func (r *Region) Alloc(n int) (*Buffer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("iram: invalid alloc size %d", n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used+n > r.cap {
		return nil, fmt.Errorf("iram: alloc %d bytes with %d of %d used: %w", n, r.used, r.cap, ErrRegionFull)
	}
	r.used += n
	return &Buffer{region: r, data: make([]byte, n)}, nil
}

// Grow reallocates the buffer to at least n bytes. Contents are not
// preserved. Growing never shrinks.
func (b *Buffer) Grow(n int) error {
	if n <= len(b.data) {
		return nil
	}
	r := b.region
	r.mu.Lock()
	defer r.mu.Unlock()
	delta := n - len(b.data)
	if r.used+delta > r.cap {
		return fmt.Errorf("iram: grow to %d bytes with %d of %d used: %w", n, r.used, r.cap, ErrRegionFull)
	}
	r.used += delta
	b.data = make([]byte, n)
	return nil
}

// Bytes returns the backing slice.
func (b *Buffer) Bytes() []byte { return b.data }

// Cap returns the buffer capacity in bytes.
func (b *Buffer) Cap() int { return len(b.data) }

// Free returns the buffer's bytes to the region. The buffer is unusable
// afterwards.
func (b *Buffer) Free() {
	r := b.region
	r.mu.Lock()
	r.used -= len(b.data)
	r.mu.Unlock()
	b.data = nil
}
