package hal

import (
	"fmt"
	"os"
	"sync"
)

// MemFlash is an in-memory NOR flash with the same semantics as the
// file-backed simulator: erase fills 0xFF, programming may only clear bits.
type MemFlash struct {
	mu        sync.Mutex
	buf       []byte
	eraseSize uint32
}

// NewMemFlash returns a fully erased in-memory flash.
func NewMemFlash(size, eraseBlock uint32) (*MemFlash, error) {
	if eraseBlock == 0 || size == 0 || size%eraseBlock != 0 {
		return nil, fmt.Errorf("flash: size %d not multiple of erase block size %d", size, eraseBlock)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	return &MemFlash{buf: buf, eraseSize: eraseBlock}, nil
}

func (f *MemFlash) SizeBytes() uint32       { return uint32(len(f.buf)) }
func (f *MemFlash) EraseBlockBytes() uint32 { return f.eraseSize }

func (f *MemFlash) ReadAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if uint64(off)+uint64(len(p)) > uint64(len(f.buf)) {
		return 0, fmt.Errorf("flash read %d bytes at %d: %w", len(p), off, os.ErrInvalid)
	}
	return copy(p, f.buf[off:]), nil
}

func (f *MemFlash) WriteAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if uint64(off)+uint64(len(p)) > uint64(len(f.buf)) {
		return 0, fmt.Errorf("flash write %d bytes at %d: %w", len(p), off, os.ErrInvalid)
	}
	dst := f.buf[off:]
	for i := range p {
		if dst[i]&p[i] != p[i] {
			return 0, ErrWriteRequiresErase
		}
	}
	return copy(dst, p), nil
}

func (f *MemFlash) Erase(off, size uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if size == 0 {
		return nil
	}
	if off%f.eraseSize != 0 || size%f.eraseSize != 0 {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, os.ErrInvalid)
	}
	if uint64(off)+uint64(size) > uint64(len(f.buf)) {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, os.ErrInvalid)
	}
	for i := off; i < off+size; i++ {
		f.buf[i] = 0xFF
	}
	return nil
}
