//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/kelseyhightower/envconfig"
)

// HostFlashConfig describes the file-backed flash simulator. Values come
// from FLASHRELAY_* environment variables so host tools and tests share one
// geometry.
type HostFlashConfig struct {
	Path            string `envconfig:"FLASH_PATH" default:"relay.flash"`
	SizeBytes       uint32 `envconfig:"FLASH_SIZE" default:"2097152"`
	EraseBlockBytes uint32 `envconfig:"FLASH_ERASE_BLOCK" default:"4096"`
}

// LoadHostFlashConfig reads the simulator configuration from the environment.
func LoadHostFlashConfig() (HostFlashConfig, error) {
	var cfg HostFlashConfig
	if err := envconfig.Process("flashrelay", &cfg); err != nil {
		return HostFlashConfig{}, fmt.Errorf("load flash config: %w", err)
	}
	return cfg, nil
}

func (c HostFlashConfig) validate() error {
	if c.EraseBlockBytes == 0 || c.EraseBlockBytes%256 != 0 {
		return fmt.Errorf("flash: invalid erase block size %d", c.EraseBlockBytes)
	}
	if c.SizeBytes == 0 || c.SizeBytes%c.EraseBlockBytes != 0 {
		return fmt.Errorf("flash: size %d not multiple of erase block size %d", c.SizeBytes, c.EraseBlockBytes)
	}
	return nil
}

// HostFlash is a file-backed NOR flash simulator: erase fills 0xFF and
// programming may only clear bits.
type HostFlash struct {
	mu        sync.Mutex
	f         *os.File
	size      uint32
	eraseSize uint32
	scratch   []byte
}

// OpenHostFlash opens (or creates) the backing file. An existing file keeps
// its contents; its size must match the configured geometry.
func OpenHostFlash(cfg HostFlashConfig) (*HostFlash, error) {
	return openHostFlash(cfg, false)
}

// CreateHostFlash creates a fresh, fully erased backing file, truncating any
// existing image.
func CreateHostFlash(cfg HostFlashConfig) (*HostFlash, error) {
	return openHostFlash(cfg, true)
}

func openHostFlash(cfg HostFlashConfig, fresh bool) (*HostFlash, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	flags := os.O_RDWR | os.O_CREATE
	if fresh {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(cfg.Path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open flash file %q: %w", cfg.Path, err)
	}

	hf := &HostFlash{
		f:         f,
		size:      cfg.SizeBytes,
		eraseSize: cfg.EraseBlockBytes,
		scratch:   make([]byte, cfg.EraseBlockBytes),
	}
	for i := range hf.scratch {
		hf.scratch[i] = 0xFF
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat flash file %q: %w", cfg.Path, err)
	}
	switch {
	case st.Size() == 0:
		if err := f.Truncate(int64(cfg.SizeBytes)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("truncate flash file %q to %d: %w", cfg.Path, cfg.SizeBytes, err)
		}
		if err := hf.Erase(0, cfg.SizeBytes); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("erase flash file %q: %w", cfg.Path, err)
		}
	case st.Size() != int64(cfg.SizeBytes):
		_ = f.Close()
		return nil, fmt.Errorf("flash file %q is %d bytes, config wants %d", cfg.Path, st.Size(), cfg.SizeBytes)
	}

	return hf, nil
}

func (f *HostFlash) Close() error { return f.f.Close() }

func (f *HostFlash) SizeBytes() uint32       { return f.size }
func (f *HostFlash) EraseBlockBytes() uint32 { return f.eraseSize }

func (f *HostFlash) ReadAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= f.size || uint64(off)+uint64(len(p)) > uint64(f.size) {
		return 0, fmt.Errorf("flash read %d bytes at %d: %w", len(p), off, os.ErrInvalid)
	}
	return f.f.ReadAt(p, int64(off))
}

func (f *HostFlash) WriteAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= f.size || uint64(off)+uint64(len(p)) > uint64(f.size) {
		return 0, fmt.Errorf("flash write %d bytes at %d: %w", len(p), off, os.ErrInvalid)
	}

	prev := make([]byte, len(p))
	if _, err := f.f.ReadAt(prev, int64(off)); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("flash read before write at %d: %w", off, err)
	}
	for i := range p {
		if prev[i]&p[i] != p[i] {
			return 0, ErrWriteRequiresErase
		}
	}
	return f.f.WriteAt(p, int64(off))
}

func (f *HostFlash) Erase(off, size uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if size == 0 {
		return nil
	}
	if off%f.eraseSize != 0 || size%f.eraseSize != 0 {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, os.ErrInvalid)
	}
	if off >= f.size || uint64(off)+uint64(size) > uint64(f.size) {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, os.ErrInvalid)
	}
	for size > 0 {
		if _, err := f.f.WriteAt(f.scratch, int64(off)); err != nil {
			return fmt.Errorf("flash erase block at %d: %w", off, err)
		}
		off += f.eraseSize
		size -= f.eraseSize
	}
	return nil
}
