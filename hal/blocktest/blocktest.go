// Package blocktest provides a scriptable in-memory fake flash plus reusable
// exercisers for hal.Flash implementations.
package blocktest

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"flashrelay/hal"
)

var (
	// ErrOutOfBounds indicates a request outside the device.
	ErrOutOfBounds = errors.New("range is out of bounds")

	// ErrFault is the injected failure returned when a Fail* flag is set.
	ErrFault = errors.New("injected fault")
)

// Op records one driver call made against the fake.
type Op struct {
	Name string // "read", "write" or "erase"
	Off  uint32
	Size uint32
}

// Device is an in-memory fake hal.Flash. It records every call, can be told
// to fail per operation kind, and can stall until Gate is released.
type Device struct {
	mu         sync.Mutex
	buf        []byte
	eraseBlock uint32
	calls      []Op

	FailReads  bool
	FailWrites bool
	FailErases bool

	// Gate, when non-nil, blocks every operation until the channel is
	// closed. Used to simulate a wedged driver.
	Gate chan struct{}
}

var _ hal.Flash = (*Device)(nil)

// New returns a fully erased fake with the given geometry.
func New(size, eraseBlock uint32) *Device {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	return &Device{buf: buf, eraseBlock: eraseBlock}
}

// Calls returns a copy of the recorded call log.
func (d *Device) Calls() []Op {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Op, len(d.calls))
	copy(out, d.calls)
	return out
}

func (d *Device) record(name string, off, size uint32) {
	d.mu.Lock()
	d.calls = append(d.calls, Op{Name: name, Off: off, Size: size})
	d.mu.Unlock()
	if d.Gate != nil {
		<-d.Gate
	}
}

func (d *Device) SizeBytes() uint32       { return uint32(len(d.buf)) }
func (d *Device) EraseBlockBytes() uint32 { return d.eraseBlock }

func (d *Device) ReadAt(p []byte, off uint32) (int, error) {
	d.record("read", off, uint32(len(p)))
	if d.FailReads {
		return 0, errors.Wrap(ErrFault, "read")
	}
	if uint64(off)+uint64(len(p)) > uint64(len(d.buf)) {
		return 0, errors.Wrapf(ErrOutOfBounds, "read [%v, %v)", off, uint64(off)+uint64(len(p)))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return copy(p, d.buf[off:]), nil
}

func (d *Device) WriteAt(p []byte, off uint32) (int, error) {
	d.record("write", off, uint32(len(p)))
	if d.FailWrites {
		return 0, errors.Wrap(ErrFault, "write")
	}
	if uint64(off)+uint64(len(p)) > uint64(len(d.buf)) {
		return 0, errors.Wrapf(ErrOutOfBounds, "write [%v, %v)", off, uint64(off)+uint64(len(p)))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return copy(d.buf[off:], p), nil
}

func (d *Device) Erase(off, size uint32) error {
	d.record("erase", off, size)
	if d.FailErases {
		return errors.Wrap(ErrFault, "erase")
	}
	if off%d.eraseBlock != 0 || size%d.eraseBlock != 0 {
		return errors.Errorf("erase off=%d size=%d not aligned to %d", off, size, d.eraseBlock)
	}
	if uint64(off)+uint64(size) > uint64(len(d.buf)) {
		return errors.Wrapf(ErrOutOfBounds, "erase [%v, %v)", off, uint64(off)+uint64(size))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := off; i < off+size; i++ {
		d.buf[i] = 0xFF
	}
	return nil
}

// RoundTrip erases the whole device, programs every erase block with random
// data and reads it back.
func RoundTrip(t *testing.T, dev hal.Flash, r *rand.Rand) {
	t.Helper()

	bs := dev.EraseBlockBytes()
	size := dev.SizeBytes()
	if bs == 0 || size == 0 || size%bs != 0 {
		t.Fatalf("bad geometry: size=%d eraseBlock=%d", size, bs)
	}
	if err := dev.Erase(0, size); err != nil {
		t.Fatalf("Erase(0, %d) = %v", size, err)
	}

	want := make([]byte, size)
	r.Read(want)
	for off := uint32(0); off < size; off += bs {
		if _, err := dev.WriteAt(want[off:off+bs], off); err != nil {
			t.Fatalf("WriteAt(%d bytes, %d) = %v", bs, off, err)
		}
	}

	got := make([]byte, size)
	if n, err := dev.ReadAt(got, 0); err != nil || uint32(n) != size {
		t.Fatalf("ReadAt(%d bytes, 0) = %d, %v", size, n, err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("device contents differ from written contents")
	}
}

// EraseFills checks that erasing a block leaves it all 0xFF.
func EraseFills(t *testing.T, dev hal.Flash) {
	t.Helper()

	bs := dev.EraseBlockBytes()
	if err := dev.Erase(0, bs); err != nil {
		t.Fatalf("Erase(0, %d) = %v", bs, err)
	}
	got := make([]byte, bs)
	if _, err := dev.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt after erase: %v", err)
	}
	for i, b := range got {
		if b != 0xFF {
			t.Fatalf("byte %d after erase = %#x, want 0xFF", i, b)
		}
	}
}
