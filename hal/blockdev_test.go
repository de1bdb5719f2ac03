package hal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashrelay/hal"
)

// fakeBlockDevice is a minimal tinyfs-style block device for exercising the
// adapter without real hardware.
type fakeBlockDevice struct {
	buf        []byte
	eraseBlock int64
	erases     []int64 // start block of each EraseBlocks call
}

func newFakeBlockDevice(blocks, eraseBlock int64) *fakeBlockDevice {
	buf := make([]byte, blocks*eraseBlock)
	for i := range buf {
		buf[i] = 0xFF
	}
	return &fakeBlockDevice{buf: buf, eraseBlock: eraseBlock}
}

func (d *fakeBlockDevice) Size() int64           { return int64(len(d.buf)) }
func (d *fakeBlockDevice) WriteBlockSize() int64 { return 256 }
func (d *fakeBlockDevice) EraseBlockSize() int64 { return d.eraseBlock }

func (d *fakeBlockDevice) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, d.buf[off:]), nil
}

func (d *fakeBlockDevice) WriteAt(p []byte, off int64) (int, error) {
	return copy(d.buf[off:], p), nil
}

func (d *fakeBlockDevice) EraseBlocks(start, n int64) error {
	d.erases = append(d.erases, start)
	for i := start * d.eraseBlock; i < (start+n)*d.eraseBlock; i++ {
		d.buf[i] = 0xFF
	}
	return nil
}

func TestFlashFromBlockDeviceGeometry(t *testing.T) {
	bd := newFakeBlockDevice(8, 4096)
	dev := hal.FlashFromBlockDevice(bd)

	assert.Equal(t, uint32(8*4096), dev.SizeBytes())
	assert.Equal(t, uint32(4096), dev.EraseBlockBytes())
}

func TestFlashFromBlockDeviceRoundTrip(t *testing.T) {
	bd := newFakeBlockDevice(8, 4096)
	dev := hal.FlashFromBlockDevice(bd)

	want := []byte("spanning payload")
	_, err := dev.WriteAt(want, 4000)
	require.NoError(t, err)

	got := make([]byte, len(want))
	_, err = dev.ReadAt(got, 4000)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFlashFromBlockDeviceEraseMapsToBlocks(t *testing.T) {
	bd := newFakeBlockDevice(8, 4096)
	dev := hal.FlashFromBlockDevice(bd)

	require.NoError(t, dev.Erase(2*4096, 2*4096))
	assert.Equal(t, []int64{2}, bd.erases)

	assert.Error(t, dev.Erase(100, 4096), "unaligned offset")
	assert.Error(t, dev.Erase(0, 100), "unaligned size")
	assert.NoError(t, dev.Erase(0, 0), "zero size is a no-op")
}
