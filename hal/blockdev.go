package hal

import (
	"fmt"

	"tinygo.org/x/tinyfs"
)

// FlashFromBlockDevice adapts a tinyfs block device (SPI NOR drivers, SD
// cards) to the Flash interface so the relay can target it.
func FlashFromBlockDevice(bd tinyfs.BlockDevice) Flash {
	return &blockDeviceFlash{bd: bd}
}

type blockDeviceFlash struct {
	bd tinyfs.BlockDevice
}

func (f *blockDeviceFlash) SizeBytes() uint32 {
	return clampU32(f.bd.Size())
}

func (f *blockDeviceFlash) EraseBlockBytes() uint32 {
	return clampU32(f.bd.EraseBlockSize())
}

func (f *blockDeviceFlash) ReadAt(p []byte, off uint32) (int, error) {
	return f.bd.ReadAt(p, int64(off))
}

func (f *blockDeviceFlash) WriteAt(p []byte, off uint32) (int, error) {
	return f.bd.WriteAt(p, int64(off))
}

func (f *blockDeviceFlash) Erase(off, size uint32) error {
	if size == 0 {
		return nil
	}
	bs := f.EraseBlockBytes()
	if bs == 0 {
		return ErrNotImplemented
	}
	if off%bs != 0 || size%bs != 0 {
		return fmt.Errorf("flash erase off=%d size=%d not aligned to erase block %d", off, size, bs)
	}
	return f.bd.EraseBlocks(int64(off/bs), int64(size/bs))
}

func clampU32(v int64) uint32 {
	if v <= 0 {
		return 0
	}
	if v > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(v)
}
