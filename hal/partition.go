package hal

import "fmt"

// Partition is a bounds-checked window over a Flash. It is the opaque target
// handle the relay entry points address; finding partitions on a device is a
// layer above this package.
type Partition struct {
	dev  Flash
	off  uint32
	size uint32
}

// NewPartition creates a window of size bytes starting at off. Both must be
// aligned to the device erase block.
func NewPartition(dev Flash, off, size uint32) (*Partition, error) {
	if dev == nil {
		return nil, fmt.Errorf("partition: nil device")
	}
	bs := dev.EraseBlockBytes()
	if bs == 0 {
		return nil, fmt.Errorf("partition: device erase block size is zero")
	}
	if off%bs != 0 || size%bs != 0 {
		return nil, fmt.Errorf("partition: off=%d size=%d not aligned to erase block %d", off, size, bs)
	}
	if size == 0 || uint64(off)+uint64(size) > uint64(dev.SizeBytes()) {
		return nil, fmt.Errorf("partition: off=%d size=%d outside device of %d bytes", off, size, dev.SizeBytes())
	}
	return &Partition{dev: dev, off: off, size: size}, nil
}

func (p *Partition) SizeBytes() uint32       { return p.size }
func (p *Partition) EraseBlockBytes() uint32 { return p.dev.EraseBlockBytes() }

func (p *Partition) ReadAt(b []byte, off uint32) (int, error) {
	if err := p.check(uint32(len(b)), off); err != nil {
		return 0, err
	}
	return p.dev.ReadAt(b, p.off+off)
}

func (p *Partition) WriteAt(b []byte, off uint32) (int, error) {
	if err := p.check(uint32(len(b)), off); err != nil {
		return 0, err
	}
	return p.dev.WriteAt(b, p.off+off)
}

func (p *Partition) Erase(off, size uint32) error {
	if err := p.check(size, off); err != nil {
		return err
	}
	return p.dev.Erase(p.off+off, size)
}

func (p *Partition) check(n, off uint32) error {
	if uint64(off)+uint64(n) > uint64(p.size) {
		return fmt.Errorf("partition: %d bytes at %d outside window of %d bytes", n, off, p.size)
	}
	return nil
}
