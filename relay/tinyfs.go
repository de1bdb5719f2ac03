package relay

import (
	"errors"
	"fmt"

	"tinygo.org/x/tinyfs"
)

// writeBlockBytes is the program page size reported to the filesystem layer,
// the usual NOR page.
const writeBlockBytes = 256

// BlockDevice exposes a proxied target as a tinyfs.BlockDevice, so a
// filesystem such as tinyfs littlefs or fatfs mounts through the relay and
// never touches the driver directly.
type BlockDevice struct {
	p   *Proxy
	cfg Config
}

var _ tinyfs.BlockDevice = (*BlockDevice)(nil)

// NewBlockDevice wraps proxy+config. The target size must be a whole number
// of blocks.
func NewBlockDevice(p *Proxy, cfg Config) (*BlockDevice, error) {
	if p == nil {
		return nil, errors.New("relay: nil proxy")
	}
	if !cfg.valid() {
		return nil, errors.New("relay: config needs a target and a block size")
	}
	if cfg.Target.SizeBytes()%cfg.BlockSize != 0 {
		return nil, fmt.Errorf("relay: target size %d not a multiple of block size %d", cfg.Target.SizeBytes(), cfg.BlockSize)
	}
	return &BlockDevice{p: p, cfg: cfg}, nil
}

func (d *BlockDevice) Size() int64           { return int64(d.cfg.Target.SizeBytes()) }
func (d *BlockDevice) WriteBlockSize() int64 { return writeBlockBytes }
func (d *BlockDevice) EraseBlockSize() int64 { return int64(d.cfg.BlockSize) }

func (d *BlockDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.eachBlock(p, off, "read", func(block, blockOff uint32, chunk []byte) Status {
		return d.p.Read(d.cfg, block, blockOff, chunk)
	})
}

func (d *BlockDevice) WriteAt(p []byte, off int64) (int, error) {
	return d.eachBlock(p, off, "write", func(block, blockOff uint32, chunk []byte) Status {
		return d.p.Prog(d.cfg, block, blockOff, chunk)
	})
}

func (d *BlockDevice) EraseBlocks(start, n int64) error {
	for i := int64(0); i < n; i++ {
		if st := d.p.Erase(d.cfg, uint32(start+i)); !st.OK() {
			return fmt.Errorf("relay: erase block %d: %s", start+i, st)
		}
	}
	return nil
}

// eachBlock splits a byte-addressed span into per-block relay operations.
func (d *BlockDevice) eachBlock(p []byte, off int64, what string, op func(block, blockOff uint32, chunk []byte) Status) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 || off+int64(len(p)) > d.Size() {
		return 0, fmt.Errorf("relay: %s [%d, %d) outside device of %d bytes", what, off, off+int64(len(p)), d.Size())
	}

	bs := int64(d.cfg.BlockSize)
	done := 0
	for done < len(p) {
		pos := off + int64(done)
		block := pos / bs
		blockOff := pos % bs
		n := int(bs - blockOff)
		if n > len(p)-done {
			n = len(p) - done
		}
		if st := op(uint32(block), uint32(blockOff), p[done:done+n]); !st.OK() {
			return done, fmt.Errorf("relay: %s block %d off %d: %s", what, block, blockOff, st)
		}
		done += n
	}
	return done, nil
}
