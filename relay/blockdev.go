package relay

import (
	"fmt"

	"flashrelay/hal"
)

// Config describes one mounted target for the block-device entry points.
// BlockSize is the erase-block size the filesystem layer addresses.
type Config struct {
	BlockSize uint32
	Target    hal.Flash
}

func (c Config) valid() bool { return c.Target != nil && c.BlockSize > 0 }

// Read fills dst from the given block at intra-block offset off. It performs
// one blocking round trip to the worker and copies the result out of the
// relay buffer.
func (p *Proxy) Read(cfg Config, block, off uint32, dst []byte) Status {
	ch, abs, ok := p.admit(cfg, block, off, uint32(len(dst)), "read")
	if !ok {
		return StatusIOErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	win, err := p.buf.ensure(len(dst))
	if err != nil {
		p.log.WriteLineString(fmt.Sprintf("flash read: relay buffer: %v", err))
		return StatusIOErr
	}
	st := p.submitLocked(ch, request{kind: opRead, dev: cfg.Target, off: abs, buf: win, size: uint32(len(dst))})
	if !st.OK() {
		return st
	}
	copy(dst, win)
	return StatusOK
}

// Prog programs src into the given block at intra-block offset off. The data
// is copied into the relay buffer before the worker is signaled; the worker
// never reads caller memory.
func (p *Proxy) Prog(cfg Config, block, off uint32, src []byte) Status {
	ch, abs, ok := p.admit(cfg, block, off, uint32(len(src)), "prog")
	if !ok {
		return StatusIOErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	win, err := p.buf.ensure(len(src))
	if err != nil {
		p.log.WriteLineString(fmt.Sprintf("flash prog: relay buffer: %v", err))
		return StatusIOErr
	}
	copy(win, src)
	return p.submitLocked(ch, request{kind: opWrite, dev: cfg.Target, off: abs, buf: win, size: uint32(len(src))})
}

// Erase erases one whole block.
func (p *Proxy) Erase(cfg Config, block uint32) Status {
	ch, abs, ok := p.admit(cfg, block, 0, cfg.BlockSize, "erase")
	if !ok {
		return StatusIOErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submitLocked(ch, request{kind: opErase, dev: cfg.Target, off: abs, size: cfg.BlockSize})
}

// Sync is a no-op: the targets this layer drives have no write-back cache to
// flush. It always succeeds.
func (p *Proxy) Sync(cfg Config) Status {
	_ = cfg
	return StatusOK
}

// admit validates one operation and resolves its absolute device offset.
// Failures are logged and reported as (nil, 0, false).
func (p *Proxy) admit(cfg Config, block, off, size uint32, what string) (chan request, uint32, bool) {
	if !cfg.valid() || size == 0 || off >= cfg.BlockSize {
		p.log.WriteLineString(fmt.Sprintf("flash %s: bad request block=%d off=%d size=%d", what, block, off, size))
		return nil, 0, false
	}
	ch := p.channel()
	if ch == nil {
		p.log.WriteLineString(fmt.Sprintf("flash %s: relay worker not started", what))
		return nil, 0, false
	}
	abs := uint64(block)*uint64(cfg.BlockSize) + uint64(off)
	if abs+uint64(size) > uint64(cfg.Target.SizeBytes()) || abs > uint64(^uint32(0)) {
		p.log.WriteLineString(fmt.Sprintf("flash %s: block=%d off=%d size=%d outside target of %d bytes", what, block, off, size, cfg.Target.SizeBytes()))
		return nil, 0, false
	}
	return ch, uint32(abs), true
}
