// Package relay executes flash operations on a dedicated worker goroutine on
// behalf of arbitrary callers. On the original hardware the worker's stack
// and transfer buffer live in a restricted driver-accessible memory region;
// callers hand each operation over a capacity-1 rendezvous and block until
// the worker reports a result, so the asynchronous hop looks synchronous.
package relay

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"flashrelay/hal"
	"flashrelay/internal/iram"
)

// Options configures a Proxy.
type Options struct {
	// Logger receives driver failure diagnostics. Defaults to discard.
	Logger hal.Logger

	// Region is the restricted memory pool the relay buffer is carved from.
	// Defaults to a fresh region of iram.DefaultRegionBytes.
	Region *iram.Region

	// WaitTimeout bounds the wait for the worker to finish one operation.
	// Zero waits forever, matching the guarantees of the target hardware.
	WaitTimeout time.Duration
}

// Proxy relays block operations to a single worker goroutine that owns the
// only buffer the flash driver touches. At most one operation is in flight
// at a time; the proxy serializes callers itself, so the entry points are
// safe for concurrent use.
type Proxy struct {
	log     hal.Logger
	timeout time.Duration

	// mu serializes one full submit-and-wait sequence, which also protects
	// the relay buffer between the descriptor copy-in and the result
	// copy-out.
	mu  sync.Mutex
	buf relayBuf

	startMu sync.Mutex
	reqCh   chan request

	workers atomic.Int32
}

// New creates a proxy. The worker is not started yet; call Start once before
// issuing operations.
func New(opts Options) *Proxy {
	log := opts.Logger
	if log == nil {
		log = hal.DiscardLogger()
	}
	region := opts.Region
	if region == nil {
		region = iram.NewRegion(iram.DefaultRegionBytes)
	}
	return &Proxy{
		log:     log,
		timeout: opts.WaitTimeout,
		buf:     relayBuf{region: region},
	}
}

// Start launches the worker goroutine. It is idempotent: once the worker is
// running, further calls are no-ops.
func (p *Proxy) Start() {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.reqCh != nil {
		return
	}
	p.reqCh = make(chan request, 1)
	p.workers.Add(1)
	go p.run(p.reqCh)
}

// Running reports whether Start has been called.
func (p *Proxy) Running() bool {
	return p.channel() != nil
}

// channel returns the worker's request channel, nil before Start.
func (p *Proxy) channel() chan request {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	return p.reqCh
}

// run is the worker loop. It is the only goroutine that ever touches the
// driver or reads the relay buffer; on the original hardware its stack lives
// in the restricted region.
func (p *Proxy) run(reqCh <-chan request) {
	for req := range reqCh {
		req.done <- p.execute(req)
	}
}

func (p *Proxy) execute(req request) Status {
	var err error
	switch req.kind {
	case opRead:
		var n int
		n, err = req.dev.ReadAt(req.buf, req.off)
		if err == nil && n != len(req.buf) {
			err = fmt.Errorf("short read: %d of %d bytes", n, len(req.buf))
		}
	case opWrite:
		var n int
		n, err = req.dev.WriteAt(req.buf, req.off)
		if err == nil && n != len(req.buf) {
			err = fmt.Errorf("short write: %d of %d bytes", n, len(req.buf))
		}
	case opErase:
		err = req.dev.Erase(req.off, req.size)
	default:
		err = fmt.Errorf("unrecognized operation kind %d", req.kind)
	}
	if err != nil {
		p.log.WriteLineString(fmt.Sprintf("flash %s at %d (%d bytes) failed: %v", req.kind, req.off, req.size, err))
		return StatusIOErr
	}
	return StatusOK
}

// submitLocked hands one request to the worker and blocks for its result.
// The caller must hold p.mu.
func (p *Proxy) submitLocked(ch chan request, req request) Status {
	// The result channel is buffered so a worker finishing after a timeout
	// never blocks, and a response can never be claimed by a later request.
	req.done = make(chan Status, 1)
	ch <- req

	if p.timeout <= 0 {
		return <-req.done
	}

	t := time.NewTimer(p.timeout)
	defer t.Stop()
	select {
	case st := <-req.done:
		return st
	case <-t.C:
		p.log.WriteLineString(fmt.Sprintf("flash %s at %d gave up after %s; worker still busy", req.kind, req.off, p.timeout))
		return StatusIOErr
	}
}
