package relay

import (
	"testing"
	"time"

	"flashrelay/hal/blocktest"
	"flashrelay/internal/iram"
)

func testConfig(dev *blocktest.Device) Config {
	return Config{BlockSize: dev.EraseBlockBytes(), Target: dev}
}

func TestStartIdempotent(t *testing.T) {
	p := New(Options{})

	p.Start()
	p.Start()
	p.Start()

	if got := p.workers.Load(); got != 1 {
		t.Fatalf("worker count after three Start calls = %d, want 1", got)
	}
	if !p.Running() {
		t.Fatal("Running() = false after Start")
	}
}

func TestOperationsBeforeStartFail(t *testing.T) {
	dev := blocktest.New(16*4096, 4096)
	p := New(Options{})
	cfg := testConfig(dev)

	if st := p.Read(cfg, 0, 0, make([]byte, 16)); st != StatusIOErr {
		t.Fatalf("Read before Start = %s, want io error", st)
	}
	if st := p.Prog(cfg, 0, 0, make([]byte, 16)); st != StatusIOErr {
		t.Fatalf("Prog before Start = %s, want io error", st)
	}
	if st := p.Erase(cfg, 0); st != StatusIOErr {
		t.Fatalf("Erase before Start = %s, want io error", st)
	}
	if calls := dev.Calls(); len(calls) != 0 {
		t.Fatalf("driver saw %d calls before Start, want 0: %v", len(calls), calls)
	}
}

func TestInvalidKindReturnsWorkerToWait(t *testing.T) {
	dev := blocktest.New(16*4096, 4096)
	p := New(Options{})
	p.Start()

	p.mu.Lock()
	st := p.submitLocked(p.channel(), request{kind: opKind(9), dev: dev, off: 0, size: 4})
	p.mu.Unlock()
	if st != StatusIOErr {
		t.Fatalf("corrupt kind = %s, want io error", st)
	}

	// The worker must be back at its wait state.
	if st := p.Erase(testConfig(dev), 1); st != StatusOK {
		t.Fatalf("Erase after corrupt kind = %s, want ok", st)
	}
}

func TestRelayBufferGrowsMonotonically(t *testing.T) {
	dev := blocktest.New(16*4096, 4096)
	p := New(Options{})
	p.Start()
	cfg := testConfig(dev)

	if st := p.Read(cfg, 0, 0, make([]byte, 64)); st != StatusOK {
		t.Fatalf("Read 64 = %s, want ok", st)
	}
	if got := p.buf.capBytes(); got < 64 {
		t.Fatalf("relay capacity after 64-byte read = %d, want >= 64", got)
	}

	if st := p.Read(cfg, 0, 0, make([]byte, 32)); st != StatusOK {
		t.Fatalf("Read 32 = %s, want ok", st)
	}
	if got := p.buf.capBytes(); got < 64 {
		t.Fatalf("relay capacity shrank to %d after smaller read, want >= 64", got)
	}

	if st := p.Read(cfg, 0, 0, make([]byte, 4096)); st != StatusOK {
		t.Fatalf("Read 4096 = %s, want ok", st)
	}
	if got := p.buf.capBytes(); got < 4096 {
		t.Fatalf("relay capacity after 4096-byte read = %d, want >= 4096", got)
	}
}

func TestRegionExhaustionIsIOErrNotPanic(t *testing.T) {
	dev := blocktest.New(16*4096, 4096)
	p := New(Options{Region: iram.NewRegion(64)})
	p.Start()
	cfg := testConfig(dev)

	if st := p.Read(cfg, 0, 0, make([]byte, 128)); st != StatusIOErr {
		t.Fatalf("Read beyond region budget = %s, want io error", st)
	}
	if calls := dev.Calls(); len(calls) != 0 {
		t.Fatalf("driver saw %d calls after failed allocation, want 0", len(calls))
	}

	// A request that fits still works.
	if st := p.Read(cfg, 0, 0, make([]byte, 32)); st != StatusOK {
		t.Fatalf("Read within region budget = %s, want ok", st)
	}
}

func TestWaitTimeout(t *testing.T) {
	dev := blocktest.New(16*4096, 4096)
	dev.Gate = make(chan struct{})
	p := New(Options{WaitTimeout: 20 * time.Millisecond})
	p.Start()
	cfg := testConfig(dev)

	start := time.Now()
	if st := p.Read(cfg, 0, 0, make([]byte, 16)); st != StatusIOErr {
		t.Fatalf("Read against wedged driver = %s, want io error", st)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timed-out read took %s", elapsed)
	}

	// Release the driver; the abandoned completion must not be mistaken for
	// the next operation's result.
	close(dev.Gate)
	if st := p.Erase(cfg, 2); st != StatusOK {
		t.Fatalf("Erase after recovery = %s, want ok", st)
	}
}
