package relay

import "flashrelay/internal/iram"

// relayBuf owns the single transfer buffer all flash data moves through.
// It is allocated lazily from the restricted region and only ever grows.
type relayBuf struct {
	region *iram.Region
	buf    *iram.Buffer
}

// ensure guarantees capacity for n bytes and returns the n-byte window.
// Contents are unspecified after a grow.
func (rb *relayBuf) ensure(n int) ([]byte, error) {
	if rb.buf == nil {
		b, err := rb.region.Alloc(n)
		if err != nil {
			return nil, err
		}
		rb.buf = b
	} else if rb.buf.Cap() < n {
		if err := rb.buf.Grow(n); err != nil {
			return nil, err
		}
	}
	return rb.buf.Bytes()[:n], nil
}

// capBytes returns the current buffer capacity, zero before first use.
func (rb *relayBuf) capBytes() int {
	if rb.buf == nil {
		return 0
	}
	return rb.buf.Cap()
}
