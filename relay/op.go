package relay

import "flashrelay/hal"

// Status is the result code the block-device entry points return, following
// the littlefs convention: zero on success, negative on failure.
type Status int

const (
	// StatusOK reports a completed operation.
	StatusOK Status = 0

	// StatusIOErr is the single failure code at this layer (the littlefs
	// LFS_ERR_IO value). Driver failures, a missing worker, relay buffer
	// allocation failures and invalid operation kinds all collapse into it;
	// per-operation detail is only visible on the logger.
	StatusIOErr Status = -5
)

// OK reports whether the status is a success.
func (s Status) OK() bool { return s == StatusOK }

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusIOErr:
		return "io error"
	default:
		return "unknown"
	}
}

// opKind selects the driver primitive the worker runs.
type opKind uint8

const (
	opNone opKind = iota
	opRead
	opWrite
	opErase
	opInvalid
)

func (k opKind) String() string {
	switch k {
	case opNone:
		return "none"
	case opRead:
		return "read"
	case opWrite:
		return "write"
	case opErase:
		return "erase"
	default:
		return "invalid"
	}
}

// request describes one pending flash operation. It is valid from submit
// until the matching completion signal and travels to the worker by value.
type request struct {
	kind opKind
	dev  hal.Flash
	off  uint32
	buf  []byte // window into the relay buffer; nil for erase
	size uint32
	done chan Status
}
