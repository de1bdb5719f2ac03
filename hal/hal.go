// Package hal abstracts the physical storage targets the relay can drive,
// plus the line-oriented logger the worker reports diagnostics to.
package hal

import "errors"

var ErrNotImplemented = errors.New("not implemented")

// ErrWriteRequiresErase reports an attempt to program bits from 0 back to 1
// on a NOR-style backend.
var ErrWriteRequiresErase = errors.New("flash write requires erase")

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// Flash provides raw access to non-volatile memory.
//
// It is intentionally low-level: addresses and erase blocks only. Programming
// a region that has not been erased is an error on NOR-style backends.
type Flash interface {
	SizeBytes() uint32
	EraseBlockBytes() uint32
	ReadAt(p []byte, off uint32) (int, error)
	WriteAt(p []byte, off uint32) (int, error)
	Erase(off, size uint32) error
}
