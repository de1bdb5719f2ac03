package hal

// NullFlash returns a Flash whose operations all fail with ErrNotImplemented.
func NullFlash() Flash { return nullFlash{} }

type nullFlash struct{}

func (nullFlash) SizeBytes() uint32       { return 0 }
func (nullFlash) EraseBlockBytes() uint32 { return 0 }

func (nullFlash) ReadAt(p []byte, off uint32) (int, error) {
	_ = p
	_ = off
	return 0, ErrNotImplemented
}

func (nullFlash) WriteAt(p []byte, off uint32) (int, error) {
	_ = p
	_ = off
	return 0, ErrNotImplemented
}

func (nullFlash) Erase(off, size uint32) error {
	_ = off
	_ = size
	return ErrNotImplemented
}

// DiscardLogger returns a Logger that drops every line.
func DiscardLogger() Logger { return discardLogger{} }

type discardLogger struct{}

func (discardLogger) WriteLineString(s string) { _ = s }
func (discardLogger) WriteLineBytes(b []byte)  { _ = b }
