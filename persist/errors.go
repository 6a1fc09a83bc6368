package persist

import "errors"

// Sentinel errors for persisted values. Backend failures are wrapped so
// both the persist sentinel and the storage sentinel match errors.Is.
var (
	ErrHydrate          = errors.New("hydrate failed")
	ErrDecode           = errors.New("decode stored value")
	ErrEncode           = errors.New("encode value")
	ErrPersist          = errors.New("persist value")
	ErrRemove           = errors.New("remove value")
	ErrClosed           = errors.New("value closed")
	ErrWatchUnsupported = errors.New("backend does not support watching")
	ErrCodecMismatch    = errors.New("codec type does not match value type")
)
