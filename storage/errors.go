package storage

import "errors"

// Sentinel errors for backend operations.
var (
	ErrInvalidKey   = errors.New("invalid key")
	ErrLoadFailed   = errors.New("load failed")
	ErrSaveFailed   = errors.New("save failed")
	ErrRemoveFailed = errors.New("remove failed")
	ErrWatchFailed  = errors.New("watch failed")
	ErrUnknownKind  = errors.New("unknown backend kind")
)
