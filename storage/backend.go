// Package storage defines the key/value capability that persisted values
// are synchronized with, and the concrete backends statekit ships.
//
// Backends fall into two retention classes with one contract:
//
//   - durable: FileBackend, SQLiteBackend and NATSBackend keep records across
//     process restarts.
//   - session: SessionBackend keeps records in memory for the lifetime of
//     one session.
//
// Backends store opaque strings. Serialization belongs to the caller.
package storage

import "context"

// Backend reads and writes string records addressed by key.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the record for key. A missing key is reported as
	// ok == false with a nil error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set creates or overwrites the record for key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes the record for key. Removing a missing key succeeds.
	Remove(ctx context.Context, key string) error
}

// Watcher is implemented by backends that can report changes made to a key
// by any writer. fn is called after each change; it carries no payload, so
// the receiver re-reads the key. Watching ends when stop is called or ctx
// is done.
type Watcher interface {
	Watch(ctx context.Context, key string, fn func()) (stop func(), err error)
}
