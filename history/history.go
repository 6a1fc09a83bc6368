// Package history records every value assigned to a slot.
//
// A Tracker keeps one append-only log and exposes two views over it: the
// current value (the last entry) and the history (every earlier entry,
// oldest first). Entries are never edited or dropped.
package history

import (
	"slices"

	"github.com/tailored-agentic-units/statekit/cell"
	"github.com/tailored-agentic-units/statekit/lazy"
)

// Log is an immutable snapshot of a Tracker's entries.
type Log[T any] []T

// Current returns the last entry. ok is false for an empty log.
func (l Log[T]) Current() (v T, ok bool) {
	if len(l) == 0 {
		return v, false
	}
	return l[len(l)-1], true
}

// History returns every entry before the current one.
func (l Log[T]) History() []T {
	if len(l) == 0 {
		return []T{}
	}
	return slices.Clone(l[:len(l)-1])
}

// appendEntry is the only transition a log supports.
func appendEntry[T any](l Log[T], v T) Log[T] {
	next := make(Log[T], len(l), len(l)+1)
	copy(next, l)
	return append(next, v)
}

// Tracker is an observable append-only log.
type Tracker[T any] struct {
	cell *cell.Cell[Log[T]]
}

// New starts a log whose first entry is the resolved initial value. If
// initial holds neither a literal nor a factory the log starts empty.
func New[T any](initial lazy.Value[T]) *Tracker[T] {
	var log Log[T]
	if initial.Present() {
		log = Log[T]{initial.Resolve()}
	}
	return &Tracker[T]{cell: cell.New(log)}
}

// Empty starts a log with no entries.
func Empty[T any]() *Tracker[T] {
	return New(lazy.Value[T]{})
}

// Set appends v. It reports false once the tracker is closed.
func (t *Tracker[T]) Set(v T) bool {
	_, ok := t.cell.Update(func(l Log[T]) Log[T] { return appendEntry(l, v) })
	return ok
}

// Current returns the most recent entry.
func (t *Tracker[T]) Current() (T, bool) {
	return t.cell.Load().Current()
}

// History returns the entries before the current one, oldest first.
func (t *Tracker[T]) History() []T {
	return t.cell.Load().History()
}

// Len returns the number of entries, including the current one.
func (t *Tracker[T]) Len() int {
	return len(t.cell.Load())
}

// Snapshot returns the full log.
func (t *Tracker[T]) Snapshot() Log[T] {
	return t.cell.Load()
}

// Subscribe registers fn to receive the log after every append.
func (t *Tracker[T]) Subscribe(fn func(Log[T])) (cancel func()) {
	return t.cell.Subscribe(fn)
}

// Close drops subscribers and stops accepting entries.
func (t *Tracker[T]) Close() {
	t.cell.Close()
}
