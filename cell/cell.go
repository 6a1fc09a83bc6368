// Package cell provides the observable container shared by statekit
// components: one owned value, changed only through Update, with
// subscribers notified of every change in the order changes were applied.
//
// Closing a cell is the teardown hook. After Close, Update is refused and
// no subscriber is called again, so work that settles late cannot mutate
// state its consumer has stopped watching.
package cell

import "sync"

// Cell holds a value of type T. All methods are safe for concurrent use.
// Subscribers run synchronously inside Update and must not call Update on
// the same cell.
type Cell[T any] struct {
	value  T
	subs   map[uint64]func(T)
	next   uint64
	closed bool

	mu       sync.RWMutex
	notifyMu sync.Mutex
}

// New returns a Cell holding initial.
func New[T any](initial T) *Cell[T] {
	return &Cell[T]{
		value: initial,
		subs:  make(map[uint64]func(T)),
	}
}

// Load returns the current value.
func (c *Cell[T]) Load() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Store replaces the value. It reports false if the cell is closed.
func (c *Cell[T]) Store(v T) bool {
	_, ok := c.Update(func(T) T { return v })
	return ok
}

// Update applies fn to the current value, stores the result and notifies
// subscribers. It returns the new value and true, or the unchanged value
// and false if the cell is closed.
func (c *Cell[T]) Update(fn func(T) T) (T, bool) {
	return c.Apply(func(v T) (T, bool) { return fn(v), true })
}

// Apply is Update with a veto: when fn returns false the value is left as
// it was and no subscriber is notified. It returns the resulting value and
// whether fn's result was stored.
func (c *Cell[T]) Apply(fn func(T) (T, bool)) (T, bool) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.closed {
		v := c.value
		c.mu.Unlock()
		return v, false
	}
	next, ok := fn(c.value)
	if !ok {
		v := c.value
		c.mu.Unlock()
		return v, false
	}
	c.value = next
	subs := make([]func(T), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next, true
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. Subscribing to a closed cell is a no-op.
func (c *Cell[T]) Subscribe(fn func(T)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return func() {}
	}

	id := c.next
	c.next++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Close drops every subscriber and freezes the value. It is idempotent.
func (c *Cell[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	clear(c.subs)
}

// Closed reports whether Close has been called.
func (c *Cell[T]) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
