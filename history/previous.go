package history

import "sync"

// Previous remembers the value observed before the latest one. It is the
// two-entry special case of a Tracker without retaining older values.
type Previous[T any] struct {
	current T
	prev    T
	seen    int
	mu      sync.Mutex
}

// Observe records v as the current value and returns the value that was
// current before it. ok is false on the first observation.
func (p *Previous[T]) Observe(v T) (prev T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prev = p.current
	p.current = v
	if p.seen < 2 {
		p.seen++
	}
	return p.prev, p.seen > 1
}

// Get returns the value before the current one without recording anything.
func (p *Previous[T]) Get() (prev T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prev, p.seen > 1
}
