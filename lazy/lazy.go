// Package lazy represents a default that is either a ready value or a
// factory producing one. The factory form exists so expensive defaults are
// built at most once, and only when actually needed.
package lazy

import "sync"

// Value is a literal or a factory. The zero Value resolves to the zero T
// and reports that nothing was provided.
type Value[T any] struct {
	state *resolver[T]
}

type resolver[T any] struct {
	once    sync.Once
	fn      func() T
	value   T
	present bool
}

// Of wraps a literal.
func Of[T any](v T) Value[T] {
	r := &resolver[T]{value: v, present: true}
	r.once.Do(func() {})
	return Value[T]{state: r}
}

// Func wraps a factory. fn runs on the first Resolve and never again.
func Func[T any](fn func() T) Value[T] {
	return Value[T]{state: &resolver[T]{fn: fn, present: fn != nil}}
}

// Resolve returns the value, invoking the factory on first use.
func (v Value[T]) Resolve() T {
	if v.state == nil {
		var zero T
		return zero
	}
	r := v.state
	r.once.Do(func() {
		if r.fn != nil {
			r.value = r.fn()
			r.fn = nil
		}
	})
	return r.value
}

// Present reports whether a literal or factory was supplied.
func (v Value[T]) Present() bool {
	return v.state != nil && v.state.present
}
