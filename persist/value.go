// Package persist keeps an observable value synchronized with a record in
// a storage.Backend.
//
// A Value hydrates from the backend once when it is created and writes
// through on every change afterwards. Hydration itself never writes: a
// value read from the backend, or a default used because the record is
// missing, is only persisted once the caller sets it.
//
//	backend := storage.NewFileBackend(dir)
//	theme, err := persist.New(ctx, "prefs/theme", lazy.Of("light"), backend)
//	err = theme.Set(ctx, "dark")
//	err = theme.Remove(ctx) // record deleted, value absent
//
// Failed writes leave the in-memory value updated and the backend behind;
// the error is returned to the caller and nothing is retried.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/statekit/cell"
	"github.com/tailored-agentic-units/statekit/lazy"
	"github.com/tailored-agentic-units/statekit/observability"
	"github.com/tailored-agentic-units/statekit/storage"
)

// Slot is the observable state of a Value. Present is false while the
// value is absent, which is distinct from holding the zero T.
type Slot[T any] struct {
	Key     string
	Value   T
	Present bool
}

type options struct {
	observer        observability.Observer
	codec           any
	defaultOnDecode bool
}

// Option configures a Value.
type Option func(*options)

// WithObserver reports hydration, writes and failures to obs.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithCodec replaces the default JSON codec.
func WithCodec[T any](c Codec[T]) Option {
	return func(o *options) { o.codec = c }
}

// WithDefaultOnDecodeError makes hydration fall back to the default when
// the stored record cannot be decoded, instead of failing.
func WithDefaultOnDecodeError() Option {
	return func(o *options) { o.defaultOnDecode = true }
}

// Value is a persisted, observable value of type T.
type Value[T any] struct {
	backend         storage.Backend
	codec           Codec[T]
	def             lazy.Value[T]
	defaultOnDecode bool
	observer        observability.Observer

	cell *cell.Cell[Slot[T]]
	emit observability.Emitter

	key           string
	synced        string // last record read or written; used by Refresh
	syncedPresent bool
	watchCtx      context.Context
	stopWatch     func()

	mu sync.Mutex
}

// New hydrates a Value for key from backend. If the record is missing the
// default is resolved (a factory runs at most once) and the backend is left
// untouched. A record that fails to decode is an ErrDecode error unless
// WithDefaultOnDecodeError is set.
func New[T any](ctx context.Context, key string, def lazy.Value[T], backend storage.Backend, opts ...Option) (*Value[T], error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	codec := JSON[T]()
	if o.codec != nil {
		c, ok := o.codec.(Codec[T])
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrCodecMismatch, o.codec)
		}
		codec = c
	}

	v := &Value[T]{
		backend:         backend,
		codec:           codec,
		def:             def,
		defaultOnDecode: o.defaultOnDecode,
		observer:        o.observer,
	}

	slot, err := v.hydrate(ctx, key)
	if err != nil {
		return nil, err
	}
	v.cell = cell.New(slot)
	return v, nil
}

// hydrate reads key and records it as the synchronized state. It never
// writes to the backend.
func (v *Value[T]) hydrate(ctx context.Context, key string) (Slot[T], error) {
	v.key = key
	v.emit = observability.NewEmitter(v.observer, key)

	raw, ok, err := v.backend.Get(ctx, key)
	if err != nil {
		v.emit.Emit(ctx, EventError, observability.LevelError, map[string]any{"op": "hydrate", "error": err.Error()})
		return Slot[T]{}, fmt.Errorf("%w: %s: %w", ErrHydrate, key, err)
	}

	if !ok {
		v.synced, v.syncedPresent = "", false
		v.emit.Emit(ctx, EventHydrate, observability.LevelDebug, map[string]any{"found": false})
		return v.defaultSlot(), nil
	}

	decoded, err := v.codec.Decode(raw)
	if err != nil {
		if !v.defaultOnDecode {
			v.emit.Emit(ctx, EventError, observability.LevelError, map[string]any{"op": "decode", "error": err.Error()})
			return Slot[T]{}, fmt.Errorf("%w: %s: %w", ErrDecode, key, err)
		}
		v.synced, v.syncedPresent = raw, true
		v.emit.Emit(ctx, EventError, observability.LevelWarning, map[string]any{"op": "decode", "error": err.Error(), "fallback": "default"})
		return v.defaultSlot(), nil
	}

	v.synced, v.syncedPresent = raw, true
	v.emit.Emit(ctx, EventHydrate, observability.LevelDebug, map[string]any{"found": true})
	return Slot[T]{Key: key, Value: decoded, Present: true}, nil
}

func (v *Value[T]) defaultSlot() Slot[T] {
	return Slot[T]{Key: v.key, Value: v.def.Resolve(), Present: v.def.Present()}
}

// Get returns the current value. ok is false while the value is absent.
func (v *Value[T]) Get() (value T, ok bool) {
	s := v.cell.Load()
	return s.Value, s.Present
}

// Slot returns the full observable state.
func (v *Value[T]) Slot() Slot[T] {
	return v.cell.Load()
}

// Key returns the key currently bound.
func (v *Value[T]) Key() string {
	return v.cell.Load().Key
}

// Set stores val and writes it to the backend. The write happens even when
// val equals the hydrated record, since other writers may have changed or
// removed it.
func (v *Value[T]) Set(ctx context.Context, val T) error {
	return v.Update(ctx, func(T) T { return val })
}

// Update stores fn(current) and writes it to the backend. On an absent
// value fn receives the zero T.
func (v *Value[T]) Update(ctx context.Context, fn func(prev T) T) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	next, ok := v.cell.Update(func(s Slot[T]) Slot[T] {
		return Slot[T]{Key: v.key, Value: fn(s.Value), Present: true}
	})
	if !ok {
		return ErrClosed
	}
	return v.persist(ctx, next.Value)
}

// persist must be called with mu held.
func (v *Value[T]) persist(ctx context.Context, val T) error {
	enc, err := v.codec.Encode(val)
	if err != nil {
		v.emit.Emit(ctx, EventError, observability.LevelError, map[string]any{"op": "encode", "error": err.Error()})
		return fmt.Errorf("%w: %s: %w", ErrEncode, v.key, err)
	}

	if err := v.backend.Set(ctx, v.key, enc); err != nil {
		v.emit.Emit(ctx, EventError, observability.LevelError, map[string]any{"op": "write", "error": err.Error()})
		return fmt.Errorf("%w: %s: %w", ErrPersist, v.key, err)
	}

	v.synced, v.syncedPresent = enc, true
	v.emit.Emit(ctx, EventWrite, observability.LevelDebug, map[string]any{"bytes": len(enc)})
	return nil
}

// Remove makes the value absent and deletes the backend record.
func (v *Value[T]) Remove(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.cell.Store(Slot[T]{Key: v.key}) {
		return ErrClosed
	}

	if err := v.backend.Remove(ctx, v.key); err != nil {
		v.emit.Emit(ctx, EventError, observability.LevelError, map[string]any{"op": "remove", "error": err.Error()})
		return fmt.Errorf("%w: %s: %w", ErrRemove, v.key, err)
	}

	v.synced, v.syncedPresent = "", false
	v.emit.Emit(ctx, EventRemove, observability.LevelDebug, nil)
	return nil
}

// Refresh re-reads the bound key and adopts the backend's record without
// writing. A record that disappeared makes the value absent. Records equal
// to the last synchronized one are ignored.
func (v *Value[T]) Refresh(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cell.Closed() {
		return ErrClosed
	}

	raw, ok, err := v.backend.Get(ctx, v.key)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrHydrate, v.key, err)
	}
	if ok == v.syncedPresent && raw == v.synced {
		return nil
	}

	next := Slot[T]{Key: v.key}
	if ok {
		decoded, err := v.codec.Decode(raw)
		if err != nil {
			v.emit.Emit(ctx, EventError, observability.LevelWarning, map[string]any{"op": "refresh", "error": err.Error()})
			return fmt.Errorf("%w: %s: %w", ErrDecode, v.key, err)
		}
		next = Slot[T]{Key: v.key, Value: decoded, Present: true}
	}

	v.synced, v.syncedPresent = raw, ok
	v.cell.Store(next)
	v.emit.Emit(ctx, EventRefresh, observability.LevelDebug, map[string]any{"found": ok})
	return nil
}

// Rekey binds the value to a different key: any watch on the old key is
// stopped and the value is hydrated from the new key. Like New, this does
// not write.
func (v *Value[T]) Rekey(ctx context.Context, key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cell.Closed() {
		return ErrClosed
	}
	if key == v.key {
		return nil
	}

	// The old watch stays in place until the new key hydrates; its
	// notifications wait on mu.
	oldKey, oldEmit := v.key, v.emit
	slot, err := v.hydrate(ctx, key)
	if err != nil {
		v.key, v.emit = oldKey, oldEmit
		return err
	}
	v.cell.Store(slot)

	if v.stopWatch == nil {
		return nil
	}
	v.stopWatchLocked()
	return v.watchLocked(v.watchCtx)
}

// Watch follows changes made to the record by other writers and refreshes
// the value after each one. It requires a backend implementing
// storage.Watcher and runs until ctx is done or Close is called.
func (v *Value[T]) Watch(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cell.Closed() {
		return ErrClosed
	}
	v.stopWatchLocked()
	return v.watchLocked(ctx)
}

func (v *Value[T]) watchLocked(ctx context.Context) error {
	w, ok := v.backend.(storage.Watcher)
	if !ok {
		return ErrWatchUnsupported
	}

	// Notifications may arrive while a write holds mu, so refresh
	// asynchronously.
	emit := v.emit
	stop, err := w.Watch(ctx, v.key, func() {
		go func() {
			if err := v.Refresh(ctx); err != nil && !errors.Is(err, ErrClosed) {
				emit.Emit(ctx, EventError, observability.LevelWarning, map[string]any{"op": "watch", "error": err.Error()})
			}
		}()
	})
	if err != nil {
		return err
	}

	v.watchCtx = ctx
	v.stopWatch = stop
	return nil
}

func (v *Value[T]) stopWatchLocked() {
	if v.stopWatch != nil {
		v.stopWatch()
		v.stopWatch = nil
	}
}

// Subscribe registers fn to receive every change of the slot.
func (v *Value[T]) Subscribe(fn func(Slot[T])) (cancel func()) {
	return v.cell.Subscribe(fn)
}

// Close stops watching and drops subscribers. The backend record is kept.
func (v *Value[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.stopWatchLocked()
	v.cell.Close()
}
