package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// SessionBackend is a session-scoped Backend held in memory. Records live
// as long as the backend value; share one instance between values that
// belong to the same session. All methods are safe for concurrent use.
type SessionBackend struct {
	id       string
	records  map[string]string
	watchers map[string]map[uint64]func()
	nextID   uint64
	mu       sync.RWMutex
}

// NewSessionBackend returns an empty SessionBackend with a unique UUIDv7
// session identifier.
func NewSessionBackend() *SessionBackend {
	return &SessionBackend{
		id:       uuid.Must(uuid.NewV7()).String(),
		records:  make(map[string]string),
		watchers: make(map[string]map[uint64]func()),
	}
}

// ID returns the session identifier.
func (b *SessionBackend) ID() string {
	return b.id
}

func (b *SessionBackend) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.records[key]
	return v, ok, nil
}

func (b *SessionBackend) Set(_ context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}

	b.mu.Lock()
	b.records[key] = value
	notify := b.watchersFor(key)
	b.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	return nil
}

func (b *SessionBackend) Remove(_ context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	b.mu.Lock()
	_, existed := b.records[key]
	delete(b.records, key)
	var notify []func()
	if existed {
		notify = b.watchersFor(key)
	}
	b.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (b *SessionBackend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.records))
	for k := range b.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear ends the session's data: every record is dropped and watchers of
// the dropped keys are notified.
func (b *SessionBackend) Clear() {
	b.mu.Lock()
	var notify []func()
	for key := range b.records {
		notify = append(notify, b.watchersFor(key)...)
	}
	b.records = make(map[string]string)
	b.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

func (b *SessionBackend) Watch(ctx context.Context, key string, fn func()) (func(), error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.watchers[key] == nil {
		b.watchers[key] = make(map[uint64]func())
	}
	b.watchers[key][id] = fn
	b.mu.Unlock()

	stopped := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(stopped)
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.watchers[key], id)
			if len(b.watchers[key]) == 0 {
				delete(b.watchers, key)
			}
		})
	}

	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				stop()
			case <-stopped:
			}
		}()
	}

	return stop, nil
}

// watchersFor must be called with mu held.
func (b *SessionBackend) watchersFor(key string) []func() {
	fns := make([]func(), 0, len(b.watchers[key]))
	for _, fn := range b.watchers[key] {
		fns = append(fns, fn)
	}
	return fns
}
