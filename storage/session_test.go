package storage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/statekit/storage"
)

func TestSessionBackend_ID(t *testing.T) {
	a := storage.NewSessionBackend()
	b := storage.NewSessionBackend()

	id := a.ID()
	assert.NotEmpty(t, id)
	assert.NotEqual(t, id, b.ID(), "two sessions share an ID")
	assert.Equal(t, id, a.ID(), "ID is stable")
}

func TestSessionBackend_KeysAndClear(t *testing.T) {
	ctx := context.Background()
	b := storage.NewSessionBackend()

	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, b.Set(ctx, k, k))
	}
	assert.Equal(t, []string{"a", "b", "c"}, b.Keys())

	b.Clear()
	assert.Empty(t, b.Keys())
}

func TestSessionBackend_Watch(t *testing.T) {
	ctx := context.Background()
	b := storage.NewSessionBackend()

	calls := 0
	stop, err := b.Watch(ctx, "k", func() { calls++ })
	require.NoError(t, err)

	_ = b.Set(ctx, "k", "1")
	_ = b.Set(ctx, "other", "1")
	_ = b.Remove(ctx, "k")
	_ = b.Remove(ctx, "k") // already gone: no notification
	assert.Equal(t, 2, calls)

	_ = b.Set(ctx, "k", "2")
	b.Clear()
	assert.Equal(t, 4, calls, "Clear notifies watchers of removed keys")

	stop()
	_ = b.Set(ctx, "k", "3")
	assert.Equal(t, 4, calls, "no notification after stop")
}

func TestSessionBackend_WatchEndsWithContext(t *testing.T) {
	b := storage.NewSessionBackend()
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	calls := 0
	stop, err := b.Watch(ctx, "k", func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)
	cancel()
	stop() // stop after cancellation is safe

	_ = b.Set(context.Background(), "k", "v")

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestSessionBackend_Concurrent(t *testing.T) {
	ctx := context.Background()
	b := storage.NewSessionBackend()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i))
			_ = b.Set(ctx, key, key)
			_, _, _ = b.Get(ctx, key)
		}()
	}
	wg.Wait()

	assert.Len(t, b.Keys(), 20)
}
