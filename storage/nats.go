package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// NATSBackend is a durable Backend on a JetStream key/value bucket. Records
// are shared by every process attached to the bucket.
type NATSBackend struct {
	kv   nats.KeyValue
	conn *nats.Conn
}

// NewNATSBackend wraps an existing bucket handle. The caller keeps
// ownership of the underlying connection.
func NewNATSBackend(kv nats.KeyValue) *NATSBackend {
	return &NATSBackend{kv: kv}
}

// ConnectNATS dials url and binds bucket, creating the bucket if it does
// not exist. Close releases the connection.
func ConnectNATS(url, bucket string) (*NATSBackend, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: bucket})
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("bind bucket %s: %w", bucket, err)
	}

	return &NATSBackend{kv: kv, conn: nc}, nil
}

func (b *NATSBackend) Get(_ context.Context, key string) (string, bool, error) {
	entry, err := b.kv.Get(key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return "", false, nil
	}
	if errors.Is(err, nats.ErrInvalidKey) {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
	}
	return string(entry.Value()), true, nil
}

func (b *NATSBackend) Set(_ context.Context, key, value string) error {
	if _, err := b.kv.PutString(key, value); err != nil {
		if errors.Is(err, nats.ErrInvalidKey) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}
	return nil
}

func (b *NATSBackend) Remove(_ context.Context, key string) error {
	if err := b.kv.Delete(key); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s: %v", ErrRemoveFailed, key, err)
	}
	return nil
}

// Watch follows updates to key published by any client of the bucket.
func (b *NATSBackend) Watch(ctx context.Context, key string, fn func()) (func(), error) {
	w, err := b.kv.Watch(key, nats.UpdatesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWatchFailed, key, err)
	}

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			_ = w.Stop()
		})
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				stop()
				return
			case <-done:
				return
			case entry, ok := <-w.Updates():
				if !ok {
					return
				}
				if entry != nil {
					fn()
				}
			}
		}
	}()

	return stop, nil
}

// Close closes the connection if the backend owns one.
func (b *NATSBackend) Close() error {
	if b.conn != nil {
		b.conn.Close()
	}
	return nil
}
