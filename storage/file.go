package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileBackend is a durable Backend on the local filesystem. Keys are
// /-separated relative paths under root; each record is one file.
type FileBackend struct {
	root string
}

// NewFileBackend returns a FileBackend rooted at root. The directory is
// created on first write.
func NewFileBackend(root string) *FileBackend {
	return &FileBackend{root: root}
}

// Root returns the backend's root directory.
func (b *FileBackend) Root() string {
	return b.root
}

func (b *FileBackend) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return filepath.Join(b.root, filepath.FromSlash(key)), nil
}

func (b *FileBackend) Get(_ context.Context, key string) (string, bool, error) {
	path, err := b.path(key)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
	}
	return string(data), true, nil
}

// Set writes through a temporary file and renames it into place, so
// readers never observe a partial record.
func (b *FileBackend) Set(_ context.Context, key, value string) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}

	return nil
}

func (b *FileBackend) Remove(_ context.Context, key string) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %s: %v", ErrRemoveFailed, key, err)
	}
	return nil
}

// Watch follows the file behind key with fsnotify. The key's directory is
// created if needed so a key can be watched before its first write.
// Temporary files from in-flight writes are ignored; the rename that
// publishes a write is reported as one change.
func (b *FileBackend) Watch(ctx context.Context, key string, fn func()) (func(), error) {
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWatchFailed, key, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWatchFailed, key, err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrWatchFailed, key, err)
	}

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			w.Close()
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
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path {
					continue
				}
				if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
					ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					fn()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return stop, nil
}
