package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrUnknownObserver is returned by GetObserver for unregistered names.
var ErrUnknownObserver = errors.New("unknown observer")

var (
	registry = map[string]Observer{
		"noop": NoOpObserver{},
		"slog": NewSlogObserver(slog.Default()),
	}
	registryMu sync.RWMutex
)

// GetObserver looks up a named observer. "noop" and "slog" are always
// available; configuration refers to observers by these names.
func GetObserver(name string) (Observer, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	obs, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObserver, name)
	}
	return obs, nil
}

// RegisterObserver installs observer under name, replacing any previous one.
func RegisterObserver(name string, observer Observer) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[name] = observer
}
