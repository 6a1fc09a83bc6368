package storage

import (
	"fmt"
	"io"
)

// Backend kinds accepted by Config.Kind.
const (
	KindSession = "session"
	KindFile    = "file"
	KindSQLite  = "sqlite"
	KindNATS    = "nats"
)

// Config selects and parameterizes a backend.
type Config struct {
	Kind   string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`     // file root or sqlite database
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`       // nats server
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"` // nats key/value bucket
}

// DefaultConfig selects a session backend.
func DefaultConfig() Config {
	return Config{Kind: KindSession}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Kind != "" {
		c.Kind = source.Kind
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.URL != "" {
		c.URL = source.URL
	}
	if source.Bucket != "" {
		c.Bucket = source.Bucket
	}
}

// New builds the backend described by cfg. Backends holding resources
// (sqlite, nats) also implement io.Closer; see Close.
func New(cfg *Config) (Backend, error) {
	switch cfg.Kind {
	case KindSession, "":
		return NewSessionBackend(), nil
	case KindFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file backend: path is required")
		}
		return NewFileBackend(cfg.Path), nil
	case KindSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite backend: path is required")
		}
		b, err := NewSQLiteBackend(cfg.Path)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindNATS:
		if cfg.URL == "" || cfg.Bucket == "" {
			return nil, fmt.Errorf("nats backend: url and bucket are required")
		}
		b, err := ConnectNATS(cfg.URL, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, cfg.Kind)
	}
}

// Close releases b's resources if it holds any.
func Close(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
