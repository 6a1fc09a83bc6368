package timeout

import (
	"errors"
	"fmt"
	"io"
)

// Scheduler kinds accepted by Config.Scheduler.
const (
	SchedulerClock  = "clock"
	SchedulerGocron = "gocron"
)

// ErrUnknownScheduler is returned for an unrecognized Config.Scheduler.
var ErrUnknownScheduler = errors.New("unknown scheduler")

// Config selects the scheduler used by timers.
type Config struct {
	Scheduler string `json:"scheduler,omitempty" yaml:"scheduler,omitempty"`
}

// DefaultConfig selects the clock scheduler.
func DefaultConfig() Config {
	return Config{Scheduler: SchedulerClock}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Scheduler != "" {
		c.Scheduler = source.Scheduler
	}
}

// NewScheduler builds the scheduler described by cfg on the real clock.
// The gocron scheduler must be released with Close.
func NewScheduler(cfg *Config) (Scheduler, error) {
	switch cfg.Scheduler {
	case SchedulerClock, "":
		return NewClockScheduler(nil), nil
	case SchedulerGocron:
		s, err := NewGocronScheduler(nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheduler, cfg.Scheduler)
	}
}

// Close releases s's resources if it holds any.
func Close(s Scheduler) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
