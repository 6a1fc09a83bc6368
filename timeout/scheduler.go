package timeout

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrSchedule is returned when a scheduler cannot accept a deferred call.
var ErrSchedule = errors.New("failed to schedule deferred call")

// Handle identifies a scheduled call. It is only meaningful to the
// Scheduler that returned it.
type Handle any

// Scheduler runs fn once after d. fn may run on any goroutine, including
// the one calling Schedule. Cancel must tolerate handles whose call already
// ran.
type Scheduler interface {
	Schedule(fn func(), d time.Duration) (Handle, error)
	Cancel(h Handle)
}

// ClockScheduler schedules calls with a clockwork.Clock.
type ClockScheduler struct {
	clock clockwork.Clock
}

// NewClockScheduler returns a scheduler driven by clock. A nil clock uses
// the real clock.
func NewClockScheduler(clock clockwork.Clock) *ClockScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ClockScheduler{clock: clock}
}

// Schedule arms a clock timer. The call always runs on its own goroutine,
// including when a fake clock is advanced.
func (s *ClockScheduler) Schedule(fn func(), d time.Duration) (Handle, error) {
	return s.clock.AfterFunc(d, func() { go fn() }), nil
}

// Cancel stops the timer behind h.
func (s *ClockScheduler) Cancel(h Handle) {
	if t, ok := h.(clockwork.Timer); ok {
		t.Stop()
	}
}

// GocronScheduler schedules calls as gocron one-time jobs.
type GocronScheduler struct {
	scheduler gocron.Scheduler
	clock     clockwork.Clock
}

// NewGocronScheduler creates and starts a gocron scheduler. A nil clock
// uses the real clock.
func NewGocronScheduler(clock clockwork.Clock) (*GocronScheduler, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.Start()

	return &GocronScheduler{scheduler: s, clock: clock}, nil
}

// Schedule registers a one-time job starting d from now. A start time that
// has already passed by the time gocron sees it runs immediately.
func (s *GocronScheduler) Schedule(fn func(), d time.Duration) (Handle, error) {
	at := s.clock.Now().Add(d)

	start := gocron.OneTimeJobStartImmediately()
	if at.After(s.clock.Now()) {
		start = gocron.OneTimeJobStartDateTime(at)
	}

	job, err := s.scheduler.NewJob(gocron.OneTimeJob(start), gocron.NewTask(fn))
	if errors.Is(err, gocron.ErrOneTimeJobStartDateTimePast) {
		job, err = s.scheduler.NewJob(gocron.OneTimeJob(gocron.OneTimeJobStartImmediately()), gocron.NewTask(fn))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchedule, err)
	}
	return job.ID(), nil
}

// Cancel removes the job behind h. Jobs that already ran are gone and
// are ignored.
func (s *GocronScheduler) Cancel(h Handle) {
	if id, ok := h.(uuid.UUID); ok {
		_ = s.scheduler.RemoveJob(id)
	}
}

// Close shuts the scheduler down. Pending jobs never run.
func (s *GocronScheduler) Close() error {
	return s.scheduler.Shutdown()
}
