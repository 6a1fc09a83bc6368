// Package timeout arms a callback to run once after a delay.
//
// A Timer arms itself on construction and can be cleared, re-armed, or
// given a new callback or delay at any time. Firing always invokes the
// callback registered at fire time, and a cleared or superseded arming
// never fires.
//
//	t, err := timeout.New(func() { banner.Hide() }, 5*time.Second)
//	...
//	t.Reset() // user activity, start the delay over
//	defer t.Close()
package timeout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tailored-agentic-units/statekit/observability"
)

// ErrClosed is returned when arming a closed Timer.
var ErrClosed = errors.New("timer closed")

type options struct {
	scheduler Scheduler
	observer  observability.Observer
	name      string
}

// Option configures a Timer.
type Option func(*options)

// WithScheduler sets the scheduler that runs deferred calls. The default
// is a ClockScheduler on the real clock.
func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithObserver reports timer events to obs.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithName sets the source name used on events.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Timer holds at most one pending deferred call.
type Timer struct {
	scheduler Scheduler
	emit      observability.Emitter

	mu       sync.Mutex
	callback func()
	delay    time.Duration
	handle   Handle
	armed    bool
	gen      uint64
	closed   bool
}

// New creates a Timer and arms it with delay.
func New(callback func(), delay time.Duration, opts ...Option) (*Timer, error) {
	o := options{name: "timeout"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scheduler == nil {
		o.scheduler = NewClockScheduler(nil)
	}

	t := &Timer{
		scheduler: o.scheduler,
		emit:      observability.NewEmitter(o.observer, o.name),
		callback:  callback,
		delay:     delay,
	}

	t.mu.Lock()
	gen, d := t.prepare()
	t.mu.Unlock()

	if err := t.schedule(gen, d); err != nil {
		return nil, err
	}
	return t, nil
}

// Reset clears any pending call and arms a new one with the current delay.
func (t *Timer) Reset() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	h, had := t.disarm()
	gen, d := t.prepare()
	t.mu.Unlock()

	t.cancel(h, had)
	return t.schedule(gen, d)
}

// Clear cancels the pending call, if any. Clearing an idle timer does
// nothing.
func (t *Timer) Clear() {
	t.mu.Lock()
	h, had := t.disarm()
	t.mu.Unlock()

	t.cancel(h, had)
}

// SetCallback replaces the callback. A pending call will invoke fn
// without being re-armed.
func (t *Timer) SetCallback(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callback = fn
}

// SetDelay changes the delay. When d differs from the current delay the
// pending call is cleared and a new one armed with d.
func (t *Timer) SetDelay(d time.Duration) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if d == t.delay {
		t.mu.Unlock()
		return nil
	}
	t.delay = d
	h, had := t.disarm()
	gen, _ := t.prepare()
	t.mu.Unlock()

	t.cancel(h, had)
	return t.schedule(gen, d)
}

// Pending reports whether a call is armed and has not fired.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// Delay returns the current delay.
func (t *Timer) Delay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay
}

// Close clears the pending call and refuses further arming.
func (t *Timer) Close() {
	t.mu.Lock()
	t.closed = true
	h, had := t.disarm()
	t.mu.Unlock()

	t.cancel(h, had)
}

// prepare starts a new arming generation. It must be called with mu held;
// the call itself is scheduled by schedule after mu is released.
func (t *Timer) prepare() (uint64, time.Duration) {
	t.gen++
	t.armed = true
	return t.gen, t.delay
}

func (t *Timer) schedule(gen uint64, d time.Duration) error {
	h, err := t.scheduler.Schedule(func() { t.fire(gen) }, d)

	t.mu.Lock()
	current := t.armed && gen == t.gen
	if current {
		if err != nil {
			t.armed = false
		} else {
			t.handle = h
		}
	}
	t.mu.Unlock()

	if err != nil {
		t.emit.Emit(context.Background(), EventError, observability.LevelError, map[string]any{
			"error": err.Error(),
		})
		return err
	}
	t.emit.Emit(context.Background(), EventArm, observability.LevelDebug, map[string]any{
		"delay": d,
	})

	// Superseded while Schedule ran.
	if !current {
		t.scheduler.Cancel(h)
	}
	return nil
}

// disarm must be called with mu held. The returned handle is cancelled by
// the caller after releasing mu.
func (t *Timer) disarm() (Handle, bool) {
	if !t.armed {
		return nil, false
	}
	t.gen++
	t.armed = false
	h := t.handle
	t.handle = nil
	return h, true
}

func (t *Timer) cancel(h Handle, had bool) {
	if !had {
		return
	}
	t.scheduler.Cancel(h)
	t.emit.Emit(context.Background(), EventClear, observability.LevelDebug, nil)
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if t.closed || !t.armed || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.armed = false
	t.handle = nil
	cb := t.callback
	t.mu.Unlock()

	t.emit.Emit(context.Background(), EventFire, observability.LevelInfo, map[string]any{
		"delay": t.Delay(),
	})
	if cb != nil {
		cb()
	}
}
