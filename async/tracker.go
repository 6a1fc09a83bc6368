// Package async tracks the lifecycle of an asynchronous operation.
//
// A Tracker wraps a function and moves through idle, loading, and then
// finished or errored as runs start and settle. The loading transition is
// applied before the function is invoked, so it is visible to readers even
// when the function returns immediately.
//
//	t := async.New(func(ctx context.Context, id string) (User, error) {
//		return client.FetchUser(ctx, id)
//	})
//	st := t.Run(ctx, "42")
//	if st.Status == async.StatusErrored { ... }
//
// Overlapping runs are not ordered by default: whichever settles last
// determines the state. WithLatestOnly restricts settling to the most
// recently started run.
package async

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/statekit/cell"
	"github.com/tailored-agentic-units/statekit/observability"
)

// Func is the tracked operation.
type Func[A, T any] func(ctx context.Context, args A) (T, error)

type options struct {
	observer   observability.Observer
	name       string
	latestOnly bool
}

// Option configures a Tracker.
type Option func(*options)

// WithObserver reports run lifecycle events to obs.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithName sets the source name used on events.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLatestOnly drops completions from runs that were superseded by a
// later Run or Start.
func WithLatestOnly() Option {
	return func(o *options) { o.latestOnly = true }
}

// Tracker runs fn and exposes the outcome as an observable State.
type Tracker[A, T any] struct {
	fn         Func[A, T]
	cell       *cell.Cell[State[T]]
	emit       observability.Emitter
	latestOnly bool
}

// New returns an idle Tracker for fn.
func New[A, T any](fn Func[A, T], opts ...Option) *Tracker[A, T] {
	o := options{name: "async"}
	for _, opt := range opts {
		opt(&o)
	}

	return &Tracker[A, T]{
		fn:         fn,
		cell:       cell.New(State[T]{Status: StatusIdle}),
		emit:       observability.NewEmitter(o.observer, o.name),
		latestOnly: o.latestOnly,
	}
}

// State returns the current snapshot.
func (t *Tracker[A, T]) State() State[T] {
	return t.cell.Load()
}

// Run starts a run and blocks until fn returns. It returns the outcome of
// this run, which is also the tracker's state unless another run settled
// afterwards or this run was superseded under WithLatestOnly.
func (t *Tracker[A, T]) Run(ctx context.Context, args A) State[T] {
	id, ok := t.begin(ctx)
	if !ok {
		return State[T]{Status: StatusErrored, Err: ErrClosed}
	}
	return t.settle(ctx, id, args)
}

// Start applies the loading transition, then runs fn on a new goroutine.
// The channel delivers this run's outcome and is closed.
func (t *Tracker[A, T]) Start(ctx context.Context, args A) <-chan State[T] {
	out := make(chan State[T], 1)

	id, ok := t.begin(ctx)
	if !ok {
		out <- State[T]{Status: StatusErrored, Err: ErrClosed}
		close(out)
		return out
	}

	go func() {
		defer close(out)
		out <- t.settle(ctx, id, args)
	}()
	return out
}

func (t *Tracker[A, T]) begin(ctx context.Context) (string, bool) {
	id := uuid.Must(uuid.NewV7()).String()
	if _, ok := t.cell.Update(func(s State[T]) State[T] {
		return reduce(s, action[T]{kind: actionStart, runID: id})
	}); !ok {
		return "", false
	}

	t.emit.Emit(ctx, EventRunStart, observability.LevelDebug, map[string]any{"run_id": id})
	return id, true
}

func (t *Tracker[A, T]) settle(ctx context.Context, id string, args A) State[T] {
	start := time.Now()
	value, recovered, err := t.call(ctx, args)
	elapsed := time.Since(start)

	a := action[T]{kind: actionFinish, runID: id, value: value}
	if err != nil {
		a = action[T]{kind: actionFail, runID: id, err: err}
	}
	outcome := reduce(State[T]{}, a)

	_, landed := t.cell.Apply(func(s State[T]) (State[T], bool) {
		if t.latestOnly && s.RunID != id {
			return s, false
		}
		return reduce(s, a), true
	})

	data := map[string]any{"run_id": id, observability.DurationKey: elapsed}
	switch {
	case !landed:
		t.emit.Emit(ctx, EventRunStale, observability.LevelDebug, data)
	case err != nil:
		data["error"] = err.Error()
		if recovered != nil {
			data["panic"] = fmt.Sprint(recovered)
		}
		t.emit.Emit(ctx, EventRunError, observability.LevelWarning, data)
	default:
		t.emit.Emit(ctx, EventRunFinish, observability.LevelInfo, data)
	}

	return outcome
}

// call invokes fn and turns a panic into an error. A panic carrying an
// error keeps it; any other payload becomes ErrUnknown and is returned
// separately for diagnostics only.
func (t *Tracker[A, T]) call(ctx context.Context, args A) (value T, recovered any, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, recovered = zero, r
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = ErrUnknown
			}
		}
	}()

	value, err = t.fn(ctx, args)
	return value, nil, err
}

// Subscribe registers fn to receive every state transition.
func (t *Tracker[A, T]) Subscribe(fn func(State[T])) (cancel func()) {
	return t.cell.Subscribe(fn)
}

// Close drops subscribers. Runs still in flight complete but no longer
// change the state; new runs are refused with ErrClosed.
func (t *Tracker[A, T]) Close() {
	t.cell.Close()
}
