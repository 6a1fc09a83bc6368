package async

import "errors"

// ErrUnknown replaces a failure that carried no error value, such as a
// panic with a string payload. Its text is fixed.
var ErrUnknown = errors.New("Unknown error")

// ErrClosed is reported by runs started after the tracker was closed.
var ErrClosed = errors.New("tracker closed")

// Status is the lifecycle position of a tracked operation.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusFinished
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusFinished:
		return "finished"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// State is a snapshot of a Tracker. Value is set only when Finished and
// Err only when Errored; both are zero while Idle or Loading. RunID names
// the run that produced the snapshot.
type State[T any] struct {
	Status Status
	Value  T
	Err    error
	RunID  string
}

// Loading reports whether a run is in flight.
func (s State[T]) Loading() bool {
	return s.Status == StatusLoading
}

type actionKind int

const (
	actionStart actionKind = iota
	actionFinish
	actionFail
)

type action[T any] struct {
	kind  actionKind
	runID string
	value T
	err   error
}

// reduce is the tracker's transition function. Every transition replaces
// the whole state, so no field survives from the previous run.
func reduce[T any](s State[T], a action[T]) State[T] {
	switch a.kind {
	case actionStart:
		return State[T]{Status: StatusLoading, RunID: a.runID}
	case actionFinish:
		return State[T]{Status: StatusFinished, Value: a.value, RunID: a.runID}
	case actionFail:
		return State[T]{Status: StatusErrored, Err: a.err, RunID: a.runID}
	default:
		return s
	}
}
