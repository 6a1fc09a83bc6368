// Package observability carries lifecycle events out of statekit components.
// Every component takes an Observer and reports its transitions (runs
// settling, records written, timers firing) as Events. Severity values follow
// the OpenTelemetry SeverityNumber ranges so events can be forwarded to an
// OTel pipeline without translation.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level is an event severity in OTel SeverityNumber units.
type Level int

const (
	LevelDebug   Level = 5  // OTel DEBUG range 5-8
	LevelInfo    Level = 9  // OTel INFO range 9-12
	LevelWarning Level = 13 // OTel WARN range 13-16
	LevelError   Level = 17 // OTel ERROR range 17-20
)

var levelNames = []struct {
	max  Level
	name string
	slog slog.Level
}{
	{4, "TRACE", slog.LevelDebug},
	{8, "DEBUG", slog.LevelDebug},
	{12, "INFO", slog.LevelInfo},
	{16, "WARN", slog.LevelWarn},
	{20, "ERROR", slog.LevelError},
}

// String returns the OTel severity text.
func (l Level) String() string {
	for _, n := range levelNames {
		if l <= n.max {
			return n.name
		}
	}
	return "FATAL"
}

// SlogLevel maps l onto the nearest slog level.
func (l Level) SlogLevel() slog.Level {
	for _, n := range levelNames {
		if l <= n.max {
			return n.slog
		}
	}
	return slog.LevelError
}

// EventType names an event. Component packages declare their own constants,
// e.g. "async.run.finish" or "timeout.fire".
type EventType string

// Event is one transition reported by a component. Source identifies the
// component instance (a storage key, a tracker name) and Data holds
// event-specific attributes.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Observer receives component events.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// Emitter binds an Observer to a source name so components can report
// events without repeating boilerplate.
type Emitter struct {
	observer Observer
	source   string
}

// NewEmitter returns an Emitter for source. A nil observer is replaced by
// NoOpObserver.
func NewEmitter(observer Observer, source string) Emitter {
	if observer == nil {
		observer = NoOpObserver{}
	}
	return Emitter{observer: observer, source: source}
}

// Emit stamps and delivers an event.
func (e Emitter) Emit(ctx context.Context, typ EventType, level Level, data map[string]any) {
	if e.observer == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	e.observer.OnEvent(ctx, Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    e.source,
		Data:      data,
	})
}

// Source returns the bound source name.
func (e Emitter) Source() string {
	return e.source
}
