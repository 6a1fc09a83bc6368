package observability

import "context"

// NoOpObserver ignores every event.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}
