package persist

import "github.com/tailored-agentic-units/statekit/observability"

// Events emitted by Value.
const (
	EventHydrate observability.EventType = "persist.hydrate"
	EventWrite   observability.EventType = "persist.write"
	EventRemove  observability.EventType = "persist.remove"
	EventRefresh observability.EventType = "persist.refresh"
	EventError   observability.EventType = "persist.error"
)
