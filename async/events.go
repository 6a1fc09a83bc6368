package async

import "github.com/tailored-agentic-units/statekit/observability"

// Events emitted by Tracker.
const (
	EventRunStart  observability.EventType = "async.run.start"
	EventRunFinish observability.EventType = "async.run.finish"
	EventRunError  observability.EventType = "async.run.error"
	EventRunStale  observability.EventType = "async.run.stale"
)
