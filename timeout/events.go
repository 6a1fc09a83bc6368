package timeout

import "github.com/tailored-agentic-units/statekit/observability"

// Events emitted by Timer.
const (
	EventArm   observability.EventType = "timeout.arm"
	EventFire  observability.EventType = "timeout.fire"
	EventClear observability.EventType = "timeout.clear"
	EventError observability.EventType = "timeout.error"
)
