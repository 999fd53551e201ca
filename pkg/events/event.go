package events

import "time"

// Event codes published on the bus. Subjects are "events." + code.
const (
	TypeSessionStarted = "SESSION_STARTED"
	TypeSessionStopped = "SESSION_STOPPED"
	TypeContextChanged = "CONTEXT_CHANGED"
	TypeWeatherSample  = "WEATHER_SAMPLE"
)

// Event defines the contract for everything that travels on the event bus.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_STARTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic envelope used for lifecycle events and for
// anything decoded off the bus.
type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func NewBaseEvent(eventType string, data map[string]interface{}, at time.Time) BaseEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	return BaseEvent{Type: eventType, Data: data, OccurredAt: at}
}
