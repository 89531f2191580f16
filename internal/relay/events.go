package relay

import "time"

type EventStatus string

const (
	EventStarted   EventStatus = "started"
	EventCompleted EventStatus = "completed"
	EventFailed    EventStatus = "failed"
)

// Event describes progress of one request through the pipeline.
type Event struct {
	RequestID string      `json:"request_id"`
	Stage     Stage       `json:"stage"`
	Status    EventStatus `json:"status"`
	Detail    string      `json:"detail,omitempty"`
	Time      time.Time   `json:"time"`
}

// Notifier receives pipeline events. Publish must not block.
type Notifier interface {
	Publish(Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(Event) {}
