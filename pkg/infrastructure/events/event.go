package events

import (
	"time"
)

// Event is one entry in the planning run log. Stream is the strategy the run
// used and Version counts events within that stream, starting at 1.
type Event struct {
	Type    string    `json:"type"`
	Stream  string    `json:"stream"`
	Data    any       `json:"data"`
	Time    time.Time `json:"time"`
	Version int       `json:"version"`
}

// Subscriber reacts to appended events of the types it subscribed to
type Subscriber interface {
	Handle(event Event) error
}

// Store is an append-only run log split into streams
type Store interface {
	Append(stream string, event Event) error
	ReadStream(stream string, fromVersion int) ([]Event, error)
	ReadAll(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, subscriber Subscriber) error
}

func newEvent(eventType, stream string, data any) Event {
	return Event{Type: eventType, Stream: stream, Data: data, Time: time.Now()}
}
