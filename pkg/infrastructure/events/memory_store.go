package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MemoryStore keeps a bounded run log of events per stream and in total.
// Subscribers are notified synchronously after the append.
type MemoryStore struct {
	streams     map[string][]Event
	versions    map[string]int
	subscribers map[string][]Subscriber
	mutex       sync.RWMutex
	allEvents   []Event
	capacity    int
	logger      logrus.FieldLogger
}

// NewMemoryStore creates a store retaining at most capacity events
// overall and per stream; zero keeps everything.
func NewMemoryStore(capacity int, logger logrus.FieldLogger) *MemoryStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MemoryStore{
		streams:     make(map[string][]Event),
		versions:    make(map[string]int),
		subscribers: make(map[string][]Subscriber),
		allEvents:   make([]Event, 0),
		capacity:    capacity,
		logger:      logger,
	}
}

var _ Store = (*MemoryStore)(nil)

// Append stamps the event with the stream and its next version, stores it and
// then notifies the subscribers of its type
func (s *MemoryStore) Append(stream string, event Event) error {
	s.mutex.Lock()
	s.versions[stream]++
	event.Stream = stream
	event.Version = s.versions[stream]
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	s.streams[stream] = append(s.streams[stream], event)
	s.allEvents = append(s.allEvents, event)
	if s.capacity > 0 {
		s.allEvents = trim(s.allEvents, s.capacity)
		s.streams[stream] = trim(s.streams[stream], s.capacity)
	}
	subscribers := append([]Subscriber(nil), s.subscribers[event.Type]...)
	s.mutex.Unlock()

	for _, sub := range subscribers {
		if err := sub.Handle(event); err != nil {
			s.logger.WithError(err).WithField("event", event.Type).Warn("event subscriber failed")
		}
	}
	return nil
}

func (s *MemoryStore) ReadStream(stream string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := []Event{}
	for _, e := range s.streams[stream] {
		if e.Version >= fromVersion {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) ReadAll(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}
	if fromPosition >= len(s.allEvents) {
		return []Event{}, nil
	}
	return append([]Event(nil), s.allEvents[fromPosition:]...), nil
}

func (s *MemoryStore) Subscribe(eventTypes []string, subscriber Subscriber) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], subscriber)
	}
	return nil
}

func trim(events []Event, capacity int) []Event {
	if len(events) <= capacity {
		return events
	}
	return append([]Event(nil), events[len(events)-capacity:]...)
}
