package testsupport

import (
	"context"
	"sync"

	"cbir/internal/notifications"
)

// RecordingSink captures every event it receives.
type RecordingSink struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

// NewRecordingSink returns an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Notify records event and returns the configured error, if any.
func (s *RecordingSink) Notify(_ context.Context, event notifications.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

// FailWith makes subsequent Notify calls return err after recording.
func (s *RecordingSink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Events returns a copy of the recorded events.
func (s *RecordingSink) Events() []notifications.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notifications.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Count returns how many events were recorded.
func (s *RecordingSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Last returns the most recent event and whether one exists.
func (s *RecordingSink) Last() (notifications.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return notifications.Event{}, false
	}
	return s.events[len(s.events)-1], true
}
