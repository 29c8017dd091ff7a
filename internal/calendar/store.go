package calendar

import (
	"sort"
	"sync"
	"time"

	"github.com/username/church-calendar/pkg/dateutil"
	"github.com/username/church-calendar/pkg/random"
)

const idSuffixLength = 9

// Store holds church events in memory, in insertion order
type Store struct {
	mu     sync.RWMutex
	events []Event
	now    func() time.Time
}

// NewStore creates a store seeded with a copy of events.
// Seed events without an ID get one assigned.
func NewStore(seed []Event, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	s := &Store{
		events: make([]Event, 0, len(seed)),
		now:    now,
	}
	for _, e := range seed {
		if e.ID == "" {
			e.ID = s.newID()
		}
		s.events = append(s.events, e)
	}
	return s
}

func (s *Store) newID() string {
	return random.TimestampID("event", s.now(), idSuffixLength)
}

// Add assigns a fresh ID to e, stores it and returns the stored event
func (s *Store) Add(e Event) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.newID()
	s.events = append(s.events, e)
	return e
}

// Remove deletes the event with the given id and reports whether it existed
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.events {
		if e.ID == id {
			s.events = append(s.events[:i:i], s.events[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the event with the given id
func (s *Store) Get(id string) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.events {
		if e.ID == id {
			return e, true
		}
	}
	return Event{}, false
}

// EventsOn returns the events stored on the calendar day of date
func (s *Store) EventsOn(date time.Time) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if dateutil.IsSameDay(e.Date, date) {
			out = append(out, e)
		}
	}
	return out
}

// Upcoming returns events dated within [from, from+windowDays] by calendar day,
// sorted ascending by date; same-day events keep insertion order
func (s *Store) Upcoming(from time.Time, windowDays int) []Event {
	s.mu.RLock()
	var out []Event
	for _, e := range s.events {
		offset := dateutil.DaysBetween(from, e.Date)
		if offset >= 0 && offset <= windowDays {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return dateutil.DaysBetween(out[i].Date, out[j].Date) > 0
	})
	return out
}

// All returns a copy of every stored event in insertion order
func (s *Store) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of stored events
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
