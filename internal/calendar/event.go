package calendar

import (
	"fmt"
	"strings"
	"time"
)

// EventType is the kind of church event
type EventType string

const (
	EventTypeService    EventType = "Service"
	EventTypeBibleStudy EventType = "Bible Study"
	EventTypeFellowship EventType = "Fellowship"
	EventTypeMinistry   EventType = "Ministry"
	EventTypeYouth      EventType = "Youth"
	EventTypeChildren   EventType = "Children"
	EventTypeSpecial    EventType = "Special"
	EventTypeHoliday    EventType = "Holiday"
)

var eventTypes = []EventType{
	EventTypeService,
	EventTypeBibleStudy,
	EventTypeFellowship,
	EventTypeMinistry,
	EventTypeYouth,
	EventTypeChildren,
	EventTypeSpecial,
	EventTypeHoliday,
}

// ParseEventType accepts "Bible Study", "bible_study", "biblestudy" and similar spellings
func ParseEventType(s string) (EventType, error) {
	want := normalizeType(s)
	for _, t := range eventTypes {
		if normalizeType(string(t)) == want {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type: %q", s)
}

func normalizeType(s string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

// Event is a single church calendar event.
// Only the calendar day of Date matters; Time is a display string.
type Event struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Date                 time.Time `json:"date"`
	Time                 string    `json:"time"`
	Location             string    `json:"location"`
	Department           string    `json:"department"`
	Description          string    `json:"description"`
	Type                 EventType `json:"type"`
	Recurring            bool      `json:"isRecurring,omitempty"` // display-only, never expanded
	BiblicalSignificance string    `json:"biblicalSignificance,omitempty"`
}
