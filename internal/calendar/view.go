package calendar

import (
	"time"

	"github.com/username/church-calendar/pkg/dateutil"
)

// Day is one cell of the month grid
type Day struct {
	Date       time.Time   `json:"date"`
	Key        string      `json:"key"`
	InMonth    bool        `json:"isInDisplayedMonth"`
	Today      bool        `json:"isToday"`
	Selected   bool        `json:"isSelected"`
	HasContent bool        `json:"hasAnyContent"`
	Events     []Event     `json:"events"`
	Annotation *Annotation `json:"annotation,omitempty"`
}

// View is the derived month view; it is built on demand and never stored
type View struct {
	Month    time.Time  `json:"month"`
	Title    string     `json:"title"` // "January 2024"
	Timezone string     `json:"timezone"`
	Selected *time.Time `json:"selected,omitempty"`
	Status   Status     `json:"status"`
	Days     []Day      `json:"days"`
}

// View builds the merged month view
func (e *Engine) View() View {
	e.mu.RLock()
	month := e.month
	days := e.days
	annotations := e.annotations
	selected, hasSelected := e.selected, e.hasSelected
	status := e.statusLocked()
	e.mu.RUnlock()

	today := e.today()

	v := View{
		Month:    month,
		Title:    month.Format("January 2006"),
		Timezone: e.now().In(e.loc).Format("MST"),
		Status:   status,
		Days:     make([]Day, 0, len(days)),
	}
	if hasSelected {
		sel := selected
		v.Selected = &sel
	}

	for _, d := range days {
		day := Day{
			Date:     d,
			Key:      dateutil.DayKey(d),
			InMonth:  dateutil.IsSameMonth(d, month),
			Today:    dateutil.IsSameDay(d, today),
			Selected: hasSelected && dateutil.IsSameDay(d, selected),
			Events:   e.store.EventsOn(d),
		}
		if ann, ok := annotations.Get(d); ok {
			day.Annotation = &ann
		}
		day.HasContent = len(day.Events) > 0 || day.Annotation != nil
		v.Days = append(v.Days, day)
	}
	return v
}
