// Package export renders merged calendar months as iCalendar feeds.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/username/church-calendar/internal/calendar"
	"github.com/username/church-calendar/pkg/dateutil"
)

const (
	productID = "-//church-calendar//Month Export//EN"
	uidDomain = "church-calendar"
)

// MonthCalendar builds an iCalendar with one all-day VEVENT per church event
// and per Hebrew holiday of the displayed month. Padding days are skipped.
func MonthCalendar(v calendar.View, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Church Calendar " + v.Title)
	cal.SetXWRTimezone(v.Month.Location().String())

	for _, day := range v.Days {
		if !day.InMonth {
			continue
		}
		for _, ev := range day.Events {
			addChurchEvent(cal, day.Date, ev, stamp)
		}
		if day.Annotation != nil && day.Annotation.IsHoliday {
			addHoliday(cal, day.Date, *day.Annotation, stamp)
		}
	}
	return cal
}

// WriteMonth serializes the month of v to w
func WriteMonth(w io.Writer, v calendar.View, stamp time.Time) error {
	if _, err := io.WriteString(w, MonthCalendar(v, stamp).Serialize()); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}

func addChurchEvent(cal *ical.Calendar, date time.Time, ev calendar.Event, stamp time.Time) {
	vev := cal.AddEvent(ev.ID + "@" + uidDomain)
	vev.SetDtStampTime(stamp)
	vev.SetAllDayStartAt(date)
	vev.SetAllDayEndAt(dateutil.AddDays(date, 1))
	vev.SetSummary(ev.Title)
	if ev.Location != "" {
		vev.SetLocation(ev.Location)
	}
	if ev.Type != "" {
		vev.SetProperty(ical.ComponentPropertyCategories, string(ev.Type))
	}

	var desc []string
	if ev.Time != "" {
		desc = append(desc, "Time: "+ev.Time)
	}
	if ev.Department != "" {
		desc = append(desc, "Department: "+ev.Department)
	}
	if ev.Description != "" {
		desc = append(desc, ev.Description)
	}
	if ev.BiblicalSignificance != "" {
		desc = append(desc, ev.BiblicalSignificance)
	}
	if len(desc) > 0 {
		vev.SetDescription(strings.Join(desc, "\n"))
	}
}

func addHoliday(cal *ical.Calendar, date time.Time, ann calendar.Annotation, stamp time.Time) {
	vev := cal.AddEvent("hebrew-" + dateutil.DayKey(date) + "@" + uidDomain)
	vev.SetDtStampTime(stamp)
	vev.SetAllDayStartAt(date)
	vev.SetAllDayEndAt(dateutil.AddDays(date, 1))
	vev.SetSummary(ann.HolidayName)
	vev.SetProperty(ical.ComponentPropertyCategories, string(calendar.EventTypeHoliday))

	desc := []string{ann.HebrewDate}
	if ann.BiblicalReference != "" {
		desc = append(desc, ann.BiblicalReference)
	}
	if ann.Significance != "" {
		desc = append(desc, ann.Significance)
	}
	vev.SetDescription(strings.Join(desc, "\n"))
}
