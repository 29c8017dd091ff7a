package calendar

import (
	"time"

	"github.com/username/church-calendar/internal/hebrew"
	"github.com/username/church-calendar/pkg/dateutil"
)

const holidayNameSeparator = "; "

// Annotation is the Hebrew-calendar detail attached to one Gregorian day.
// HolidayName, BiblicalReference and Significance are only set on holidays.
type Annotation struct {
	Date              time.Time `json:"date"`
	HebrewDate        string    `json:"hebrewDate"`
	IsHoliday         bool      `json:"isHoliday"`
	HolidayName       string    `json:"holidayName,omitempty"`
	BiblicalReference string    `json:"biblicalReference,omitempty"`
	Significance      string    `json:"significance,omitempty"`
}

// Annotations maps day keys (YYYY-MM-DD) to the single annotation of that day.
// A committed map is never modified; every recompute builds a new one.
type Annotations map[string]Annotation

// Get looks up the annotation for the calendar day of date
func (a Annotations) Get(date time.Time) (Annotation, bool) {
	ann, ok := a[dateutil.DayKey(date)]
	return ann, ok
}

func (a Annotations) clone() Annotations {
	out := make(Annotations, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// mergeObservance folds one observance into the annotation of its day.
// Existing data is only ever extended: names are appended and the scripture
// reference of the first matching holiday is kept.
func mergeObservance(ann Annotation, obs hebrew.Observance) Annotation {
	if obs.HebrewDate != "" {
		ann.HebrewDate = obs.HebrewDate
	}
	if !obs.Categories.Major() {
		return ann
	}

	ann.IsHoliday = true
	if obs.Description != "" {
		if ann.HolidayName == "" {
			ann.HolidayName = obs.Description
		} else {
			ann.HolidayName += holidayNameSeparator + obs.Description
		}
	}

	if sig, ok := hebrew.LookupSignificance(obs.Description); ok {
		if ann.BiblicalReference == "" {
			ann.BiblicalReference = sig.Reference
		}
		if ann.Significance == "" {
			ann.Significance = sig.Text
		}
	}
	return ann
}
