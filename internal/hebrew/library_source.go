package hebrew

import (
	"context"
	"fmt"
	"time"

	"github.com/hebcal/hdate"
	"github.com/hebcal/hebcal-go/event"
	"github.com/hebcal/hebcal-go/hebcal"
	"go.uber.org/zap"
)

const renderLocale = "en"

// LibrarySource implements Source in-process with hebcal-go
type LibrarySource struct {
	israel bool
	logger *zap.Logger
}

// NewLibrarySource creates a new LibrarySource.
// israel selects the Israeli holiday schedule (one-day festivals).
func NewLibrarySource(israel bool, logger *zap.Logger) *LibrarySource {
	return &LibrarySource{
		israel: israel,
		logger: logger,
	}
}

// Observances returns holidays, fasts and Rosh Chodesh between start and end inclusive
func (s *LibrarySource) Observances(ctx context.Context, start, end time.Time) (obs []Observance, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("invalid range: end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	defer func() {
		if r := recover(); r != nil {
			obs = nil
			err = fmt.Errorf("hebcal calendar failed: %v", r)
		}
	}()

	opts := hebcal.CalOptions{
		Start: hdate.FromGregorian(start.Year(), start.Month(), start.Day()),
		End:   hdate.FromGregorian(end.Year(), end.Month(), end.Day()),
		IL:    s.israel,
	}

	events, err := hebcal.HebrewCalendar(&opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build hebcal calendar: %w", err)
	}

	loc := start.Location()
	obs = make([]Observance, 0, len(events))
	for _, ev := range events {
		hd := ev.GetDate()
		greg := hd.Gregorian()

		obs = append(obs, Observance{
			Date:        time.Date(greg.Year(), greg.Month(), greg.Day(), 0, 0, 0, 0, loc),
			HebrewDate:  hd.String(),
			Description: ev.Render(renderLocale),
			Categories:  categoriesFromFlags(ev.GetFlags()),
		})
	}

	s.logger.Debug("Observances computed with hebcal",
		zap.String("start", start.Format("2006-01-02")),
		zap.String("end", end.Format("2006-01-02")),
		zap.Int("count", len(obs)))

	return obs, nil
}

func categoriesFromFlags(flags event.HolidayFlags) Category {
	var c Category
	if flags&event.CHAG != 0 {
		c |= CategoryFestival
	}
	if flags&event.MAJOR_FAST != 0 {
		c |= CategoryMajorFast
	}
	if flags&event.MINOR_FAST != 0 {
		c |= CategoryMinorFast
	}
	if flags&event.ROSH_CHODESH != 0 {
		c |= CategoryRoshChodesh
	}
	return c
}
