package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/username/church-calendar/internal/hebrew"
	"github.com/username/church-calendar/pkg/dateutil"
)

// fakeConverter renders "H <day key>" and fails or panics on chosen days
type fakeConverter struct {
	fail    map[string]bool
	panicOn map[string]bool
}

func (c fakeConverter) HebrewDate(date time.Time) (string, error) {
	key := dateutil.DayKey(date)
	if c.panicOn[key] {
		panic("conversion exploded")
	}
	if c.fail[key] {
		return "", errors.New("conversion failed")
	}
	return "H " + key, nil
}

type sourceFunc func(ctx context.Context, start, end time.Time) ([]hebrew.Observance, error)

func (f sourceFunc) Observances(ctx context.Context, start, end time.Time) ([]hebrew.Observance, error) {
	return f(ctx, start, end)
}

func staticSource(obs ...hebrew.Observance) hebrew.Source {
	return sourceFunc(func(ctx context.Context, start, end time.Time) ([]hebrew.Observance, error) {
		return obs, nil
	})
}

func failingSource(err error) hebrew.Source {
	return sourceFunc(func(ctx context.Context, start, end time.Time) ([]hebrew.Observance, error) {
		return nil, err
	})
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
