// Package hebrew provides Hebrew-calendar date conversion and holiday
// observance sources used to annotate the church calendar.
package hebrew

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnavailable is returned by sources that cannot provide observances at all
var ErrUnavailable = errors.New("hebrew holiday source unavailable")

// Category is a set of observance category flags
type Category int

const (
	CategoryFestival Category = 1 << iota
	CategoryMajorFast
	CategoryMinorFast
	CategoryRoshChodesh
)

// MajorObservances are the categories that mark a day as a holiday
const MajorObservances = CategoryFestival | CategoryMajorFast | CategoryMinorFast | CategoryRoshChodesh

var categoryNames = []struct {
	flag Category
	name string
}{
	{CategoryFestival, "festival"},
	{CategoryMajorFast, "major_fast"},
	{CategoryMinorFast, "minor_fast"},
	{CategoryRoshChodesh, "rosh_chodesh"},
}

// Major reports whether any major-observance flag is set
func (c Category) Major() bool {
	return c&MajorObservances != 0
}

// Has reports whether all flags of o are set
func (c Category) Has(o Category) bool {
	return c&o == o
}

func (c Category) String() string {
	var names []string
	for _, cn := range categoryNames {
		if c&cn.flag != 0 {
			names = append(names, cn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseCategory parses a single category name (festival, major_fast, minor_fast, rosh_chodesh)
func ParseCategory(name string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for _, cn := range categoryNames {
		if cn.name == normalized {
			return cn.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown observance category: %q", name)
}

// Observance is a single holiday/observance record reported by a Source
type Observance struct {
	Date        time.Time // Gregorian day
	HebrewDate  string    // rendered Hebrew date, may be empty
	Description string    // human-readable title, e.g. "Yom Kippur"
	Categories  Category
}

// Source provides holiday observances for a closed date range.
// Sources are optional and fallible: callers must degrade when they fail.
type Source interface {
	Observances(ctx context.Context, start, end time.Time) ([]Observance, error)
}

// Converter renders a Gregorian date in the Hebrew calendar
type Converter interface {
	HebrewDate(date time.Time) (string, error)
}

// Unavailable is the baseline-only source: it never has observances
type Unavailable struct{}

// Observances always fails with ErrUnavailable
func (Unavailable) Observances(ctx context.Context, start, end time.Time) ([]Observance, error) {
	return nil, ErrUnavailable
}
