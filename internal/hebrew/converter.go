package hebrew

import (
	"fmt"
	"time"

	"github.com/hebcal/hdate"
)

// HDateConverter converts Gregorian dates with the hdate arithmetic package.
// It is pure computation, so it is always available; a panic inside the
// conversion is reported as an error for that single date.
type HDateConverter struct{}

// NewHDateConverter creates a new HDateConverter
func NewHDateConverter() HDateConverter {
	return HDateConverter{}
}

// HebrewDate returns e.g. "4 Sh'vat 5784" for 2024-01-14
func (HDateConverter) HebrewDate(date time.Time) (s string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hebrew date conversion failed for %s: %v", date.Format("2006-01-02"), r)
		}
	}()

	if date.Year() < 1 {
		return "", fmt.Errorf("hebrew date conversion: year %d out of range", date.Year())
	}

	hd := hdate.FromGregorian(date.Year(), date.Month(), date.Day())
	return hd.String(), nil
}
