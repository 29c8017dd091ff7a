package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/username/church-calendar/internal/hebrew"
	"github.com/username/church-calendar/pkg/dateutil"
	"go.uber.org/zap"
)

// DefaultEnrichTimeout bounds a single enrichment pass
const DefaultEnrichTimeout = 10 * time.Second

// Enricher produces Hebrew annotations for a range of days in two passes:
// a baseline from the converter that never fails, then best-effort
// holiday detail from the observance source.
type Enricher struct {
	converter hebrew.Converter
	source    hebrew.Source
	timeout   time.Duration
	logger    *zap.Logger
}

// NewEnricher creates a new Enricher.
// A nil source means baseline-only annotations.
func NewEnricher(converter hebrew.Converter, source hebrew.Source, timeout time.Duration, logger *zap.Logger) *Enricher {
	if converter == nil {
		converter = hebrew.NewHDateConverter()
	}
	if source == nil {
		source = hebrew.Unavailable{}
	}
	if timeout <= 0 {
		timeout = DefaultEnrichTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Enricher{
		converter: converter,
		source:    source,
		timeout:   timeout,
		logger:    logger,
	}
}

// Baseline returns a non-holiday annotation for every day.
// A day whose conversion fails gets an empty Hebrew date.
func (en *Enricher) Baseline(days []time.Time) Annotations {
	out := make(Annotations, len(days))
	for _, day := range days {
		out[dateutil.DayKey(day)] = Annotation{
			Date:       day,
			HebrewDate: en.hebrewDate(day),
		}
	}
	return out
}

func (en *Enricher) hebrewDate(day time.Time) (s string) {
	defer func() {
		if r := recover(); r != nil {
			en.logger.Debug("Hebrew date conversion panicked",
				zap.String("date", dateutil.DayKey(day)),
				zap.Any("panic", r))
			s = ""
		}
	}()

	hd, err := en.converter.HebrewDate(day)
	if err != nil {
		en.logger.Debug("Hebrew date conversion failed",
			zap.String("date", dateutil.DayKey(day)),
			zap.Error(err))
		return ""
	}
	return hd
}

// Enrich merges holiday observances for the days into a copy of baseline.
// On any source failure the baseline is returned unchanged with the error.
func (en *Enricher) Enrich(ctx context.Context, days []time.Time, baseline Annotations) (Annotations, error) {
	if len(days) == 0 {
		return baseline, nil
	}

	runLogger := en.logger.With(zap.String("run_id", uuid.NewString()))
	start, end := days[0], days[len(days)-1]

	ctx, cancel := context.WithTimeout(ctx, en.timeout)
	defer cancel()

	runLogger.Debug("Hebrew holiday enrichment started",
		zap.String("start", dateutil.DayKey(start)),
		zap.String("end", dateutil.DayKey(end)))

	obs, err := en.observances(ctx, start, end)
	if err != nil {
		return baseline, err
	}

	merged := baseline.clone()
	applied := 0
	for _, o := range obs {
		key := dateutil.DayKey(o.Date)
		ann, ok := merged[key]
		if !ok {
			continue
		}
		merged[key] = mergeObservance(ann, o)
		applied++
	}

	runLogger.Debug("Hebrew holiday enrichment finished",
		zap.Int("observances", len(obs)),
		zap.Int("applied", applied))

	return merged, nil
}

func (en *Enricher) observances(ctx context.Context, start, end time.Time) (obs []hebrew.Observance, err error) {
	defer func() {
		if r := recover(); r != nil {
			obs = nil
			err = fmt.Errorf("observance source panicked: %v", r)
		}
	}()

	obs, err = en.source.Observances(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load observances: %w", err)
	}
	return obs, nil
}
