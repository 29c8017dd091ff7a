package main

import (
	"fmt"
	"time"

	"github.com/username/church-calendar/internal/calendar"
	"github.com/username/church-calendar/internal/config"
	"github.com/username/church-calendar/internal/hebrew"
	"go.uber.org/zap"
)

// app holds what every command needs to build calendar engines
type app struct {
	cfg       *config.Config
	loc       *time.Location
	weekStart time.Weekday
	enricher  *calendar.Enricher
	seed      []calendar.Event // configured events; nil means sample events
	now       func() time.Time
}

func initializeApp(cfg *config.Config) (*app, error) {
	loc, err := cfg.Calendar.GetLocation()
	if err != nil {
		return nil, err
	}
	weekStart, err := cfg.Calendar.GetWeekStart()
	if err != nil {
		return nil, err
	}

	source, err := initializeSource(&cfg.Enrichment)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		loc:       loc,
		weekStart: weekStart,
		enricher:  calendar.NewEnricher(hebrew.NewHDateConverter(), source, cfg.Enrichment.GetTimeout(), logger),
		seed:      seedEvents(cfg.Events, loc),
		now:       time.Now,
	}, nil
}

// newEngine builds an independent engine; sessions never share one.
// Sample events are placed in the month the engine is opened in.
func (a *app) newEngine() *calendar.Engine {
	seed := a.seed
	if seed == nil {
		seed = calendar.DefaultSeedEvents(a.now().In(a.loc))
	}

	return calendar.NewEngine(calendar.Options{
		Location:     a.loc,
		WeekStart:    a.weekStart,
		Enricher:     a.enricher,
		Seed:         seed,
		UpcomingDays: a.cfg.Calendar.UpcomingDays,
		Now:          a.now,
		Logger:       logger,
	})
}

func initializeSource(cfg *config.EnrichmentConfig) (hebrew.Source, error) {
	enrType := cfg.Type
	if enrType == "" {
		enrType = config.EnrichmentLibrary // Default
	}

	var primary hebrew.Source

	switch enrType {
	case config.EnrichmentNone:
		logger.Info("Hebrew holiday enrichment disabled, baseline dates only")
		return hebrew.Unavailable{}, nil

	case config.EnrichmentFile:
		logger.Info("Using observance file", zap.String("file", cfg.FallbackFile))
		fs := hebrew.NewFileSource(cfg.FallbackFile, logger)
		if err := fs.Load(); err != nil {
			logger.Warn("Failed to load observance file, baseline dates only", zap.Error(err))
		}
		return fs, nil

	case config.EnrichmentLibrary:
		logger.Info("Using hebcal library for Hebrew holidays", zap.Bool("israel", cfg.Israel))
		primary = hebrew.NewLibrarySource(cfg.Israel, logger)

	case config.EnrichmentAPI:
		logger.Info("Using hebcal.com API for Hebrew holidays",
			zap.String("url", cfg.APIURL),
			zap.Bool("israel", cfg.Israel))
		primary = hebrew.NewAPISource(cfg.APIURL, cfg.Israel, cfg.GetCacheTTL(), logger)

	default:
		return nil, fmt.Errorf("unknown enrichment type: %s", enrType)
	}

	if cfg.FallbackFile == "" {
		return primary, nil
	}

	composite := hebrew.NewCompositeSource(primary, hebrew.NewFileSource(cfg.FallbackFile, logger), logger)
	if err := composite.LoadFallback(); err != nil {
		logger.Warn("Failed to load fallback observances, continuing with primary only",
			zap.Error(err))
	}
	return composite, nil
}

// seedEvents converts configured events; nil when none are configured
func seedEvents(events []config.EventConfig, loc *time.Location) []calendar.Event {
	if len(events) == 0 {
		return nil
	}

	out := make([]calendar.Event, 0, len(events))
	for _, ev := range events {
		date, err := time.ParseInLocation("2006-01-02", ev.Date, loc)
		if err != nil {
			logger.Warn("Skipping event with invalid date",
				zap.String("title", ev.Title),
				zap.String("date", ev.Date))
			continue
		}

		evType := calendar.EventTypeSpecial
		if ev.Type != "" {
			if t, err := calendar.ParseEventType(ev.Type); err == nil {
				evType = t
			} else {
				logger.Warn("Unknown event type, using Special",
					zap.String("title", ev.Title),
					zap.String("type", ev.Type))
			}
		}

		out = append(out, calendar.Event{
			Title:                ev.Title,
			Date:                 date,
			Time:                 ev.Time,
			Location:             ev.Location,
			Department:           ev.Department,
			Description:          ev.Description,
			Type:                 evType,
			Recurring:            ev.Recurring,
			BiblicalSignificance: ev.BiblicalSignificance,
		})
	}
	return out
}
