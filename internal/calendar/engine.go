package calendar

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/username/church-calendar/internal/hebrew"
	"github.com/username/church-calendar/pkg/dateutil"
	"go.uber.org/zap"
)

// DefaultUpcomingDays is the window used by UpcomingFromToday
const DefaultUpcomingDays = 30

// Options configures an Engine
type Options struct {
	Location     *time.Location
	WeekStart    time.Weekday
	Enricher     *Enricher
	Seed         []Event
	UpcomingDays int
	Now          func() time.Time
	Logger       *zap.Logger
}

// Commit describes an enrichment result installed for the displayed month
type Commit struct {
	Month    time.Time
	Epoch    uint64
	Enriched bool
}

// Status is a snapshot of the enrichment pipeline
type Status struct {
	Month     time.Time `json:"month"`
	Epoch     uint64    `json:"epoch"`
	Pending   bool      `json:"pending"`
	Enriched  bool      `json:"enriched"`
	LastError string    `json:"lastError,omitempty"`
}

// Engine merges the month grid, church events and Hebrew annotations of one
// calendar view. Navigation installs baseline annotations immediately and
// starts one enrichment run; a run only commits while its epoch is current.
type Engine struct {
	loc          *time.Location
	weekStart    time.Weekday
	enricher     *Enricher
	store        *Store
	upcomingDays int
	now          func() time.Time
	logger       *zap.Logger

	mu          sync.RWMutex
	month       time.Time
	days        []time.Time
	annotations Annotations
	selected    time.Time
	hasSelected bool
	epoch       uint64
	cancel      context.CancelFunc
	pending     bool
	enriched    bool
	lastErr     error
	listeners   []func(Commit)
	closed      bool

	wg sync.WaitGroup
}

// NewEngine creates an engine displaying the current month
func NewEngine(opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Enricher == nil {
		opts.Enricher = NewEnricher(nil, nil, 0, opts.Logger)
	}
	if opts.UpcomingDays <= 0 {
		opts.UpcomingDays = DefaultUpcomingDays
	}

	e := &Engine{
		loc:          opts.Location,
		weekStart:    opts.WeekStart,
		enricher:     opts.Enricher,
		store:        NewStore(opts.Seed, opts.Now),
		upcomingDays: opts.UpcomingDays,
		now:          opts.Now,
		logger:       opts.Logger,
	}

	today := e.today()
	e.load(func(time.Time) time.Time { return today })
	return e
}

func (e *Engine) today() time.Time {
	return dateutil.StartOfDay(e.now().In(e.loc))
}

// load displays the month chosen by target from the current month: the
// baseline is installed before it returns, enrichment continues in the background
func (e *Engine) load(target func(current time.Time) time.Time) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	month := dateutil.StartOfMonth(target(e.month))
	days := dateutil.MonthGrid(month, e.weekStart)
	baseline := e.enricher.Baseline(days)

	if e.cancel != nil {
		e.cancel()
	}
	e.epoch++
	epoch := e.epoch
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.month = month
	e.days = days
	e.annotations = baseline
	e.pending = true
	e.enriched = false
	e.lastErr = nil
	e.wg.Add(1)
	e.mu.Unlock()

	e.logger.Debug("Month displayed",
		zap.String("month", month.Format("2006-01")),
		zap.Uint64("epoch", epoch),
		zap.Int("days", len(days)))

	go e.enrich(ctx, epoch, month, days, baseline)
}

func (e *Engine) enrich(ctx context.Context, epoch uint64, month time.Time, days []time.Time, baseline Annotations) {
	defer e.wg.Done()

	annotations, err := e.enricher.Enrich(ctx, days, baseline)

	e.mu.Lock()
	if epoch != e.epoch {
		current := e.epoch
		e.mu.Unlock()
		e.logger.Debug("Discarding stale enrichment",
			zap.String("month", month.Format("2006-01")),
			zap.Uint64("epoch", epoch),
			zap.Uint64("current_epoch", current))
		return
	}

	e.pending = false
	if err != nil {
		e.lastErr = err
		e.mu.Unlock()
		if errors.Is(err, hebrew.ErrUnavailable) {
			e.logger.Debug("Hebrew holiday enrichment disabled, baseline only",
				zap.String("month", month.Format("2006-01")))
		} else {
			e.logger.Warn("Hebrew holiday enrichment unavailable, keeping baseline",
				zap.String("month", month.Format("2006-01")),
				zap.Error(err))
		}
		return
	}

	e.annotations = annotations
	e.enriched = true
	listeners := make([]func(Commit), len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	e.logger.Info("Hebrew annotations committed",
		zap.String("month", month.Format("2006-01")),
		zap.Uint64("epoch", epoch))

	commit := Commit{Month: month, Epoch: epoch, Enriched: true}
	for _, fn := range listeners {
		fn(commit)
	}
}

// OnCommit registers fn to be called after each enrichment commit.
// fn runs on the enrichment goroutine.
func (e *Engine) OnCommit(fn func(Commit)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Wait blocks until in-flight enrichment runs have finished
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close cancels the running enrichment and waits for it.
// Navigation after Close is a no-op.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

// Navigation

// NextMonth displays the following month
func (e *Engine) NextMonth() {
	e.load(func(current time.Time) time.Time { return current.AddDate(0, 1, 0) })
}

// PreviousMonth displays the preceding month
func (e *Engine) PreviousMonth() {
	e.load(func(current time.Time) time.Time { return current.AddDate(0, -1, 0) })
}

// GoToToday displays the current month and selects today
func (e *Engine) GoToToday() {
	today := e.today()
	e.Select(today)
	e.load(func(time.Time) time.Time { return today })
}

// GoTo displays the month containing date
func (e *Engine) GoTo(date time.Time) {
	date = date.In(e.loc)
	e.load(func(time.Time) time.Time { return date })
}

// Refresh recomputes annotations for the displayed month
func (e *Engine) Refresh() {
	e.load(func(current time.Time) time.Time { return current })
}

// Selection

// Select marks date as the selected day
func (e *Engine) Select(date time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = dateutil.StartOfDay(date)
	e.hasSelected = true
}

// ClearSelection removes the selected day
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = time.Time{}
	e.hasSelected = false
}

// Selected returns the selected day, if any
func (e *Engine) Selected() (time.Time, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selected, e.hasSelected
}

// Queries

// Month returns the first day of the displayed month
func (e *Engine) Month() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.month
}

// Days returns a copy of the displayed day grid
func (e *Engine) Days() []time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]time.Time, len(e.days))
	copy(out, e.days)
	return out
}

// Location returns the time zone the engine computes "today" in
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Status returns the state of the enrichment pipeline
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.statusLocked()
}

func (e *Engine) statusLocked() Status {
	st := Status{
		Month:    e.month,
		Epoch:    e.epoch,
		Pending:  e.pending,
		Enriched: e.enriched,
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	return st
}

// EventsForDate returns the events on the calendar day of date
func (e *Engine) EventsForDate(date time.Time) []Event {
	return e.store.EventsOn(date)
}

// AnnotationForDate returns the committed annotation of the day, if the day is displayed
func (e *Engine) AnnotationForDate(date time.Time) (Annotation, bool) {
	e.mu.RLock()
	annotations := e.annotations
	e.mu.RUnlock()
	return annotations.Get(date)
}

// HasContent reports whether the day has events or an annotation
func (e *Engine) HasContent(date time.Time) bool {
	if len(e.EventsForDate(date)) > 0 {
		return true
	}
	_, ok := e.AnnotationForDate(date)
	return ok
}

// IsSameMonth reports whether date lies in the displayed month
func (e *Engine) IsSameMonth(date time.Time) bool {
	return dateutil.IsSameMonth(date, e.Month())
}

// IsToday reports whether date is today in the engine's time zone
func (e *Engine) IsToday(date time.Time) bool {
	return dateutil.IsSameDay(date, e.today())
}

// IsSameDay reports whether a and b fall on the same calendar day
func (e *Engine) IsSameDay(a, b time.Time) bool {
	return IsSameDay(a, b)
}

// IsSameDay reports whether a and b fall on the same calendar day, ignoring time of day
func IsSameDay(a, b time.Time) bool {
	return dateutil.IsSameDay(a, b)
}

// Events

// AddEvent stores ev under a fresh ID and returns it
func (e *Engine) AddEvent(ev Event) Event {
	stored := e.store.Add(ev)
	e.logger.Debug("Event added",
		zap.String("id", stored.ID),
		zap.String("title", stored.Title),
		zap.String("date", dateutil.DayKey(stored.Date)))
	return stored
}

// RemoveEvent deletes the event with id; unknown ids are ignored
func (e *Engine) RemoveEvent(id string) bool {
	removed := e.store.Remove(id)
	if removed {
		e.logger.Debug("Event removed", zap.String("id", id))
	}
	return removed
}

// Event returns the event with id
func (e *Engine) Event(id string) (Event, bool) {
	return e.store.Get(id)
}

// Events returns every stored event in insertion order
func (e *Engine) Events() []Event {
	return e.store.All()
}

// Upcoming returns events within [from, from+days], ascending by date
func (e *Engine) Upcoming(from time.Time, days int) []Event {
	return e.store.Upcoming(from, days)
}

// UpcomingFromToday returns the events of the configured upcoming window starting today
func (e *Engine) UpcomingFromToday() []Event {
	return e.store.Upcoming(e.today(), e.upcomingDays)
}
