package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const evictSpec = "@every 5m"

// Target is the set of open calendar sessions kept fresh by the daemon
type Target interface {
	// RefreshAll re-runs Hebrew enrichment for every session and returns how many were refreshed
	RefreshAll() int
	// EvictIdle drops sessions unused for longer than maxIdle and returns how many were dropped
	EvictIdle(maxIdle time.Duration) int
}

// Daemon runs the scheduled refresh and eviction jobs until stopped
type Daemon struct {
	target      Target
	refreshSpec string
	sessionIdle time.Duration
	cron        *cron.Cron
	logger      *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc

	mu             sync.Mutex // Protect against concurrent refreshes
	refreshRunning bool
	lastRunTime    time.Time
	refreshEntry   cron.EntryID
}

// NewDaemon creates a new daemon; jobs run in loc
func NewDaemon(target Target, refreshSpec string, sessionIdle time.Duration, loc *time.Location, logger *zap.Logger) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	if loc == nil {
		loc = time.Local
	}

	return &Daemon{
		target:      target,
		refreshSpec: refreshSpec,
		sessionIdle: sessionIdle,
		cron:        cron.New(cron.WithLocation(loc)),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run schedules the jobs and blocks until ctx is done, Stop is called or
// SIGINT/SIGTERM arrives
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.schedule(); err != nil {
		return err
	}

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	d.cron.Start()
	d.logger.Info("Daemon started",
		zap.String("refresh_cron", d.refreshSpec),
		zap.Duration("session_idle", d.sessionIdle),
		zap.Time("next_refresh", d.nextRefresh()))

	defer func() {
		stopCtx := d.cron.Stop()
		<-stopCtx.Done()
		d.logger.Info("Daemon stopped")
	}()

	select {
	case <-ctx.Done():
		return nil
	case <-d.ctx.Done():
		return nil
	case sig := <-sigChan:
		d.logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		d.Stop()
		return nil
	}
}

func (d *Daemon) schedule() error {
	if d.refreshSpec != "" {
		id, err := d.cron.AddFunc(d.refreshSpec, d.RefreshNow)
		if err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", d.refreshSpec, err)
		}
		d.mu.Lock()
		d.refreshEntry = id
		d.mu.Unlock()
	}

	if d.sessionIdle > 0 {
		if _, err := d.cron.AddFunc(evictSpec, d.evictIdle); err != nil {
			return fmt.Errorf("failed to schedule session eviction: %w", err)
		}
	}
	return nil
}

// Stop stops the daemon
func (d *Daemon) Stop() {
	d.cancel()
}

// RefreshNow refreshes every session; a refresh already in progress is not repeated
func (d *Daemon) RefreshNow() {
	d.mu.Lock()
	if d.refreshRunning {
		d.mu.Unlock()
		d.logger.Warn("Refresh already running, skipping concurrent execution")
		return
	}
	d.refreshRunning = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.refreshRunning = false
		d.lastRunTime = time.Now()
		d.mu.Unlock()
	}()

	count := d.target.RefreshAll()
	d.logger.Info("Sessions refreshed", zap.Int("sessions", count))
}

func (d *Daemon) evictIdle() {
	if n := d.target.EvictIdle(d.sessionIdle); n > 0 {
		d.logger.Info("Idle sessions evicted",
			zap.Int("sessions", n),
			zap.Duration("max_idle", d.sessionIdle))
	}
}

func (d *Daemon) nextRefresh() time.Time {
	d.mu.Lock()
	id := d.refreshEntry
	d.mu.Unlock()
	if id == 0 {
		return time.Time{}
	}
	return d.cron.Entry(id).Next
}

// GetStatus returns daemon status
func (d *Daemon) GetStatus() map[string]interface{} {
	d.mu.Lock()
	lastRun := d.lastRunTime
	running := d.refreshRunning
	d.mu.Unlock()

	status := map[string]interface{}{
		"refresh_cron":    d.refreshSpec,
		"refresh_running": running,
		"session_idle":    d.sessionIdle.String(),
	}
	if !lastRun.IsZero() {
		status["last_refresh"] = lastRun.Format(time.RFC3339)
	}
	if next := d.nextRefresh(); !next.IsZero() {
		status["next_refresh"] = next.Format(time.RFC3339)
	}
	return status
}
