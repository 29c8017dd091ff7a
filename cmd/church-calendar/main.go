package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/username/church-calendar/internal/calendar"
	"github.com/username/church-calendar/internal/config"
	"github.com/username/church-calendar/internal/daemon"
	"github.com/username/church-calendar/internal/export"
	"github.com/username/church-calendar/internal/server"
	"github.com/username/church-calendar/pkg/dateutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	logger     *zap.Logger
	out        io.Writer = os.Stdout
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "church-calendar",
		Short: "Church calendar with Hebrew date annotations",
		Long:  "Month calendar of church events merged with Hebrew dates, holidays and their biblical references",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load config to get log file path
			cfg, err := config.Load(configPath)
			if err == nil && cfg.Log.File != "" {
				logger, err = initFileLogger(cfg.Log.File, cfg.Log.Level)
				if err != nil {
					initLogger("info") // Fallback to console
				}
			} else if err == nil {
				initLogger(cfg.Log.Level)
			} else {
				initLogger("info") // Default console logger
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: ./config.yaml if present)")

	rootCmd.AddCommand(monthCmd())
	rootCmd.AddCommand(upcomingCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return initializeApp(cfg)
}

// openMonth builds an engine showing monthStr (YYYY-MM, empty for the current month)
// and waits up to wait for the holiday enrichment
func openMonth(a *app, monthStr string, wait time.Duration) (*calendar.Engine, error) {
	engine := a.newEngine()

	if monthStr != "" {
		month, err := dateutil.ParseMonth(monthStr, a.loc)
		if err != nil {
			engine.Close()
			return nil, err
		}
		engine.GoTo(month)
	}

	if wait > 0 {
		done := make(chan struct{})
		go func() {
			engine.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(wait):
			logger.Warn("Hebrew holiday enrichment still pending, showing baseline",
				zap.Duration("wait", wait))
		}
	}
	return engine, nil
}

func monthCmd() *cobra.Command {
	var monthStr string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "month",
		Short: "Print the merged month: events, Hebrew dates and holidays",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			engine, err := openMonth(a, monthStr, wait)
			if err != nil {
				return err
			}
			defer engine.Close()

			printMonth(engine.View())
			return nil
		},
	}

	cmd.Flags().StringVar(&monthStr, "month", "", "Month to show (YYYY-MM, default: current)")
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "How long to wait for holiday enrichment (0: baseline only)")
	return cmd
}

func upcomingCmd() *cobra.Command {
	var fromStr string
	var days int

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List upcoming church events",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			engine := a.newEngine()
			defer engine.Close()

			from := dateutil.Today(a.loc)
			if fromStr != "" {
				from, err = dateutil.ParseDate(fromStr, a.loc)
				if err != nil {
					return err
				}
			}
			if days <= 0 {
				days = a.cfg.Calendar.UpcomingDays
			}

			events := engine.Upcoming(from, days)
			printf("📅 Upcoming events %s .. %s\n",
				from.Format("2006-01-02"),
				dateutil.AddDays(from, days).Format("2006-01-02"))
			if len(events) == 0 {
				printLine("   (none)")
				return nil
			}
			for _, ev := range events {
				printEvent(ev, true)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromStr, "from", "", "First day (YYYY-MM-DD, default: today)")
	cmd.Flags().IntVar(&days, "days", 0, "Window length in days (default: calendar.upcoming_days)")
	return cmd
}

func exportCmd() *cobra.Command {
	var monthStr string
	var outPath string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the merged month as iCalendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			engine, err := openMonth(a, monthStr, wait)
			if err != nil {
				return err
			}
			defer engine.Close()

			w := out
			if outPath != "" {
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return fmt.Errorf("failed to create output path: %w", err)
				}
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			v := engine.View()
			if err := export.WriteMonth(w, v, time.Now()); err != nil {
				return err
			}
			logger.Info("Month exported",
				zap.String("month", v.Month.Format("2006-01")),
				zap.String("out", outPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&monthStr, "month", "", "Month to export (YYYY-MM, default: current)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().DurationVar(&wait, "wait", 10*time.Second, "How long to wait for holiday enrichment")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar API and refresh sessions on schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			hub := server.NewHub(logger)
			go hub.Run(ctx)

			registry := server.NewRegistry(a.newEngine, hub, logger)
			defer registry.Close()

			srv := &http.Server{
				Addr:              a.cfg.Server.Listen,
				Handler:           server.NewRouter(registry, hub, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			d := daemon.NewDaemon(registry, a.cfg.Server.RefreshCron, a.cfg.Server.GetSessionIdle(), a.loc, logger)
			return runServer(ctx, srv, d)
		},
	}
}

// service is the scheduled part of serve; it runs until ctx is done or Stop is called
type service interface {
	Run(ctx context.Context) error
	Stop()
}

// runServer serves HTTP alongside svc. A listener failure stops svc and is returned.
func runServer(ctx context.Context, srv *http.Server, svc service) error {
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			listenErr <- err
			svc.Stop()
		}
	}()

	runErr := svc.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}

	select {
	case err := <-listenErr:
		return fmt.Errorf("http server failed: %w", err)
	default:
	}
	return runErr
}

func printf(format string, a ...interface{}) {
	fmt.Fprintf(out, format, a...)
}

func printLine(a ...interface{}) {
	fmt.Fprintln(out, a...)
}

func printMonth(v calendar.View) {
	printf("\n📅 %s (%s)\n", v.Title, v.Timezone)
	printLine("═══════════════════════════════════════════════════════")

	for _, day := range v.Days {
		if !day.InMonth {
			continue
		}

		marker := "  "
		switch {
		case day.Today:
			marker = "▶ "
		case day.Selected:
			marker = "* "
		}

		hebrewDate := ""
		if day.Annotation != nil {
			hebrewDate = day.Annotation.HebrewDate
		}
		printf("%s%s  %-22s", marker, day.Date.Format("Mon 02"), hebrewDate)
		if day.Annotation != nil && day.Annotation.IsHoliday {
			printf(" ✡ %s", day.Annotation.HolidayName)
		}
		printLine()

		if day.Annotation != nil && day.Annotation.BiblicalReference != "" {
			printf("              📖 %s: %s\n", day.Annotation.BiblicalReference, day.Annotation.Significance)
		}
		for _, ev := range day.Events {
			printEvent(ev, false)
		}
	}

	printLine("═══════════════════════════════════════════════════════")
	status := "baseline only"
	switch {
	case v.Status.Enriched:
		status = "holidays loaded"
	case v.Status.Pending:
		status = "holidays pending"
	case v.Status.LastError != "":
		status = "holidays unavailable: " + v.Status.LastError
	}
	printf("  Hebrew calendar: %s\n", status)
}

func printEvent(ev calendar.Event, withDate bool) {
	prefix := "              •"
	if withDate {
		prefix = "   • " + ev.Date.Format("Mon 2006-01-02")
	}

	parts := []string{ev.Title}
	if ev.Time != "" {
		parts = append(parts, ev.Time)
	}
	if ev.Location != "" {
		parts = append(parts, ev.Location)
	}
	line := fmt.Sprintf("%s %s [%s]", prefix, strings.Join(parts, " · "), ev.Type)
	if ev.Recurring {
		line += " ↻"
	}
	printLine(line)
}

func initLogger(level string) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err == nil {
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	}

	var err error
	logger, err = zapConfig.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

func initFileLogger(logFile string, level string) (*zap.Logger, error) {
	// Setup lumberjack for log rotation
	logWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,  // MB
		MaxBackups: 3,    // Keep max 3 old log files
		MaxAge:     28,   // days
		Compress:   true, // Compress old logs with gzip
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logWriter),
		zapLevel,
	)

	return zap.New(core), nil
}
