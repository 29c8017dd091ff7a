package hebrew

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

const october2024 = `{
  "title": "Hebcal October 2024",
  "items": [
    {"title": "Rosh Hashana 5785", "date": "2024-10-03", "hdate": "1 Tishrei 5785", "category": "holiday", "subcat": "major", "yomtov": true},
    {"title": "Tzom Gedaliah", "date": "2024-10-06", "hdate": "3 Tishrei 5785", "category": "holiday", "subcat": "fast"},
    {"title": "Erev Yom Kippur", "date": "2024-10-11", "hdate": "9 Tishrei 5785", "category": "holiday", "subcat": "major"},
    {"title": "Yom Kippur", "date": "2024-10-12", "hdate": "10 Tishrei 5785", "category": "holiday", "subcat": "major", "yomtov": true},
    {"title": "Candle lighting", "date": "2024-10-16T18:01:00-04:00", "category": "candles"},
    {"title": "Rosh Chodesh Cheshvan", "date": "2024-11-02", "hdate": "30 Tishrei 5785", "category": "roshchodesh"},
    {"title": "Broken", "date": "not-a-date", "category": "holiday"}
  ]
}`

func newTestAPIServer(t *testing.T, body string, status int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/hebcal" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("cfg") != "json" || r.URL.Query().Get("start") == "" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestAPISource_Observances(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	srv, _ := newTestAPIServer(t, october2024, http.StatusOK)
	src := NewAPISource(srv.URL, false, time.Hour, logger)

	start := time.Date(2024, 9, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)

	obs, err := src.Observances(context.Background(), start, end)
	if err != nil {
		t.Fatalf("Observances() error = %v", err)
	}

	// "Broken" is skipped
	if len(obs) != 6 {
		t.Fatalf("len(obs) = %d, want 6", len(obs))
	}

	tests := []struct {
		index    int
		date     string
		hdate    string
		category Category
	}{
		{0, "2024-10-03", "1 Tishrei 5785", CategoryFestival},
		{1, "2024-10-06", "3 Tishrei 5785", CategoryMinorFast},
		{2, "2024-10-11", "9 Tishrei 5785", 0},
		{3, "2024-10-12", "10 Tishrei 5785", CategoryFestival | CategoryMajorFast},
		{4, "2024-10-16", "", 0},
		{5, "2024-11-02", "30 Tishrei 5785", CategoryRoshChodesh},
	}

	for _, tt := range tests {
		got := obs[tt.index]
		if got.Date.Format("2006-01-02") != tt.date {
			t.Errorf("obs[%d].Date = %s, want %s", tt.index, got.Date.Format("2006-01-02"), tt.date)
		}
		if got.HebrewDate != tt.hdate {
			t.Errorf("obs[%d].HebrewDate = %q, want %q", tt.index, got.HebrewDate, tt.hdate)
		}
		if got.Categories != tt.category {
			t.Errorf("obs[%d] %q Categories = %v, want %v", tt.index, got.Description, got.Categories, tt.category)
		}
	}
}

func TestAPISource_Cache(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	srv, calls := newTestAPIServer(t, october2024, http.StatusOK)
	src := NewAPISource(srv.URL, false, time.Hour, logger)

	start := time.Date(2024, 9, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if _, err := src.Observances(context.Background(), start, end); err != nil {
			t.Fatalf("Observances() error = %v", err)
		}
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("API calls = %d, want 1 (cached)", got)
	}

	src.ClearCache()

	if _, err := src.Observances(context.Background(), start, end); err != nil {
		t.Fatalf("Observances() error = %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Errorf("API calls after ClearCache = %d, want 2", got)
	}
}

func TestAPISource_Errors(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	start := time.Date(2024, 9, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"Server error", `{}`, http.StatusInternalServerError},
		{"Invalid JSON", `{"items": [`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestAPIServer(t, tt.body, tt.status)
			src := NewAPISource(srv.URL, false, time.Hour, logger)

			if _, err := src.Observances(context.Background(), start, end); err == nil {
				t.Error("Observances() expected error, got nil")
			}
		})
	}
}

func TestAPISource_CancelledContext(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	srv, _ := newTestAPIServer(t, october2024, http.StatusOK)
	src := NewAPISource(srv.URL, false, time.Hour, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Date(2024, 9, 29, 0, 0, 0, 0, time.UTC)
	if _, err := src.Observances(ctx, start, start.AddDate(0, 1, 0)); err == nil {
		t.Error("Observances() expected error for cancelled context")
	}
}
