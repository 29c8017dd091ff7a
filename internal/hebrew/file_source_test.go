package hebrew

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

const observanceYAML = `observances:
  - date: 2024-10-12
    hebrew_date: 10 Tishrei 5785
    description: Yom Kippur
    categories: [festival, major_fast]
  - date: 2024-10-03
    hebrew_date: 1 Tishrei 5785
    description: Rosh Hashana 5785
    categories: [festival]
  - date: 2024-10-06
    description: Tzom Gedaliah
    categories: [minor_fast, unknown]
  - date: 2024-13-01
    description: Bad date
  - date: 2024-12-25
    description: Chanukah 1 Candle
`

func writeObservanceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "observances.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestFileSource_Observances(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	src := NewFileSource(writeObservanceFile(t, observanceYAML), logger)
	if err := src.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	start := time.Date(2024, 9, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)

	obs, err := src.Observances(context.Background(), start, end)
	if err != nil {
		t.Fatalf("Observances() error = %v", err)
	}

	if len(obs) != 3 {
		t.Fatalf("len(obs) = %d, want 3", len(obs))
	}

	// Sorted by date
	wantOrder := []string{"Rosh Hashana 5785", "Tzom Gedaliah", "Yom Kippur"}
	for i, want := range wantOrder {
		if obs[i].Description != want {
			t.Errorf("obs[%d] = %q, want %q", i, obs[i].Description, want)
		}
	}

	if obs[1].Categories != CategoryMinorFast {
		t.Errorf("Tzom Gedaliah categories = %v, want minor_fast only", obs[1].Categories)
	}
	if !obs[2].Categories.Has(CategoryFestival | CategoryMajorFast) {
		t.Errorf("Yom Kippur categories = %v", obs[2].Categories)
	}
	if obs[2].HebrewDate != "10 Tishrei 5785" {
		t.Errorf("Yom Kippur hebrew date = %q", obs[2].HebrewDate)
	}
}

func TestFileSource_InclusiveBounds(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	src := NewFileSource(writeObservanceFile(t, observanceYAML), logger)
	if err := src.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	day := time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC)
	obs, err := src.Observances(context.Background(), day, day)
	if err != nil {
		t.Fatalf("Observances() error = %v", err)
	}
	if len(obs) != 1 || obs[0].Description != "Yom Kippur" {
		t.Errorf("Observances(single day) = %v", obs)
	}
}

func TestFileSource_NotLoaded(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	src := NewFileSource("/nonexistent/observances.yaml", logger)

	if err := src.Load(); err == nil {
		t.Error("Load() expected error for missing file")
	}

	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	if _, err := src.Observances(context.Background(), start, start.AddDate(0, 1, 0)); err == nil {
		t.Error("Observances() expected error when file not loaded")
	}
}

func TestFileSource_InvalidYAML(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	src := NewFileSource(writeObservanceFile(t, "observances: [\n"), logger)

	if err := src.Load(); err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}
