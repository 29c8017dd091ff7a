package hebrew

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubSource struct {
	obs   []Observance
	err   error
	calls int
}

func (s *stubSource) Observances(ctx context.Context, start, end time.Time) ([]Observance, error) {
	s.calls++
	return s.obs, s.err
}

func TestCompositeSource(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	primaryObs := []Observance{{Date: start, Description: "primary"}}
	fallbackObs := []Observance{{Date: start, Description: "fallback"}}

	tests := []struct {
		name          string
		primary       *stubSource
		fallback      *stubSource
		want          string
		wantErr       bool
		fallbackCalls int
	}{
		{"Primary succeeds", &stubSource{obs: primaryObs}, &stubSource{obs: fallbackObs}, "primary", false, 0},
		{"Primary fails", &stubSource{err: errors.New("boom")}, &stubSource{obs: fallbackObs}, "fallback", false, 1},
		{"Both fail", &stubSource{err: errors.New("boom")}, &stubSource{err: ErrUnavailable}, "", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := NewCompositeSource(tt.primary, tt.fallback, logger)

			obs, err := cs.Observances(context.Background(), start, end)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Observances() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && obs[0].Description != tt.want {
				t.Errorf("Observances() = %q, want %q", obs[0].Description, tt.want)
			}
			if tt.fallback.calls != tt.fallbackCalls {
				t.Errorf("fallback calls = %d, want %d", tt.fallback.calls, tt.fallbackCalls)
			}
		})
	}
}

func TestCompositeSource_CancelledSkipsFallback(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	primary := &stubSource{err: context.Canceled}
	fallback := &stubSource{}
	cs := NewCompositeSource(primary, fallback, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	if _, err := cs.Observances(ctx, start, start); !errors.Is(err, context.Canceled) {
		t.Errorf("Observances() error = %v, want context.Canceled", err)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times after cancellation", fallback.calls)
	}
}

func TestCompositeSource_LoadFallback(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	fs := NewFileSource(writeObservanceFile(t, observanceYAML), logger)
	cs := NewCompositeSource(Unavailable{}, fs, logger)

	if err := cs.LoadFallback(); err != nil {
		t.Fatalf("LoadFallback() error = %v", err)
	}

	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	obs, err := cs.Observances(context.Background(), start, start.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("Observances() error = %v", err)
	}
	if len(obs) != 3 {
		t.Errorf("len(obs) = %d, want 3 from fallback file", len(obs))
	}
}
