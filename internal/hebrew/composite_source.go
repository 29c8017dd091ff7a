package hebrew

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CompositeSource implements Source with fallback strategy
// Primary: LibrarySource or APISource
// Fallback: FileSource (local file)
type CompositeSource struct {
	primary  Source
	fallback Source
	logger   *zap.Logger
}

// NewCompositeSource creates a new CompositeSource
func NewCompositeSource(primary, fallback Source, logger *zap.Logger) *CompositeSource {
	return &CompositeSource{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Observances tries the primary source, then the fallback
func (cs *CompositeSource) Observances(ctx context.Context, start, end time.Time) ([]Observance, error) {
	obs, err := cs.primary.Observances(ctx, start, end)
	if err == nil {
		return obs, nil
	}

	// Superseded or timed out: the fallback result would be discarded too
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	cs.logger.Warn("Primary observance source failed, falling back",
		zap.String("start", start.Format("2006-01-02")),
		zap.String("end", end.Format("2006-01-02")),
		zap.Error(err))

	obs, fallbackErr := cs.fallback.Observances(ctx, start, end)
	if fallbackErr != nil {
		return nil, fmt.Errorf("primary and fallback both failed: primary=%w, fallback=%v", err, fallbackErr)
	}
	return obs, nil
}

// LoadFallback loads the fallback source (if FileSource)
func (cs *CompositeSource) LoadFallback() error {
	if fs, ok := cs.fallback.(*FileSource); ok {
		if err := fs.Load(); err != nil {
			return fmt.Errorf("failed to load fallback observances: %w", err)
		}
		cs.logger.Info("Fallback observances loaded successfully")
	}
	return nil
}
