// pkg/model/scorer.go

// Package model scores encoded readings. The score is interpreted by the
// decision engine according to the configured score type.
package model

import (
	"context"
	"log/slog"

	"riego/pkg/errors"
	"riego/pkg/features"
	"riego/pkg/logger"
)

type Scorer interface {
	Score(ctx context.Context, v features.FeatureVector) (float64, error)
}

type fallback struct {
	primary, secondary Scorer
	log                *slog.Logger
}

// WithFallback scores with primary and, when it fails for any reason other
// than the caller's cancellation, retries with secondary. A nil secondary
// returns primary unchanged.
func WithFallback(primary, secondary Scorer, log *slog.Logger) Scorer {
	if secondary == nil {
		return primary
	}
	return &fallback{primary: primary, secondary: secondary, log: logger.OrDiscard(log)}
}

func (f *fallback) Score(ctx context.Context, v features.FeatureVector) (float64, error) {
	s, err := f.primary.Score(ctx, v)
	if err == nil {
		return s, nil
	}
	if ctx.Err() != nil {
		return 0, err
	}
	f.log.Warn("primary scorer failed, using fallback", "error", err)
	s, ferr := f.secondary.Score(ctx, v)
	if ferr != nil {
		return 0, errors.Join(err, ferr)
	}
	return s, nil
}
