package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormAdapter routes GORM's logging through slog. Plain queries go to DEBUG,
// slow queries and query errors to WARN.
type GormAdapter struct {
	log           *slog.Logger
	slowThreshold time.Duration
}

func NewGormAdapter(l *slog.Logger, slowThreshold time.Duration) *GormAdapter {
	return &GormAdapter{log: OrDiscard(l), slowThreshold: slowThreshold}
}

// LogMode returns the adapter itself; levels are owned by slog.
func (a *GormAdapter) LogMode(gormlogger.LogLevel) gormlogger.Interface { return a }

func (a *GormAdapter) Info(ctx context.Context, msg string, data ...any) {
	a.log.DebugContext(ctx, fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Warn(ctx context.Context, msg string, data ...any) {
	a.log.WarnContext(ctx, fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Error(ctx context.Context, msg string, data ...any) {
	a.log.ErrorContext(ctx, fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		a.log.WarnContext(ctx, "query error", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds(), "error", err)
	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		a.log.WarnContext(ctx, "slow query", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds())
	default:
		a.log.DebugContext(ctx, "sql query", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds())
	}
}
