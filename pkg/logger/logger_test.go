package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"TRACE":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewJSONIncludesModule(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	l := New(buf, "info", "json").With("module", "ingest")
	l.Info("import finished", "rows", 3)

	out := buf.String()
	assert.Contains(t, out, `"module":"ingest"`)
	assert.Contains(t, out, `"rows":3`)
}

func TestGormAdapterTrace(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	a := NewGormAdapter(New(buf, "debug", "text"), 10*time.Millisecond)
	fc := func() (string, int64) { return "SELECT 1", 1 }

	a.Trace(context.Background(), time.Now(), fc, nil)
	assert.Contains(t, buf.String(), "sql query")

	buf.Reset()
	a.Trace(context.Background(), time.Now(), fc, gorm.ErrRecordNotFound)
	assert.NotContains(t, buf.String(), "query error")

	buf.Reset()
	a.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	assert.Contains(t, buf.String(), "slow query")
}
