package controllerImp

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

var appStart = time.Now()

// Check probes one dependency. Checks run with a short deadline.
type Check func(ctx context.Context) error

type HealthCtrl struct {
	db     *gorm.DB
	checks map[string]Check
	info   map[string]any
}

// NewHealthCtrl reports the database plus any extra checks. info is echoed
// verbatim, e.g. the scorer in use.
func NewHealthCtrl(db *gorm.DB, checks map[string]Check, info map[string]any) *HealthCtrl {
	return &HealthCtrl{db: db, checks: checks, info: info}
}

type sub struct {
	OK  bool   `json:"ok"`
	Err string `json:"err,omitempty"`
}

func (h *HealthCtrl) pingDB(ctx context.Context) sub {
	if h.db == nil {
		return sub{Err: "gorm db is nil"}
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return sub{Err: "db.DB(): " + err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return sub{Err: "ping: " + err.Error()}
	}
	return sub{OK: true}
}

func (h *HealthCtrl) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 800*time.Millisecond)
	defer cancel()

	checks := map[string]sub{"database": h.pingDB(ctx)}
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			checks[name] = sub{Err: err.Error()}
		} else {
			checks[name] = sub{OK: true}
		}
	}

	allOK := true
	for _, s := range checks {
		allOK = allOK && s.OK
	}
	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}

	resp := map[string]any{
		"status":     map[string]any{"ok": allOK},
		"uptime_sec": int(time.Since(appStart).Seconds()),
		"checks":     checks,
		"time":       time.Now().Format(time.RFC3339),
	}
	if len(h.info) > 0 {
		resp["info"] = h.info
	}
	return c.JSON(status, resp)
}
