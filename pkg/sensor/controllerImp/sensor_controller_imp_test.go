package controllerImp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riego/database"
	"riego/entities"
	"riego/pkg/features"
	"riego/pkg/sensor/repositoryImp"
)

func TestSensorHandlers(t *testing.T) {
	db, err := database.Open(database.Options{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedCrops(db, features.DefaultCrops()))

	h := New(repositoryImp.New(db), nil)
	e := echo.New()
	e.GET("/api/sensores", h.List)
	e.POST("/api/sensores", h.Create)
	e.DELETE("/api/sensores/:id", h.Delete)

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(http.MethodPost, "/api/sensores", `{"codigo":" S-01 ","ubicacion":"Lote 4"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created entities.Sensor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "S-01", created.Code)
	assert.NotZero(t, created.ID)

	rec = serve(http.MethodPost, "/api/sensores", `{"codigo":"S-02"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, db.Create(&entities.Reading{SensorID: created.ID, CropID: 1, Date: time.Now()}).Error)

	rec = serve(http.MethodGet, "/api/sensores", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []entities.Sensor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad json", http.MethodPost, "/api/sensores", `{`, http.StatusBadRequest},
		{"delete referenced", http.MethodDelete, "/api/sensores/1", "", http.StatusConflict},
		{"delete unused", http.MethodDelete, "/api/sensores/2", "", http.StatusNoContent},
		{"delete missing", http.MethodDelete, "/api/sensores/99", "", http.StatusNotFound},
		{"delete bad id", http.MethodDelete, "/api/sensores/x", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := serve(tt.method, tt.path, tt.body)
		assert.Equal(t, tt.want, rec.Code, tt.name)
	}
}
