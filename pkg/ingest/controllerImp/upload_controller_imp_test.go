package controllerImp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riego/pkg/errors"
	"riego/pkg/ingest"
	"riego/pkg/logger"
)

type stubImporter struct {
	rep  *ingest.Report
	err  error
	seen string
}

func (s *stubImporter) Import(_ context.Context, r io.Reader) (*ingest.Report, error) {
	b, _ := io.ReadAll(r)
	s.seen = string(b)
	return s.rep, s.err
}

func upload(t *testing.T, h *UploadCtrl, field, content string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile(field, "lecturas.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/lecturas/upload-csv", body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e := echo.New()
	require.NoError(t, h.UploadCSV(e.NewContext(req, rec)))
	return rec
}

func TestUploadOK(t *testing.T) {
	imp := &stubImporter{rep: &ingest.Report{
		ImportID: "abc", Imported: 2, Processed: 3,
		Skipped: []ingest.Skip{{Row: 2, Reason: "cultivo 'Banana' no reconocido"}},
	}}
	rec := upload(t, New(imp, logger.Discard()), "file", "Cultivo;Fecha\n")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cultivo;Fecha\n", imp.seen)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Se importaron 2 lecturas.", body["mensaje"])
	assert.EqualValues(t, 2, body["importadas"])
	assert.EqualValues(t, 3, body["procesadas"])
	assert.Equal(t, "abc", body["import_id"])
	require.Len(t, body["omitidas"], 1)
}

func TestUploadErrors(t *testing.T) {
	structural := errors.New(ingest.ErrNoSensors).Category(errors.CategoryStructural).Build()
	flush := errors.New(&ingest.FlushError{Batch: 2, Row: 3, Cause: errors.NewStd("disk full")}).
		Category(errors.CategoryDatabase).Build()

	tests := []struct {
		name    string
		field   string
		content string
		imp     *stubImporter
		want    int
		partial bool
	}{
		{"wrong field", "archivo", "x", &stubImporter{}, http.StatusBadRequest, false},
		{"empty file", "file", "", &stubImporter{}, http.StatusBadRequest, false},
		{"no sensors", "file", "Cultivo;Fecha\n", &stubImporter{err: structural}, http.StatusBadRequest, false},
		{"flush failure", "file", "Cultivo;Fecha\n", &stubImporter{err: flush, rep: &ingest.Report{Imported: 2}}, http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(t, New(tt.imp, nil), tt.field, tt.content)
			assert.Equal(t, tt.want, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["mensaje"])
			if tt.partial {
				assert.EqualValues(t, 2, body["importadas"])
			}
		})
	}
}
