package controllerImp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"riego/pkg/apierror"
	"riego/pkg/errors"
	"riego/pkg/ingest"
	"riego/pkg/logger"
)

type Importer interface {
	Import(ctx context.Context, r io.Reader) (*ingest.Report, error)
}

type UploadCtrl struct {
	importer Importer
	log      *slog.Logger
}

func New(importer Importer, log *slog.Logger) *UploadCtrl {
	return &UploadCtrl{importer: importer, log: logger.OrDiscard(log)}
}

type uploadResp struct {
	Message string `json:"mensaje"`
	*ingest.Report
}

type failedResp struct {
	apierror.Response
	*ingest.Report
}

// UploadCSV imports the multipart field "file".
func (h *UploadCtrl) UploadCSV(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil || fh.Size == 0 {
		if err == nil {
			err = errors.NewStd("empty upload")
		}
		err = errors.New(err).Category(errors.CategoryValidation).Component("ingest").Build()
		return apierror.Write(c, h.log, err, "Archivo CSV no válido.")
	}
	f, err := fh.Open()
	if err != nil {
		return apierror.Write(c, h.log, err, "Archivo CSV no válido.")
	}
	defer f.Close()

	rep, err := h.importer.Import(c.Request().Context(), f)
	if err != nil {
		if rep == nil {
			return apierror.Write(c, h.log, err, "Error al procesar CSV")
		}
		// part of the file may already be committed; tell the client how much
		code := apierror.StatusFor(err)
		h.log.Error("csv import failed", "import_id", rep.ImportID, "imported", rep.Imported, "error", err)
		return c.JSON(code, failedResp{
			Response: apierror.Response{Message: "Error al procesar CSV", Detail: err.Error()},
			Report:   rep,
		})
	}
	return c.JSON(http.StatusOK, uploadResp{
		Message: fmt.Sprintf("Se importaron %d lecturas.", rep.Imported),
		Report:  rep,
	})
}
