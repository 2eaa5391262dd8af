package controllerImp

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"riego/pkg/alert"
	"riego/pkg/apierror"
	"riego/pkg/errors"
	"riego/pkg/logger"
)

type AlertCtrl struct {
	svc *alert.Service
	log *slog.Logger
}

func New(svc *alert.Service, log *slog.Logger) *AlertCtrl {
	return &AlertCtrl{svc: svc, log: logger.OrDiscard(log)}
}

// Active serves GET /api/alertas?limite=N.
func (h *AlertCtrl) Active(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limite"))
	out, err := h.svc.Active(c.Request().Context(), limit)
	if err != nil {
		return apierror.Write(c, h.log, err, "Error al obtener alertas")
	}
	return c.JSON(http.StatusOK, out)
}

// Geo serves GET /api/lecturas/geo-lecturas?anio=&mes=&cultivo=.
func (h *AlertCtrl) Geo(c echo.Context) error {
	q := alert.GeoQuery{Crop: c.QueryParam("cultivo")}
	var err error
	if s := c.QueryParam("anio"); s != "" {
		if q.Year, err = strconv.Atoi(s); err != nil {
			return apierror.Write(c, h.log, invalid("anio"), "Solicitud inválida")
		}
	}
	if s := c.QueryParam("mes"); s != "" {
		if q.Month, err = strconv.Atoi(s); err != nil || q.Month < 1 || q.Month > 12 {
			return apierror.Write(c, h.log, invalid("mes"), "Solicitud inválida")
		}
	}
	out, err := h.svc.GeoPoints(c.Request().Context(), q)
	if err != nil {
		return apierror.Write(c, h.log, err, "Error al obtener lecturas geográficas")
	}
	return c.JSON(http.StatusOK, out)
}

func invalid(param string) error {
	return errors.Newf("invalid %s", param).Category(errors.CategoryValidation).Component("alert").Build()
}
