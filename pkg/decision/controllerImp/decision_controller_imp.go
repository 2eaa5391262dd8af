package controllerImp

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"riego/pkg/apierror"
	"riego/pkg/decision"
	"riego/pkg/errors"
	"riego/pkg/features"
	"riego/pkg/logger"
)

const internalError = "Error interno del servidor"

type DecisionCtrl struct {
	engine *decision.Engine
	log    *slog.Logger
}

func New(engine *decision.Engine, log *slog.Logger) *DecisionCtrl {
	return &DecisionCtrl{engine: engine, log: logger.OrDiscard(log)}
}

type inputReq struct {
	Crop             string   `json:"cultivo"`
	Stage            string   `json:"etapaCultivo"`
	IrrigationMethod string   `json:"metodoRiego"`
	Date             string   `json:"fecha"`
	SoilMoisture     *float64 `json:"humedadSuelo"`
	Temperature      *float64 `json:"temperatura"`
	Precipitation    *float64 `json:"precipitacion"`
	Wind             *float64 `json:"viento"`
	SolarRadiation   *float64 `json:"radiacionSolar"`
	DroughtIndex     *float64 `json:"indiceSequia"`
	SoilPH           *float64 `json:"pH_Suelo"`
	OrganicMatter    *float64 `json:"materiaOrganica"`
}

// fail answers 404 and 400 as categorized; everything else is a 500.
func (h *DecisionCtrl) fail(c echo.Context, err error, notFound string) error {
	switch errors.CategoryOf(err) {
	case errors.CategoryNotFound:
		return apierror.WriteStatus(c, h.log, err, notFound, http.StatusNotFound)
	case errors.CategoryValidation:
		return apierror.WriteStatus(c, h.log, err, "Entrada inválida", http.StatusBadRequest)
	default:
		return apierror.WriteStatus(c, h.log, err, internalError, http.StatusInternalServerError)
	}
}

// FromReading serves GET /api/predicciones/regar-avanzado/:id.
func (h *DecisionCtrl) FromReading(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return h.fail(c, errors.New(err).Category(errors.CategoryValidation).Component("decision").Build(), "")
	}
	rec, err := h.engine.FromReading(c.Request().Context(), uint(id))
	if err != nil {
		return h.fail(c, err, "Lectura no encontrada")
	}
	return c.JSON(http.StatusOK, rec)
}

// FromInput serves POST /api/predicciones/regar-avanzado.
func (h *DecisionCtrl) FromInput(c echo.Context) error {
	var req inputReq
	if err := c.Bind(&req); err != nil {
		return h.fail(c, errors.New(err).Category(errors.CategoryValidation).Component("decision").Build(), "")
	}
	in := features.Input{
		Crop:             req.Crop,
		Stage:            strings.TrimSpace(req.Stage),
		IrrigationMethod: strings.TrimSpace(req.IrrigationMethod),
		SoilMoisture:     req.SoilMoisture,
		Temperature:      req.Temperature,
		Precipitation:    req.Precipitation,
		Wind:             req.Wind,
		SolarRadiation:   req.SolarRadiation,
		DroughtIndex:     req.DroughtIndex,
		SoilPH:           req.SoilPH,
		OrganicMatter:    req.OrganicMatter,
	}
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			return h.fail(c, errors.New(err).Category(errors.CategoryValidation).Component("decision").Build(), "")
		}
		in.Date = d
	}
	rec, err := h.engine.FromInput(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err, "")
	}
	return c.JSON(http.StatusOK, rec)
}

// LatestPerCrop serves GET /api/predicciones/regar-todos.
func (h *DecisionCtrl) LatestPerCrop(c echo.Context) error {
	out, err := h.engine.LatestPerCrop(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "")
	}
	return c.JSON(http.StatusOK, out)
}

// Evaluate serves GET /api/metricas/evaluar.
func (h *DecisionCtrl) Evaluate(c echo.Context) error {
	ev, err := h.engine.Evaluate(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "No hay datos de prueba disponibles.")
	}
	return c.JSON(http.StatusOK, ev)
}

// parseDate accepts yyyy-MM-dd and RFC 3339.
func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, s)
}
