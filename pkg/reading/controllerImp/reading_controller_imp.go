package controllerImp

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"riego/entities"
	"riego/pkg/apierror"
	"riego/pkg/errors"
	"riego/pkg/features"
	"riego/pkg/ingest"
	"riego/pkg/logger"
	repo "riego/pkg/reading/repository"
)

type ReadingCtrl struct {
	repo    repo.ReadingRepository
	sensors ingest.SensorSource
	picker  ingest.Picker
	catalog *features.Catalog
	log     *slog.Logger
}

// New wires the reading handlers. Readings posted without a sensor are
// assigned one through picker.
func New(r repo.ReadingRepository, sensors ingest.SensorSource, picker ingest.Picker, catalog *features.Catalog, log *slog.Logger) *ReadingCtrl {
	if picker == nil {
		picker = ingest.NewPicker(0)
	}
	return &ReadingCtrl{repo: r, sensors: sensors, picker: picker, catalog: catalog, log: logger.OrDiscard(log)}
}

type readingReq struct {
	SensorID           uint     `json:"sensorId"`
	CropID             uint     `json:"cultivoId"`
	Crop               string   `json:"cultivo"`
	Date               string   `json:"fecha"`
	SoilMoisture       *float64 `json:"humedadSuelo"`
	Temperature        *float64 `json:"temperatura"`
	Precipitation      *float64 `json:"precipitacion"`
	Wind               *float64 `json:"viento"`
	SolarRadiation     *float64 `json:"radiacionSolar"`
	DroughtIndex       *float64 `json:"indiceSequia"`
	SoilPH             *float64 `json:"pH_Suelo"`
	OrganicMatter      *float64 `json:"materiaOrganica"`
	WaterStressIndex   *float64 `json:"indiceEstres"`
	HydricDeficit      *float64 `json:"deficitHidrico"`
	Evapotranspiration *float64 `json:"evapotranspiracion"`
	Lat                *float64 `json:"lat"`
	Lng                *float64 `json:"lng"`
	IrrigationMethod   string   `json:"metodoRiego"`
	CropStage          string   `json:"etapaCultivo"`
	NeedsIrrigation    *bool    `json:"necesitaRiego"`
}

func badRequest(msg string) error {
	return errors.Newf("%s", msg).Category(errors.CategoryValidation).Component("reading").Build()
}

func (h *ReadingCtrl) Create(c echo.Context) error {
	var req readingReq
	if err := c.Bind(&req); err != nil {
		return apierror.Write(c, h.log, badRequest("bad json"), "Solicitud inválida")
	}
	if req.SensorID == 0 {
		ids, err := h.sensors.IDs(c.Request().Context())
		if err != nil {
			return apierror.Write(c, h.log, err, "Error interno del servidor")
		}
		if len(ids) == 0 {
			return apierror.Write(c, h.log, badRequest("no sensors registered"), "No hay sensores registrados.")
		}
		req.SensorID = h.picker.Pick(ids)
	}
	cropID := req.CropID
	if cropID == 0 {
		crop, err := h.catalog.Resolve(req.Crop)
		if err != nil {
			return apierror.Write(c, h.log, err, "Cultivo no reconocido")
		}
		cropID = crop.ID
	}
	d := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		dd, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return apierror.Write(c, h.log, badRequest("fecha must be yyyy-MM-dd"), "Solicitud inválida")
		}
		d = dd
	}
	m := &entities.Reading{
		SensorID: req.SensorID, CropID: cropID, Date: d,
		SoilMoisture: req.SoilMoisture, Temperature: req.Temperature, Precipitation: req.Precipitation,
		Wind: req.Wind, SolarRadiation: req.SolarRadiation, DroughtIndex: req.DroughtIndex,
		SoilPH: req.SoilPH, OrganicMatter: req.OrganicMatter, WaterStressIndex: req.WaterStressIndex,
		HydricDeficit: req.HydricDeficit, Evapotranspiration: req.Evapotranspiration,
		Lat: req.Lat, Lng: req.Lng,
		IrrigationMethod: strings.TrimSpace(req.IrrigationMethod),
		CropStage:        strings.TrimSpace(req.CropStage),
		NeedsIrrigation:  req.NeedsIrrigation,
	}
	if err := h.repo.Create(c.Request().Context(), m); err != nil {
		return apierror.Write(c, h.log, err, "No se pudo registrar la lectura")
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *ReadingCtrl) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return apierror.Write(c, h.log, badRequest("bad id"), "Solicitud inválida")
	}
	out, err := h.repo.FindByID(c.Request().Context(), uint(id))
	if err != nil {
		return apierror.Write(c, h.log, err, "Lectura no encontrada")
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReadingCtrl) List(c echo.Context) error {
	q := repo.ListQuery{}
	q.Limit, _ = strconv.Atoi(c.QueryParam("limite"))
	q.Offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if name := c.QueryParam("cultivo"); name != "" {
		crop, err := h.catalog.Resolve(name)
		if err != nil {
			return c.JSON(http.StatusOK, []entities.Reading{})
		}
		q.CropID = crop.ID
	}
	out, err := h.repo.List(c.Request().Context(), q)
	if err != nil {
		return apierror.Write(c, h.log, err, "Error interno del servidor")
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReadingCtrl) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return apierror.Write(c, h.log, badRequest("bad id"), "Solicitud inválida")
	}
	if err := h.repo.Delete(c.Request().Context(), uint(id)); err != nil {
		return apierror.Write(c, h.log, err, "No se pudo eliminar la lectura")
	}
	return c.NoContent(http.StatusNoContent)
}
