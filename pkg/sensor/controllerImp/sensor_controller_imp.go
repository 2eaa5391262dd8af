package controllerImp

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"riego/entities"
	"riego/pkg/apierror"
	"riego/pkg/errors"
	"riego/pkg/sensor/repository"
)

type SensorCtrl struct {
	repo repository.SensorRepository
	log  *slog.Logger
}

func New(repo repository.SensorRepository, log *slog.Logger) *SensorCtrl {
	return &SensorCtrl{repo: repo, log: log}
}

type createReq struct {
	Code     string `json:"codigo"`
	Location string `json:"ubicacion"`
	OwnerID  uint   `json:"usuario_id"`
}

func (h *SensorCtrl) List(c echo.Context) error {
	out, err := h.repo.List(c.Request().Context())
	if err != nil {
		return apierror.Write(c, h.log, err, "Error interno del servidor")
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SensorCtrl) Create(c echo.Context) error {
	var req createReq
	if err := c.Bind(&req); err != nil {
		err = errors.New(err).Category(errors.CategoryValidation).Component("sensor").Build()
		return apierror.Write(c, h.log, err, "Solicitud inválida")
	}
	s := &entities.Sensor{
		Code:     strings.TrimSpace(req.Code),
		Location: strings.TrimSpace(req.Location),
		OwnerID:  req.OwnerID,
	}
	if err := h.repo.Create(c.Request().Context(), s); err != nil {
		return apierror.Write(c, h.log, err, "No se pudo registrar el sensor")
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *SensorCtrl) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		err = errors.New(err).Category(errors.CategoryValidation).Component("sensor").Build()
		return apierror.Write(c, h.log, err, "Solicitud inválida")
	}
	if err := h.repo.Delete(c.Request().Context(), uint(id)); err != nil {
		return apierror.Write(c, h.log, err, "No se pudo eliminar el sensor")
	}
	return c.NoContent(http.StatusNoContent)
}
