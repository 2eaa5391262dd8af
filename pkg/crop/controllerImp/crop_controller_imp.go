package controllerImp

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"riego/entities"
	"riego/pkg/apierror"
	"riego/pkg/crop/repository"
	"riego/pkg/errors"
)

type CropCtrl struct {
	repo repository.CropRepository
	log  *slog.Logger
}

func New(repo repository.CropRepository, log *slog.Logger) *CropCtrl {
	return &CropCtrl{repo: repo, log: log}
}

type createReq struct {
	Name string `json:"nombre"`
}

func (h *CropCtrl) List(c echo.Context) error {
	out, err := h.repo.List(c.Request().Context())
	if err != nil {
		return apierror.Write(c, h.log, err, "Error interno del servidor")
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CropCtrl) Create(c echo.Context) error {
	var req createReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		err = errors.Newf("nombre is required").Category(errors.CategoryValidation).Component("crop").Build()
		return apierror.Write(c, h.log, err, "Solicitud inválida")
	}
	crop := &entities.Crop{Name: strings.TrimSpace(req.Name)}
	if err := h.repo.Create(c.Request().Context(), crop); err != nil {
		return apierror.Write(c, h.log, err, "No se pudo registrar el cultivo")
	}
	return c.JSON(http.StatusCreated, crop)
}

// Delete answers 409 while readings reference the crop.
func (h *CropCtrl) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		err = errors.New(err).Category(errors.CategoryValidation).Component("crop").Build()
		return apierror.Write(c, h.log, err, "Solicitud inválida")
	}
	if err := h.repo.Delete(c.Request().Context(), uint(id)); err != nil {
		msg := "No se pudo eliminar el cultivo"
		if errors.IsCategory(err, errors.CategoryConflict) {
			msg = "El cultivo tiene lecturas asociadas"
		}
		return apierror.Write(c, h.log, err, msg)
	}
	return c.NoContent(http.StatusNoContent)
}
