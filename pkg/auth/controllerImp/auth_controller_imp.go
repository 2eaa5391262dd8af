package controllerImp

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"riego/pkg/auth/controller"
	"riego/pkg/middleware"
)

type authCtrl struct{}

func NewAuthController() controller.AuthController { return &authCtrl{} }

// WhoAmI echoes the identity the auth middleware resolved.
func (h *authCtrl) WhoAmI(c echo.Context) error {
	uid, _ := c.Get(middleware.CtxUID).(string)
	role, _ := c.Get(middleware.CtxRole).(string)
	return c.JSON(http.StatusOK, map[string]string{"uid": uid, "rol": role})
}
