package controllerImp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"riego/pkg/middleware"
)

func TestWhoAmI(t *testing.T) {
	e := echo.New()
	e.Use(middleware.DevLogin())
	e.GET("/whoami", NewAuthController().WhoAmI)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Dev-User", "ana")
	req.Header.Set("X-Dev-Role", middleware.RoleFarmer)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"uid":"ana","rol":"Agricultor"}`, rec.Body.String())
}
