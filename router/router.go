package router

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"riego/pkg/middleware"
)

type crud interface {
	List(echo.Context) error
	Create(echo.Context) error
	Delete(echo.Context) error
}

// Controllers groups every handler the API serves.
type Controllers struct {
	Auth     interface{ WhoAmI(echo.Context) error }
	Health   interface{ Health(echo.Context) error }
	Sensors  crud
	Crops    crud
	Readings interface {
		crud
		Get(echo.Context) error
	}
	Upload interface{ UploadCSV(echo.Context) error }
	Alerts interface {
		Active(echo.Context) error
		Geo(echo.Context) error
	}
	Decision interface {
		FromReading(echo.Context) error
		FromInput(echo.Context) error
		LatestPerCrop(echo.Context) error
		Evaluate(echo.Context) error
	}
	Metrics http.Handler
}

type Options struct {
	JWTSecret   string
	MaxUploadMB int64
}

func New(e *echo.Echo, ctl Controllers, opts Options) *echo.Echo {
	e.GET("/health", ctl.Health.Health)
	if ctl.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(ctl.Metrics))
	}

	api := e.Group("/api", middleware.Auth(opts.JWTSecret))
	admin := middleware.RequireRole(middleware.RoleAdmin)
	writer := middleware.RequireRole(middleware.RoleFarmer, middleware.RoleAdmin)

	api.GET("/whoami", ctl.Auth.WhoAmI)

	api.GET("/sensores", ctl.Sensors.List)
	api.POST("/sensores", ctl.Sensors.Create, writer)
	api.DELETE("/sensores/:id", ctl.Sensors.Delete, admin)

	api.GET("/cultivos", ctl.Crops.List)
	api.POST("/cultivos", ctl.Crops.Create, writer)
	api.DELETE("/cultivos/:id", ctl.Crops.Delete, admin)

	api.GET("/lecturas", ctl.Readings.List)
	api.GET("/lecturas/geo-lecturas", ctl.Alerts.Geo)
	api.GET("/lecturas/:id", ctl.Readings.Get)
	api.POST("/lecturas", ctl.Readings.Create, writer)
	api.DELETE("/lecturas/:id", ctl.Readings.Delete, admin)

	upload := []echo.MiddlewareFunc{admin}
	if opts.MaxUploadMB > 0 {
		upload = append(upload, echoMiddleware.BodyLimit(fmt.Sprintf("%dM", opts.MaxUploadMB)))
	}
	api.POST("/lecturas/upload-csv", ctl.Upload.UploadCSV, upload...)

	api.GET("/alertas", ctl.Alerts.Active)

	api.GET("/predicciones/regar-avanzado/:id", ctl.Decision.FromReading)
	api.POST("/predicciones/regar-avanzado", ctl.Decision.FromInput)
	api.GET("/predicciones/regar-todos", ctl.Decision.LatestPerCrop)

	api.GET("/metricas/evaluar", ctl.Decision.Evaluate)
	return e
}
