package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// Context keys set by the auth middlewares.
const (
	CtxUID  = "uid"
	CtxRole = "role"
)

const (
	RoleAdmin  = "Admin"
	RoleFarmer = "Agricultor"
)

// DevLogin trusts X-Dev-User and X-Dev-Role. Only wired when no JWT secret is
// configured; role defaults to Admin so local tools can import.
func DevLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := strings.TrimSpace(c.Request().Header.Get("X-Dev-User"))
			if uid == "" {
				uid = "dev"
			}
			role := strings.TrimSpace(c.Request().Header.Get("X-Dev-Role"))
			if role == "" {
				role = RoleAdmin
			}
			c.Set(CtxUID, uid)
			c.Set(CtxRole, role)
			return next(c)
		}
	}
}
