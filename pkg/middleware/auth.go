package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims is the token payload the gate reads. Tokens are issued elsewhere.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWT validates an HS256 bearer token and stores its subject and role on the
// context. Requests without a valid token get 401.
func JWT(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"mensaje": "Token requerido"})
			}
			claims := &Claims{}
			_, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"mensaje": "Token inválido"})
			}
			c.Set(CtxUID, claims.Subject)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}

// Auth picks JWT when a secret is configured, DevLogin otherwise.
func Auth(secret string) echo.MiddlewareFunc {
	if secret == "" {
		return DevLogin()
	}
	return JWT(secret)
}

// RequireRole lets the request through only when the role set by Auth is one
// of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if !slices.Contains(roles, role) {
				return c.JSON(http.StatusForbidden, map[string]string{"mensaje": "Permiso denegado"})
			}
			return next(c)
		}
	}
}
