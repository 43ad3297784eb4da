package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"retail-service/pkg/jwtutil"
	"retail-service/pkg/logger"
)

const (
	cashierNameKey = "cashier_name"
	userRoleKey    = "user_role"
)

// IdentityMiddleware reads an optional bearer token naming the staff member.
// Roles only gate the UI, so a missing or bad token never rejects the request.
func IdentityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return next(c)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logger.FromContext(c).Warn("Ignoring malformed Authorization header")
			return next(c)
		}

		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			logger.FromContext(c).Warn("Ignoring invalid identity token", zap.Error(err))
			return next(c)
		}

		c.Set(cashierNameKey, claims.Name)
		c.Set(userRoleKey, claims.Role)
		return next(c)
	}
}

// CashierFromContext returns the staff name carried by the identity token
func CashierFromContext(c echo.Context) (string, bool) {
	name, ok := c.Get(cashierNameKey).(string)
	return name, ok && name != ""
}

// RoleFromContext returns the advisory role carried by the identity token
func RoleFromContext(c echo.Context) (string, bool) {
	role, ok := c.Get(userRoleKey).(string)
	return role, ok && role != ""
}
