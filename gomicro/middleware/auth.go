package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/jwtutil"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"go.uber.org/zap"
)

type tokenKey struct{}

// ContextWithToken stores the caller's bearer token for forwarding to other services
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token stored by the auth middleware
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// JWTAuthMiddleware creates a middleware that validates JWT tokens
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				log.Warn("Invalid authorization header format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set("user", claims)
			c.Set("user_id", claims.UserID)
			c.Set("email", claims.Email)
			if claims.TenantID != nil {
				c.Set("tenant_id", *claims.TenantID)
			}
			c.SetRequest(c.Request().WithContext(ContextWithToken(c.Request().Context(), parts[1])))

			fields := []zap.Field{zap.Uint("user_id", claims.UserID)}
			if claims.TenantID != nil {
				fields = append(fields, zap.Uint("tenant_id", *claims.TenantID))
			}
			logger.With(c, fields...).Debug("JWT token validated", zap.String("email", claims.Email))

			return next(c)
		}
	}
}

// RequireTenantContext rejects requests whose token carries no tenant
func RequireTenantContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := TenantID(c); !ok {
			logger.FromEcho(c).Warn("Tenant context required")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant context required"})
		}
		return next(c)
	}
}

// UserID returns the authenticated user id
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get("user_id").(uint)
	return id, ok
}

// TenantID returns the tenant id from the token claims
func TenantID(c echo.Context) (uint, bool) {
	id, ok := c.Get("tenant_id").(uint)
	return id, ok
}
