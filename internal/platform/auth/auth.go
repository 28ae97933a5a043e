// Package auth guards the internal JSON API with bearer-token
// authentication. The inbound SOAP surface is not covered here; its trust
// model is the SAML assertion on the envelope.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	SubjectKey contextKey = "auth_subject"
	TenantKey  contextKey = "auth_tenant"
)

// Claims are the token claims the bridge cares about: the standard set plus
// the tenant the caller acts for.
type Claims struct {
	jwt.RegisteredClaims
	CxID string `json:"cx_id"`
}

// Config holds token validation settings. An empty Secret disables the
// middleware entirely, for local development.
type Config struct {
	Issuer   string
	Audience string
	Secret   []byte
}

// Middleware validates the Authorization bearer token and stores the
// subject and tenant on the request context.
func Middleware(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(cfg.Secret) == 0 {
				return next(c)
			}

			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			if cfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Audience))
			}

			token, err := jwt.ParseWithClaims(parts[1], claims, func(*jwt.Token) (interface{}, error) {
				return cfg.Secret, nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, SubjectKey, claims.Subject)
			ctx = context.WithValue(ctx, TenantKey, claims.CxID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// SubjectFromContext returns the authenticated subject, if any.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(SubjectKey).(string)
	return s
}

// TenantFromContext returns the tenant the caller acts for, if any.
func TenantFromContext(ctx context.Context) string {
	s, _ := ctx.Value(TenantKey).(string)
	return s
}
