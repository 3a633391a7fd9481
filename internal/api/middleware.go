package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/company-tasks/internal/filter"
	"github.com/nhle/company-tasks/internal/model"
)

const identityKey = "identity"

// IdentityResolver maps an Authorization header to the caller's identity.
type IdentityResolver interface {
	CurrentIdentity(ctx context.Context, authHeader string) (*model.Identity, error)
}

// requireIdentity resolves the caller and stores the identity on the
// context. EventSource clients cannot set headers, so a token query
// parameter is accepted in place of the Authorization header.
func requireIdentity(resolver IdentityResolver, logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if token := c.QueryParam("token"); authHeader == "" && token != "" {
				authHeader = "Bearer " + token
			}
			id, err := resolver.CurrentIdentity(c.Request().Context(), authHeader)
			if err != nil {
				return fail(c, logger, err)
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// requireAdmin rejects non-admin callers with 403.
func requireAdmin(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !filter.CanManageSettings(identity(c)) {
				return fail(c, logger, errForbidden)
			}
			return next(c)
		}
	}
}

func identity(c echo.Context) *model.Identity {
	id, _ := c.Get(identityKey).(*model.Identity)
	return id
}

// requestLogger logs one line per request with logrus.
func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			fields := log.Fields{
				"method":  c.Request().Method,
				"path":    c.Request().URL.Path,
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
				"remote":  c.RealIP(),
			}
			if id := identity(c); id != nil {
				fields["user"] = id.UserID
			}
			logger.WithFields(fields).Info("request")
			return nil
		}
	}
}
