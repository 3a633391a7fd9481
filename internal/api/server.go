package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/company-tasks/internal/model"
	"github.com/nhle/company-tasks/internal/notify"
	"github.com/nhle/company-tasks/internal/store"
)

// Subscriber hands out change-feed subscriptions.
type Subscriber interface {
	Subscribe(tables ...string) *notify.Subscription
	Unsubscribe(sub *notify.Subscription)
}

// New returns an Echo instance with middleware and every route registered.
func New(cfg model.HTTPConfig, st store.Store, resolver IdentityResolver, hub Subscriber, logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(requestLogger(logger))

	Register(e, st, resolver, hub, logger)
	return e
}

// Register wires up the API endpoints on the given Echo instance.
func Register(e *echo.Echo, st store.Store, resolver IdentityResolver, hub Subscriber, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	h := &handlers{store: st, hub: hub, logger: logger}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	api := e.Group("/api", requireIdentity(resolver, logger))
	admin := requireAdmin(logger)

	api.GET("/me", h.me)
	api.GET("/board", h.board)
	api.GET("/archived", h.archived)
	api.GET("/stream", h.stream)

	api.POST("/tasks", h.createTask)
	api.GET("/tasks/:id", h.taskDetail)
	api.PATCH("/tasks/:id/status", h.updateStatus)
	api.PATCH("/tasks/:id/priority", h.updatePriority, admin)
	api.POST("/tasks/:id/archive", h.archiveTask)
	api.POST("/tasks/:id/restore", h.restoreTask)
	api.DELETE("/tasks/:id", h.deleteTask, admin)
	api.POST("/tasks/:id/comments", h.addComment)
	api.POST("/tasks/:id/attachments", h.addAttachment)

	api.GET("/companies", h.listCompanies)
	api.POST("/companies", h.createCompany, admin)
	api.PATCH("/companies/:id", h.updateCompany, admin)
	api.DELETE("/companies/:id", h.deleteCompany, admin)

	api.GET("/profiles", h.listProfiles, admin)
	api.POST("/profiles", h.createProfile, admin)
	api.DELETE("/profiles/:id", h.deleteProfile, admin)
}

type handlers struct {
	store  store.Store
	hub    Subscriber
	logger *log.Logger
}

func (h *handlers) me(c echo.Context) error {
	return c.JSON(http.StatusOK, identity(c))
}
