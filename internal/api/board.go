package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nhle/company-tasks/internal/filter"
	"github.com/nhle/company-tasks/internal/session"
	"github.com/nhle/company-tasks/internal/store"
)

// boardSession builds a session for the caller with the facets and sidebar
// selection from the query string applied.
func (h *handlers) boardSession(c echo.Context) (*session.Session, error) {
	sel, err := filter.ParseSelection(
		c.QueryParam("status"),
		c.QueryParam("priority"),
		c.QueryParam("company"),
	)
	if err != nil {
		return nil, badRequest(err)
	}

	sess := session.New(h.store, identity(c), h.logger)
	if err := sess.SetSelection(sel); err != nil {
		return nil, badRequest(err)
	}
	if sidebar := c.QueryParam("sidebar"); sidebar != "" {
		sess.SelectCompany(sidebar)
	}
	return sess, nil
}

// board returns the composed live board for the caller.
func (h *handlers) board(c echo.Context) error {
	sess, err := h.boardSession(c)
	if err != nil {
		return fail(c, h.logger, err)
	}
	if err := sess.Refresh(c.Request().Context()); err != nil {
		return fail(c, h.logger, err)
	}
	return h.writeSnapshot(c, sess.Snapshot())
}

// archived returns the archived tasks in scope. ?company= restricts the
// listing the same way the sidebar does.
func (h *handlers) archived(c echo.Context) error {
	sess := session.New(h.store, identity(c), h.logger)
	if company := c.QueryParam("company"); company != "" {
		sess.SelectCompany(company)
	}
	sess.ShowArchived()
	if err := sess.Refresh(c.Request().Context()); err != nil {
		return fail(c, h.logger, err)
	}
	return h.writeSnapshot(c, sess.Snapshot())
}

func (h *handlers) writeSnapshot(c echo.Context, snap *session.Snapshot) error {
	if snap.Err != nil {
		return fail(c, h.logger, snap.Err)
	}
	return c.JSON(http.StatusOK, snap)
}

// stream pushes the caller's board as server-sent events: once on connect
// and again after every change to tasks or companies.
func (h *handlers) stream(c echo.Context) error {
	sess, err := h.boardSession(c)
	if err != nil {
		return fail(c, h.logger, err)
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}

	ctx := c.Request().Context()
	sub := h.hub.Subscribe(store.TableTasks, store.TableCompanies)
	defer h.hub.Unsubscribe(sub)

	if err := sess.Refresh(ctx); err != nil {
		return fail(c, h.logger, err)
	}
	if snap := sess.Snapshot(); snap.Err != nil {
		return fail(c, h.logger, snap.Err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	updates := make(chan *session.Snapshot, 1)
	go sess.Run(ctx, sub.Ch(), func(snap *session.Snapshot) {
		select {
		case updates <- snap:
		default:
			// Replace the unsent snapshot with the newer one.
			select {
			case <-updates:
			default:
			}
			updates <- snap
		}
	})

	snap := sess.Snapshot()
	for {
		data, err := json.Marshal(snap)
		if err != nil {
			h.logger.WithError(err).Error("marshal board")
			return err
		}
		if _, err := c.Response().Write([]byte("data: ")); err != nil {
			return nil
		}
		if _, err := c.Response().Write(data); err != nil {
			return nil
		}
		if _, err := c.Response().Write([]byte("\n\n")); err != nil {
			return nil
		}
		flusher.Flush()

		select {
		case <-ctx.Done():
			return nil
		case snap = <-updates:
		}
	}
}
