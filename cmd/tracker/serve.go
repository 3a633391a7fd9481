package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/company-tasks/internal/api"
	"github.com/nhle/company-tasks/internal/auth"
)

const shutdownTimeout = 10 * time.Second

func runServe(args []string) error {
	fs := newFlagSet("serve")
	fs.String("addr", "", "override http.addr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := loadEnv(fs)
	if err != nil {
		return err
	}
	logger := e.logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	hub, stopFeed, err := e.changeFeed(ctx, st)
	if err != nil {
		return err
	}
	defer stopFeed()

	secret := ""
	if e.cfg.Auth.Mode == auth.ModeHS256 {
		if secret, err = e.signingSecret(); err != nil {
			return err
		}
	}
	authenticator, err := auth.FromConfig(e.cfg.Auth, secret)
	if err != nil {
		return err
	}
	defer authenticator.Close()

	server := api.New(e.cfg.HTTP, st, auth.NewResolver(authenticator, st), hub, logger)

	return serveUntil(ctx, server, e.cfg.HTTP.Addr, logger)
}

// serveUntil runs server on addr until ctx is cancelled, then shuts it down.
// Requests inherit ctx, so open event streams end when it is cancelled
// instead of holding Shutdown until its deadline.
func serveUntil(ctx context.Context, server *echo.Echo, addr string, logger *log.Logger) error {
	server.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("listening")
		errCh <- server.Start(addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
