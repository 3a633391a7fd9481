package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/company-tasks/internal/auth"
	"github.com/nhle/company-tasks/internal/session"
	"github.com/nhle/company-tasks/internal/store"
	"github.com/nhle/company-tasks/internal/ui/board"
)

func runBoard(args []string) error {
	fs := newFlagSet("board")
	userID := fs.String("user", "", "profile user id to view the board as")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("--user is required")
	}
	e, err := loadEnv(fs)
	if err != nil {
		return err
	}

	// The board owns the terminal, so diagnostics go to a file beside the database.
	logger := e.logger
	logPath := filepath.Join(filepath.Dir(e.cfg.Database.Path), "board.log")
	if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
		defer f.Close()
		logger.SetOutput(f)
	} else {
		logger = quietLogger()
	}
	e.logger = logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	id, err := auth.NewResolver(nil, st).IdentityFor(ctx, *userID)
	if err != nil {
		return err
	}

	sub := hub.Subscribe(store.TableTasks, store.TableCompanies, store.TableComments, store.TableAttachments)
	defer hub.Unsubscribe(sub)

	sess := session.New(st, id, logger)
	p := tea.NewProgram(board.New(sess, st, sub), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
