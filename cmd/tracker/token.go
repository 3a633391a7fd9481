package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nhle/company-tasks/internal/auth"
	"github.com/nhle/company-tasks/internal/store"
)

func runToken(args []string, out io.Writer) error {
	fs := newFlagSet("token")
	userID := fs.String("user", "", "profile user id the token is issued for")
	ttl := fs.Duration("ttl", 0, "token lifetime (default auth.token_ttl_min)")
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
	if e.cfg.Auth.Mode != auth.ModeHS256 {
		return fmt.Errorf("tokens can only be minted in %s mode", auth.ModeHS256)
	}

	secret, err := e.signingSecret()
	if err != nil {
		return err
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = time.Duration(e.cfg.Auth.TokenTTLMin) * time.Minute
	}
	tok, err := mintToken(context.Background(), st, []byte(secret), e.cfg.Auth.Audience, *userID, lifetime)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tok)
	return nil
}

// mintToken issues a token for an existing profile only, so a typo in
// --user fails here rather than at the first request.
func mintToken(ctx context.Context, st store.Store, secret []byte, audience, userID string, ttl time.Duration) (string, error) {
	if _, err := st.GetProfile(ctx, userID); err != nil {
		return "", err
	}
	return auth.IssueToken(secret, userID, audience, ttl)
}
