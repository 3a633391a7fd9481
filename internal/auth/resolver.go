package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/company-tasks/internal/filter"
	"github.com/nhle/company-tasks/internal/model"
	"github.com/nhle/company-tasks/internal/store"
)

// ProfileGetter looks up stored profiles.
type ProfileGetter interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// Resolver turns a bearer token into the caller's Identity.
type Resolver struct {
	auth     Authenticator
	profiles ProfileGetter
}

// NewResolver creates a Resolver.
func NewResolver(a Authenticator, profiles ProfileGetter) *Resolver {
	return &Resolver{auth: a, profiles: profiles}
}

// CurrentIdentity verifies the Authorization header and loads the caller's
// profile. A valid token without a profile is unauthorized.
func (r *Resolver) CurrentIdentity(ctx context.Context, authHeader string) (*model.Identity, error) {
	userID, err := r.auth.UserIDFromAuthHeader(authHeader)
	if err != nil {
		return nil, err
	}
	return r.IdentityFor(ctx, userID)
}

// IdentityFor loads the identity of a known user ID.
func (r *Resolver) IdentityFor(ctx context.Context, userID string) (*model.Identity, error) {
	profile, err := r.profiles.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: no profile for %s", filter.ErrUnauthorized, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", userID, err)
	}

	id := profile.Identity()
	if err := filter.CheckIdentity(id); err != nil {
		return nil, err
	}
	return id, nil
}
