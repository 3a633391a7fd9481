package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/company-tasks/internal/model"
)

const profileColumns = "user_id, name, email, role, company_id, created_at"

// CreateProfile inserts a user profile. A company_user must reference an
// existing company; an admin never carries one.
func (s *SQLiteStore) CreateProfile(ctx context.Context, profile model.Profile) (*model.Profile, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	if profile.Name == "" {
		return nil, fmt.Errorf("profile name must not be empty: %w", ErrInvalid)
	}
	if !profile.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", profile.Role, ErrInvalid)
	}

	switch profile.Role {
	case model.RoleAdmin:
		profile.CompanyID = nil
	case model.RoleCompanyUser:
		if profile.CompanyID == nil || *profile.CompanyID == "" {
			return nil, fmt.Errorf("company users need a company: %w", ErrInvalid)
		}
		if _, err := s.GetCompany(ctx, *profile.CompanyID); err != nil {
			return nil, fmt.Errorf("profile company: %w", err)
		}
	}

	if profile.UserID == "" {
		profile.UserID = uuid.New().String()
	}
	profile.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, name, email, role, company_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		profile.UserID, profile.Name, profile.Email, string(profile.Role),
		profile.CompanyID, profile.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("profile %s already exists: %w", profile.UserID, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	s.notify(TableProfiles)
	return &profile, nil
}

// GetProfile retrieves a profile by user ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var profile model.Profile
	err := s.db.GetContext(ctx, &profile,
		"SELECT "+profileColumns+" FROM profiles WHERE user_id = ?", userID)
	if err != nil {
		return nil, lookupErr(err, "profile", userID)
	}
	return &profile, nil
}

// ListProfiles returns every profile ordered by name.
func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	profiles := []model.Profile{}
	err := s.db.SelectContext(ctx, &profiles,
		"SELECT "+profileColumns+" FROM profiles ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	return profiles, nil
}

// DeleteProfile removes a profile. Tasks and comments keep the user ID.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("deleting profile %s: %w", userID, err)
	}
	if err := rowsAffected(result, "profile", userID); err != nil {
		return err
	}

	s.notify(TableProfiles)
	return nil
}
