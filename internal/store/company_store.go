package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/company-tasks/internal/model"
)

const companyColumns = "id, name, is_active, created_at"

// CreateCompany inserts a new active company. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateCompany(ctx context.Context, company model.Company) (*model.Company, error) {
	company.Name = strings.TrimSpace(company.Name)
	if company.Name == "" {
		return nil, fmt.Errorf("company name must not be empty: %w", ErrInvalid)
	}
	if company.ID == "" {
		company.ID = uuid.New().String()
	}
	company.Active = true
	company.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, is_active, created_at)
		VALUES (?, ?, ?, ?)`,
		company.ID, company.Name, boolToInt(company.Active), company.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("company %q already exists: %w", company.Name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating company: %w", err)
	}

	s.notify(TableCompanies)
	return &company, nil
}

// UpdateCompany renames an existing company.
func (s *SQLiteStore) UpdateCompany(ctx context.Context, company model.Company) error {
	name := strings.TrimSpace(company.Name)
	if name == "" {
		return fmt.Errorf("company name must not be empty: %w", ErrInvalid)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE companies SET name = ? WHERE id = ?", name, company.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("company %q already exists: %w", name, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("updating company %s: %w", company.ID, err)
	}
	if err := rowsAffected(result, "company", company.ID); err != nil {
		return err
	}

	s.notify(TableCompanies)
	return nil
}

// SetCompanyActive deactivates or reactivates a company. Inactive companies
// disappear from the sidebar but keep their tasks.
func (s *SQLiteStore) SetCompanyActive(ctx context.Context, id string, active bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE companies SET is_active = ? WHERE id = ?", boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("setting company %s active=%t: %w", id, active, err)
	}
	if err := rowsAffected(result, "company", id); err != nil {
		return err
	}

	s.notify(TableCompanies)
	return nil
}

// DeleteCompany removes a company. It is refused while any task or profile
// still references the company.
func (s *SQLiteStore) DeleteCompany(ctx context.Context, id string) error {
	var refs struct {
		Tasks    int `db:"tasks"`
		Profiles int `db:"profiles"`
	}
	err := s.db.GetContext(ctx, &refs, `
		SELECT
			(SELECT COUNT(*) FROM tasks WHERE company_id = ?) AS tasks,
			(SELECT COUNT(*) FROM profiles WHERE company_id = ?) AS profiles`,
		id, id,
	)
	if err != nil {
		return fmt.Errorf("counting references to company %s: %w", id, err)
	}
	if refs.Tasks > 0 || refs.Profiles > 0 {
		return fmt.Errorf("company %s still has %d tasks and %d users: %w",
			id, refs.Tasks, refs.Profiles, ErrConflict)
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM companies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting company %s: %w", id, err)
	}
	if err := rowsAffected(result, "company", id); err != nil {
		return err
	}

	s.notify(TableCompanies)
	return nil
}

// GetCompany retrieves a single company by ID.
func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var company model.Company
	err := s.db.GetContext(ctx, &company,
		"SELECT "+companyColumns+" FROM companies WHERE id = ?", id)
	if err != nil {
		return nil, lookupErr(err, "company", id)
	}
	return &company, nil
}

// ListCompanies returns companies ordered by name, optionally only the active ones.
func (s *SQLiteStore) ListCompanies(ctx context.Context, activeOnly bool) ([]model.Company, error) {
	query := "SELECT " + companyColumns + " FROM companies"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY name"

	companies := []model.Company{}
	if err := s.db.SelectContext(ctx, &companies, query); err != nil {
		return nil, fmt.Errorf("querying companies: %w", err)
	}
	return companies, nil
}
