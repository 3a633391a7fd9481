package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nhle/company-tasks/internal/model"
	"github.com/nhle/company-tasks/internal/store"
)

type seedOptions struct {
	Company    string
	AdminName  string
	AdminEmail string
	UserName   string
	UserEmail  string
}

type seedResult struct {
	Company *model.Company
	Admin   *model.Profile
	User    *model.Profile
}

func runSeed(args []string, out io.Writer) error {
	fs := newFlagSet("seed")
	var opts seedOptions
	fs.StringVar(&opts.Company, "company", "Example Co", "name of the first company")
	fs.StringVar(&opts.AdminName, "admin-name", "Admin", "admin display name")
	fs.StringVar(&opts.AdminEmail, "admin-email", "", "admin email")
	fs.StringVar(&opts.UserName, "user-name", "", "also create a company user with this name")
	fs.StringVar(&opts.UserEmail, "user-email", "", "company user email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := loadEnv(fs)
	if err != nil {
		return err
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := seed(context.Background(), st, opts)
	if err != nil {
		return err
	}

	e.logger.WithField("company", res.Company.ID).Info("seeded")
	fmt.Fprintf(out, "company %s (%s)\n", res.Company.Name, res.Company.ID)
	fmt.Fprintf(out, "admin   %s (%s)\n", res.Admin.Name, res.Admin.UserID)
	if res.User != nil {
		fmt.Fprintf(out, "user    %s (%s)\n", res.User.Name, res.User.UserID)
	}
	return nil
}

// seed creates the first company and admin. Re-running it is idempotent:
// a company with the same name is reused, and so is an admin or company
// user with the same name and email.
func seed(ctx context.Context, st store.Store, opts seedOptions) (*seedResult, error) {
	company, err := st.CreateCompany(ctx, model.Company{Name: opts.Company, Active: true})
	if errors.Is(err, store.ErrConflict) {
		company, err = findCompany(ctx, st, opts.Company)
	}
	if err != nil {
		return nil, fmt.Errorf("seeding company: %w", err)
	}

	admin, err := ensureProfile(ctx, st, model.Profile{
		Name:  opts.AdminName,
		Email: opts.AdminEmail,
		Role:  model.RoleAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("seeding admin: %w", err)
	}

	res := &seedResult{Company: company, Admin: admin}
	if opts.UserName != "" {
		companyID := company.ID
		res.User, err = ensureProfile(ctx, st, model.Profile{
			Name:      opts.UserName,
			Email:     opts.UserEmail,
			Role:      model.RoleCompanyUser,
			CompanyID: &companyID,
		})
		if err != nil {
			return nil, fmt.Errorf("seeding company user: %w", err)
		}
	}
	return res, nil
}

// ensureProfile returns the existing profile matching want's name, email,
// role and company, creating it when there is none.
func ensureProfile(ctx context.Context, st store.Store, want model.Profile) (*model.Profile, error) {
	profiles, err := st.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		p := profiles[i]
		if p.Name == strings.TrimSpace(want.Name) && p.Email == want.Email &&
			p.Role == want.Role && sameCompanyID(p.CompanyID, want.CompanyID) {
			return &p, nil
		}
	}
	return st.CreateProfile(ctx, want)
}

func sameCompanyID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func findCompany(ctx context.Context, st store.Store, name string) (*model.Company, error) {
	companies, err := st.ListCompanies(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range companies {
		if companies[i].Name == strings.TrimSpace(name) {
			return &companies[i], nil
		}
	}
	return nil, fmt.Errorf("company %q: %w", name, store.ErrNotFound)
}
