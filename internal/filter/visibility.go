package filter

import (
	"fmt"

	"github.com/nhle/company-tasks/internal/model"
)

// Visibility is the authorization-derived subset of records an identity
// may see, before any user-chosen filtering.
type Visibility struct {
	Companies []model.Company
	Tasks     []model.Task
}

// CheckIdentity validates the shape of an identity: present, with a known
// role, and with a company when the role is company_user.
func CheckIdentity(id *model.Identity) error {
	if id == nil {
		return fmt.Errorf("%w: no identity", ErrUnauthorized)
	}
	switch id.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleCompanyUser:
		if id.CompanyID == "" {
			return fmt.Errorf("%w: company user %q has no company", ErrUnauthorized, id.UserID)
		}
		return nil
	default:
		return fmt.Errorf("%w: invalid role %q", ErrUnauthorized, id.Role)
	}
}

// Visible returns the companies and tasks id is allowed to view. Admins see
// everything; a company user sees only its own company and that company's
// tasks. Input order is preserved. A malformed identity yields zero
// visibility and an error wrapping ErrUnauthorized.
func Visible(companies []model.Company, tasks []model.Task, id *model.Identity) (Visibility, error) {
	if err := CheckIdentity(id); err != nil {
		return Visibility{Companies: []model.Company{}, Tasks: []model.Task{}}, err
	}

	if id.Role == model.RoleAdmin {
		return Visibility{
			Companies: append(make([]model.Company, 0, len(companies)), companies...),
			Tasks:     append(make([]model.Task, 0, len(tasks)), tasks...),
		}, nil
	}

	vis := Visibility{
		Companies: make([]model.Company, 0, 1),
		Tasks:     make([]model.Task, 0),
	}
	for _, c := range companies {
		if c.ID == id.CompanyID {
			vis.Companies = append(vis.Companies, c)
		}
	}
	for _, t := range tasks {
		if t.CompanyID == id.CompanyID {
			vis.Tasks = append(vis.Tasks, t)
		}
	}
	return vis, nil
}

// CanSeeTask reports whether id may view t.
func CanSeeTask(id *model.Identity, t model.Task) bool {
	if CheckIdentity(id) != nil {
		return false
	}
	return id.Role == model.RoleAdmin || t.CompanyID == id.CompanyID
}

// CanEditTask reports whether id may change t's status, archive it, or add
// comments and attachments.
func CanEditTask(id *model.Identity, t model.Task) bool {
	return CanSeeTask(id, t)
}

// CanChangePriority reports whether id may reprioritize tasks.
func CanChangePriority(id *model.Identity) bool {
	return CheckIdentity(id) == nil && id.Role == model.RoleAdmin
}

// CanManageSettings reports whether id may manage companies and profiles.
func CanManageSettings(id *model.Identity) bool {
	return CanChangePriority(id)
}

// TaskCompanyFor resolves the company a new task is filed under. Admins
// choose freely and must name one; company users are always pinned to their
// own company regardless of the request.
func TaskCompanyFor(id *model.Identity, requested string) (string, error) {
	if err := CheckIdentity(id); err != nil {
		return "", err
	}
	if id.Role == model.RoleCompanyUser {
		return id.CompanyID, nil
	}
	if requested == "" {
		return "", ErrCompanyRequired
	}
	return requested, nil
}

// ArchivedScope returns the company restriction for the archived listing:
// the sidebar selection when present, else the company user's own company,
// else none. The result is still passed through Visible, so a company user
// selecting a foreign company sees nothing.
func ArchivedScope(id *model.Identity, sidebar *string) *string {
	if sidebar != nil && *sidebar != "" {
		s := *sidebar
		return &s
	}
	if id != nil && id.Role == model.RoleCompanyUser && id.CompanyID != "" {
		s := id.CompanyID
		return &s
	}
	return nil
}
