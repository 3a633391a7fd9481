package model

import "time"

// Role is the authorization class of an identity.
type Role string

// Role constants.
const (
	RoleAdmin       Role = "admin"
	RoleCompanyUser Role = "company_user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCompanyUser
}

// Identity is the authenticated actor behind a request or view session.
// A company_user is bound to exactly one company; an admin has none.
type Identity struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
}

// IsAdmin reports whether the identity has the admin role.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == RoleAdmin
}

// Profile is the stored account record an Identity is derived from.
type Profile struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      Role      `json:"role" db:"role"`
	CompanyID *string   `json:"company_id,omitempty" db:"company_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Identity converts the profile into the identity used for authorization.
func (p Profile) Identity() *Identity {
	id := &Identity{
		UserID: p.UserID,
		Name:   p.Name,
		Role:   p.Role,
	}
	if p.Role == RoleCompanyUser && p.CompanyID != nil {
		id.CompanyID = *p.CompanyID
	}
	return id
}
