package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the closed set of console roles issued by the maintenance API.
type Role string

const (
	RoleAdmin           Role = "ADMIN"
	RolePropertyManager Role = "PROPERTY_MANAGER"
	RoleTech            Role = "TECH"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RolePropertyManager, RoleTech}

// ParseRole returns the Role for s, or an error if s is not one of the known roles.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePropertyManager, RoleTech:
		return true
	}
	return false
}

// Label returns the display name of the role.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RolePropertyManager:
		return "Property Manager"
	case RoleTech:
		return "Technician"
	}
	return string(r)
}

// UnmarshalJSON rejects roles outside the closed set, so an unexpected identity payload fails to decode.
func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is the authenticated console user as returned by GET /auth/me.
// The session owns it and replaces it wholesale; callers must not mutate fields.
type User struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email"`
	Role        Role    `json:"role"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Phone       *string `json:"phone"`
	CompanyID   int64   `json:"companyId"`
	CompanyName string  `json:"companyName"`
	Enabled     bool    `json:"enabled"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

// FullName returns "First Last", trimmed.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasRole reports whether the user's role is one of roles (exact match).
func (u *User) HasRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
