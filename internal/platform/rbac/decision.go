// Package rbac decides whether a console client may see a page, and enforces that decision over HTTP.
package rbac

import (
	"context"
	"log"
	"slices"

	sessiondomain "maintenance-manager/console/internal/session/domain"
	userdomain "maintenance-manager/console/internal/user/domain"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	// Pending means the session is still hydrating; show a waiting indicator and do not redirect.
	Pending Decision = iota
	// Unauthenticated means there is no user; go to the login page.
	Unauthenticated
	// Forbidden means the user's role is not allowed; go to the dashboard.
	Forbidden
	// Authorized means the page may be shown.
	Authorized
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Decide evaluates state against an allow-list. A nil or empty allow-list admits any authenticated role.
// Roles match exactly; there is no hierarchy.
func Decide(state sessiondomain.State, allowed []userdomain.Role) Decision {
	if state.Loading {
		return Pending
	}
	if state.User == nil {
		return Unauthenticated
	}
	if !Allows(state.User.Role, allowed) {
		return Forbidden
	}
	return Authorized
}

// Allows reports whether role passes allowed. A nil or empty allow-list admits every role.
func Allows(role userdomain.Role, allowed []userdomain.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	return slices.Contains(allowed, role)
}

// Policy is an external page-access policy. When a gate has one, it has the final say for signed-in users.
type Policy interface {
	AllowPage(ctx context.Context, role userdomain.Role, route string, allowed []userdomain.Role) (bool, error)
}

// Evaluate is Decide with policy consulted for resolved, signed-in sessions. A nil policy leaves Decide's result.
// A policy error is logged and the static allow-list decision stands.
func Evaluate(ctx context.Context, state sessiondomain.State, route Route, policy Policy) Decision {
	d := Decide(state, route.AllowedRoles)
	if policy == nil || (d != Authorized && d != Forbidden) {
		return d
	}
	ok, err := policy.AllowPage(ctx, state.User.Role, route.Path, route.AllowedRoles)
	if err != nil {
		log.Printf("rbac: page policy for %s: %v", route.Path, err)
		return d
	}
	if ok {
		return Authorized
	}
	return Forbidden
}
