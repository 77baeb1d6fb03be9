package domain

import userdomain "maintenance-manager/console/internal/user/domain"

// State is the authentication state of one console client.
// When Loading is false, User and Token are either both set or both empty.
type State struct {
	User    *userdomain.User
	Token   string
	Loading bool
}

// Pending is the state of a store that has not finished its startup hydration.
func Pending() State { return State{Loading: true} }

// LoggedOut is the resolved state with no user.
func LoggedOut() State { return State{} }

// Authenticated reports whether the state is resolved and carries a user.
func (s State) Authenticated() bool {
	return !s.Loading && s.User != nil && s.Token != ""
}

// Role returns the user's role, or "" when there is no user.
func (s State) Role() userdomain.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}
