package rbac

import (
	"context"
	"errors"
	"testing"

	sessiondomain "maintenance-manager/console/internal/session/domain"
	userdomain "maintenance-manager/console/internal/user/domain"
)

func stateFor(role userdomain.Role) sessiondomain.State {
	return sessiondomain.State{User: &userdomain.User{ID: 1, Role: role}, Token: "tok"}
}

func TestDecide(t *testing.T) {
	admin := []userdomain.Role{userdomain.RoleAdmin}
	testCases := []struct {
		name    string
		state   sessiondomain.State
		allowed []userdomain.Role
		want    Decision
	}{
		{"loading", sessiondomain.Pending(), nil, Pending},
		{"loading ignores allow-list", sessiondomain.Pending(), admin, Pending},
		{"no user", sessiondomain.LoggedOut(), nil, Unauthenticated},
		{"no user with allow-list", sessiondomain.LoggedOut(), admin, Unauthenticated},
		{"any role when unrestricted", stateFor(userdomain.RoleTech), nil, Authorized},
		{"empty allow-list", stateFor(userdomain.RoleTech), []userdomain.Role{}, Authorized},
		{"role not allowed", stateFor(userdomain.RolePropertyManager), admin, Forbidden},
		{"role allowed", stateFor(userdomain.RoleAdmin), admin, Authorized},
		{"no hierarchy", stateFor(userdomain.RoleAdmin), []userdomain.Role{userdomain.RoleTech}, Forbidden},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.state, tc.allowed); got != tc.want {
				t.Errorf("Decide = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDecide_IsPure(t *testing.T) {
	st := stateFor(userdomain.RoleTech)
	allowed := []userdomain.Role{userdomain.RoleAdmin}
	first := Decide(st, allowed)
	for i := 0; i < 3; i++ {
		if got := Decide(st, allowed); got != first {
			t.Fatalf("Decide changed between calls: %v then %v", first, got)
		}
	}
}

func TestDecisionString(t *testing.T) {
	for d, want := range map[Decision]string{Pending: "pending", Unauthenticated: "unauthenticated", Forbidden: "forbidden", Authorized: "authorized", Decision(99): "unknown"} {
		if got := d.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(d), got, want)
		}
	}
}

func TestLookup(t *testing.T) {
	testCases := []struct {
		path string
		want string
		ok   bool
	}{
		{"/dashboard", "/dashboard", true},
		{"/work-orders/new", "/work-orders/new", true},
		{"/work-orders/42", "/work-orders/{id}", true},
		{"/work-orders/42/", "/work-orders/{id}", true},
		{"/invoices/new", "/invoices/new", true},
		{"/invoices/9", "/invoices/{id}", true},
		{"/settings", "/settings", true},
		{"/login", "/login", true},
		{"/invoices/9/pay", "", false},
		{"/nope", "", false},
		{"/", "", false},
	}
	for _, tc := range testCases {
		r, ok := Lookup(tc.path)
		if ok != tc.ok || r.Path != tc.want {
			t.Errorf("Lookup(%q) = %q, %v; want %q, %v", tc.path, r.Path, ok, tc.want, tc.ok)
		}
	}
}

func TestRouteTable(t *testing.T) {
	testCases := []struct {
		route Route
		role  userdomain.Role
		want  bool
	}{
		{Dashboard, userdomain.RoleTech, true},
		{Properties, userdomain.RoleTech, false},
		{Properties, userdomain.RolePropertyManager, true},
		{WorkOrders, userdomain.RoleTech, true},
		{NewWorkOrder, userdomain.RoleTech, false},
		{WorkOrder, userdomain.RoleTech, true},
		{Invoices, userdomain.RoleTech, false},
		{Invoice, userdomain.RoleAdmin, true},
		{Settings, userdomain.RolePropertyManager, false},
		{Settings, userdomain.RoleAdmin, true},
	}
	for _, tc := range testCases {
		if got := Allows(tc.role, tc.route.AllowedRoles); got != tc.want {
			t.Errorf("Allows(%s, %s) = %v, want %v", tc.role, tc.route.Path, got, tc.want)
		}
	}
}

type fakePolicy struct {
	allow bool
	err   error
	calls int
}

func (p *fakePolicy) AllowPage(ctx context.Context, role userdomain.Role, route string, allowed []userdomain.Role) (bool, error) {
	p.calls++
	return p.allow, p.err
}

func TestEvaluate(t *testing.T) {
	testCases := []struct {
		name      string
		state     sessiondomain.State
		route     Route
		policy    *fakePolicy
		want      Decision
		wantCalls int
	}{
		{"no policy", stateFor(userdomain.RoleTech), Invoices, nil, Forbidden, 0},
		{"policy grants", stateFor(userdomain.RoleTech), Invoices, &fakePolicy{allow: true}, Authorized, 1},
		{"policy denies", stateFor(userdomain.RoleAdmin), Invoices, &fakePolicy{allow: false}, Forbidden, 1},
		{"policy error keeps allow-list", stateFor(userdomain.RoleAdmin), Invoices, &fakePolicy{err: errors.New("boom")}, Authorized, 1},
		{"pending skips policy", sessiondomain.Pending(), Invoices, &fakePolicy{allow: true}, Pending, 0},
		{"signed out skips policy", sessiondomain.LoggedOut(), Invoices, &fakePolicy{allow: true}, Unauthenticated, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var policy Policy
			if tc.policy != nil {
				policy = tc.policy
			}
			if got := Evaluate(context.Background(), tc.state, tc.route, policy); got != tc.want {
				t.Errorf("Evaluate = %v, want %v", got, tc.want)
			}
			if tc.policy != nil && tc.policy.calls != tc.wantCalls {
				t.Errorf("policy calls = %d, want %d", tc.policy.calls, tc.wantCalls)
			}
		})
	}
}
