package nav

import (
	"testing"

	"maintenance-manager/console/internal/platform/rbac"
	userdomain "maintenance-manager/console/internal/user/domain"
)

func labels(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func TestVisible(t *testing.T) {
	testCases := []struct {
		name string
		user *userdomain.User
		want []string
	}{
		{"nil user", nil, []string{}},
		{"admin", &userdomain.User{Role: userdomain.RoleAdmin}, []string{"Dashboard", "Properties", "Work Orders", "Billing", "Settings"}},
		{"property manager", &userdomain.User{Role: userdomain.RolePropertyManager}, []string{"Dashboard", "Properties", "Work Orders", "Billing"}},
		{"tech", &userdomain.User{Role: userdomain.RoleTech}, []string{"Dashboard", "Work Orders"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := labels(Visible(tc.user))
			if len(got) != len(tc.want) {
				t.Fatalf("Visible = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("Visible[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

// Every visible item must also pass the page gate, or the menu would link to a redirect.
func TestVisible_AgreesWithGate(t *testing.T) {
	for _, role := range []userdomain.Role{userdomain.RoleAdmin, userdomain.RolePropertyManager, userdomain.RoleTech} {
		for _, it := range Visible(&userdomain.User{Role: role}) {
			route, ok := rbac.Lookup(it.Path)
			if !ok {
				t.Errorf("%s: no route for %s", role, it.Path)
				continue
			}
			if !rbac.Allows(role, route.AllowedRoles) {
				t.Errorf("%s sees %s but the gate forbids it", role, it.Path)
			}
		}
	}
}

func TestItemActive(t *testing.T) {
	it := Item{Path: "/work-orders"}
	testCases := []struct {
		path string
		want bool
	}{
		{"/work-orders", true},
		{"/work-orders/12", true},
		{"/work-orders-archive", false},
		{"/dashboard", false},
	}
	for _, tc := range testCases {
		if got := it.Active(tc.path); got != tc.want {
			t.Errorf("Active(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
