// Package nav is the console's role-filtered navigation menu.
package nav

import (
	"slices"

	userdomain "maintenance-manager/console/internal/user/domain"
)

// Item is a menu entry and the roles that see it.
type Item struct {
	Path  string
	Label string
	Roles []userdomain.Role
}

var everyone = []userdomain.Role{userdomain.RoleAdmin, userdomain.RolePropertyManager, userdomain.RoleTech}

// Items is the menu in display order.
var Items = []Item{
	{Path: "/dashboard", Label: "Dashboard", Roles: everyone},
	{Path: "/properties", Label: "Properties", Roles: []userdomain.Role{userdomain.RoleAdmin, userdomain.RolePropertyManager}},
	{Path: "/work-orders", Label: "Work Orders", Roles: everyone},
	{Path: "/invoices", Label: "Billing", Roles: []userdomain.Role{userdomain.RoleAdmin, userdomain.RolePropertyManager}},
	{Path: "/settings", Label: "Settings", Roles: []userdomain.Role{userdomain.RoleAdmin}},
}

// Visible returns the items whose role set contains the user's role. A nil user sees nothing.
func Visible(user *userdomain.User) []Item {
	if user == nil {
		return nil
	}
	out := make([]Item, 0, len(Items))
	for _, it := range Items {
		if slices.Contains(it.Roles, user.Role) {
			out = append(out, it)
		}
	}
	return out
}

// Active reports whether the item is the section of path (e.g. /work-orders for /work-orders/12).
func (it Item) Active(path string) bool {
	return path == it.Path || len(path) > len(it.Path) && path[:len(it.Path)] == it.Path && path[len(it.Path)] == '/'
}
