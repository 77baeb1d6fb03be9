package rbac

import (
	"strings"

	userdomain "maintenance-manager/console/internal/user/domain"
)

// Route is a console page and the roles allowed to see it. Public routes skip the gate entirely.
type Route struct {
	Path         string
	AllowedRoles []userdomain.Role
	Public       bool
}

var managers = []userdomain.Role{userdomain.RoleAdmin, userdomain.RolePropertyManager}

// Console routes.
var (
	Login        = Route{Path: "/login", Public: true}
	Register     = Route{Path: "/register", Public: true}
	Dashboard    = Route{Path: "/dashboard"}
	Properties   = Route{Path: "/properties", AllowedRoles: managers}
	WorkOrders   = Route{Path: "/work-orders"}
	NewWorkOrder = Route{Path: "/work-orders/new", AllowedRoles: managers}
	WorkOrder    = Route{Path: "/work-orders/{id}"}
	Invoices     = Route{Path: "/invoices", AllowedRoles: managers}
	NewInvoice   = Route{Path: "/invoices/new", AllowedRoles: managers}
	Invoice      = Route{Path: "/invoices/{id}", AllowedRoles: managers}
	Settings     = Route{Path: "/settings", AllowedRoles: []userdomain.Role{userdomain.RoleAdmin}}
)

// ConsoleRoutes is the static route table.
var ConsoleRoutes = []Route{Login, Register, Dashboard, Properties, WorkOrders, NewWorkOrder, WorkOrder, Invoices, NewInvoice, Invoice, Settings}

// Lookup returns the route whose path matches path. Literal segments win over {param} segments,
// so /work-orders/new resolves to NewWorkOrder rather than WorkOrder.
func Lookup(path string) (Route, bool) {
	segs := splitPath(path)
	best, bestScore := Route{}, -1
	for _, r := range ConsoleRoutes {
		score, ok := match(splitPath(r.Path), segs)
		if ok && score > bestScore {
			best, bestScore = r, score
		}
	}
	return best, bestScore >= 0
}

func match(pattern, segs []string) (int, bool) {
	if len(pattern) != len(segs) {
		return 0, false
	}
	literal := 0
	for i, p := range pattern {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			if segs[i] == "" {
				return 0, false
			}
			continue
		}
		if p != segs[i] {
			return 0, false
		}
		literal++
	}
	return literal, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
