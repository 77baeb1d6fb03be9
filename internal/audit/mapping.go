package audit

import "strings"

// ActionResource holds action and resource derived from an HTTP route pattern.
type ActionResource struct {
	Action   string
	Resource string
}

// Route overrides: audited with a domain verb instead of the generic create/update.
var routeOverrides = map[string]ActionResource{
	"POST /login":                 {Action: "login", Resource: "session"},
	"POST /logout":                {Action: "logout", Resource: "session"},
	"POST /register":              {Action: "register", Resource: "account"},
	"POST /register/company":      {Action: "create", Resource: "company"},
	"POST /settings":              {Action: "update", Resource: "company"},
	"POST /properties/{id}/units": {Action: "add_unit", Resource: "property"},
}

// resourceNames maps the first path segment to the audited resource.
var resourceNames = map[string]string{
	"properties":  "property",
	"work-orders": "work_order",
	"invoices":    "invoice",
	"toasts":      "toast",
	"settings":    "company",
}

// ParseRoute returns action and resource for a ServeMux pattern such as "POST /invoices/{id}/pay".
// Action is a verb: get for reads, create for POST to a collection or "new" form, update for POST to an item,
// or the trailing path segment (pay, delete, status) for item sub-actions.
func ParseRoute(pattern string) ActionResource {
	if ar, ok := routeOverrides[pattern]; ok {
		return ar
	}
	method, path, found := strings.Cut(pattern, " ")
	if !found {
		path, method = pattern, ""
	}
	segs := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(segs) == 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	resource, ok := resourceNames[segs[0]]
	if !ok {
		resource = strings.ReplaceAll(segs[0], "-", "_")
	}
	if method == "GET" || method == "" {
		return ActionResource{Action: "get", Resource: resource}
	}
	switch {
	case len(segs) == 1:
		return ActionResource{Action: "create", Resource: resource}
	case segs[1] == "new":
		if len(segs) > 2 {
			return ActionResource{Action: segs[2], Resource: resource}
		}
		return ActionResource{Action: "create", Resource: resource}
	case len(segs) == 2:
		return ActionResource{Action: "update", Resource: resource}
	}
	action := segs[len(segs)-1]
	if action == "status" {
		action = "update_status"
	}
	return ActionResource{Action: action, Resource: resource}
}

// Audited reports whether requests to pattern change state and should be audited.
// Toast dismissals and live previews are excluded.
func Audited(pattern string) bool {
	if !strings.HasPrefix(pattern, "POST ") {
		return false
	}
	return !strings.HasPrefix(pattern, "POST /toasts/") && !strings.HasSuffix(pattern, "/preview")
}
