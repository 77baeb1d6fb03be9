package rbac

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"maintenance-manager/console/internal/audit"
	"maintenance-manager/console/internal/session"
	sessiondomain "maintenance-manager/console/internal/session/domain"
)

// Redirect targets for gate decisions.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// GateOptions configures Gate. All fields are optional.
type GateOptions struct {
	// RevalidateInterval triggers a silent identity re-check before deciding when the last one is older; 0 disables.
	RevalidateInterval time.Duration
	// Audit records forbidden decisions.
	Audit audit.AuditLogger
	// OnDecision is called with the route path and the decision of every gated request.
	OnDecision func(route string, d Decision)
	// Pending renders the waiting page for HTML clients. Defaults to a self-refreshing page.
	Pending http.Handler
	// Policy, when set, decides page access for signed-in users in place of the static allow-list.
	Policy Policy
}

// Gate returns middleware that admits a request to route only when the client's session is authorized.
// The decision is re-evaluated on every request. Requests without a session store are unauthenticated.
func Gate(route Route, opts GateOptions) func(http.Handler) http.Handler {
	pending := opts.Pending
	if pending == nil {
		pending = http.HandlerFunc(defaultPending)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if route.Public {
				next.ServeHTTP(w, r)
				return
			}
			state := sessiondomain.LoggedOut()
			if store, ok := session.FromContext(r.Context()); ok {
				store.Revalidate(r.Context(), opts.RevalidateInterval)
				state = store.State()
			}
			d := Evaluate(r.Context(), state, route, opts.Policy)
			if opts.OnDecision != nil {
				opts.OnDecision(route.Path, d)
			}
			switch d {
			case Pending:
				if wantsJSON(r) {
					writeDecisionJSON(w, http.StatusAccepted, d, "")
					return
				}
				pending.ServeHTTP(w, r)
			case Unauthenticated:
				redirect(w, r, d, LoginPath)
			case Forbidden:
				if opts.Audit != nil {
					opts.Audit.LogEvent(r.Context(), strconv.FormatInt(state.User.CompanyID, 10), strconv.FormatInt(state.User.ID, 10), "forbidden", "page", r.URL.Path)
				}
				redirect(w, r, d, DashboardPath)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// Target returns where a decision sends the browser: the login page, the dashboard, or "" to stay.
func Target(d Decision) string {
	switch d {
	case Unauthenticated:
		return LoginPath
	case Forbidden:
		return DashboardPath
	default:
		return ""
	}
}

func redirect(w http.ResponseWriter, r *http.Request, d Decision, to string) {
	if wantsJSON(r) {
		writeDecisionJSON(w, http.StatusUnauthorized, d, to)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

type decisionBody struct {
	Decision string `json:"decision"`
	Location string `json:"location,omitempty"`
}

func writeDecisionJSON(w http.ResponseWriter, status int, d Decision, location string) {
	if d == Forbidden {
		status = http.StatusForbidden
	}
	w.Header().Set("Content-Type", "application/json")
	if location != "" {
		w.Header().Set("Location", location)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(decisionBody{Decision: d.String(), Location: location})
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return accept == "application/json" || r.Header.Get("X-Requested-With") == "fetch"
}

const pendingPage = `<!doctype html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>Loading</title></head>
<body><div class="spinner" role="status" aria-label="Loading"></div></body></html>
`

func defaultPending(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(pendingPage))
}
