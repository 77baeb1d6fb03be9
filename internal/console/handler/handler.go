// Package handler holds the console's page controllers: server-rendered pages over the maintenance API.
package handler

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"maintenance-manager/console/internal/audit"
	"maintenance-manager/console/internal/console/nav"
	"maintenance-manager/console/internal/gateway"
	mdomain "maintenance-manager/console/internal/maintenance/domain"
	"maintenance-manager/console/internal/metrics"
	"maintenance-manager/console/internal/platform/ratelimit"
	"maintenance-manager/console/internal/platform/rbac"
	"maintenance-manager/console/internal/session"
	"maintenance-manager/console/internal/toast"
	userdomain "maintenance-manager/console/internal/user/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Deps holds what the page controllers need. API is required; the rest is optional.
type Deps struct {
	API *gateway.API
	// Audit records login, registration and logout events.
	Audit audit.AuditLogger
	// Metrics counts login attempts and gate decisions.
	Metrics *metrics.ConsoleMetrics
	// LoginLimiter throttles login attempts per client IP. Nil disables throttling.
	LoginLimiter *ratelimit.KeyedLimiter
	// RevalidateInterval is passed to the gate for silent identity re-checks.
	RevalidateInterval time.Duration
	// Policy refines the static page allow-lists. Nil uses the allow-lists alone.
	Policy rbac.Policy
	// Health serves /healthz. Nil serves a static ok.
	Health http.Handler
	// Now is the clock used for form defaults. Defaults to time.Now.
	Now func() time.Time
	// SSEHeartbeat is the keep-alive interval of /session/events. Defaults to 25s.
	SSEHeartbeat time.Duration
}

// Handler renders console pages and handles their form submissions.
type Handler struct {
	api       *gateway.API
	audit     audit.AuditLogger
	metrics   *metrics.ConsoleMetrics
	limiter   *ratelimit.KeyedLimiter
	pages     map[string]*template.Template
	submits   *inflight
	forms     *clientForms
	nowF      func() time.Time
	heartbeat time.Duration
	deps      Deps
}

// New parses the page templates and returns a Handler.
func New(deps Deps) (*Handler, error) {
	if deps.API == nil {
		return nil, fmt.Errorf("handler: API is required")
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	hb := deps.SSEHeartbeat
	if hb <= 0 {
		hb = 25 * time.Second
	}
	return &Handler{
		api:       deps.API,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		limiter:   deps.LoginLimiter,
		pages:     pages,
		submits:   &inflight{active: make(map[string]struct{})},
		forms:     &clientForms{byClient: make(map[string]*clientForm)},
		nowF:      now,
		heartbeat: hb,
		deps:      deps,
	}, nil
}

var funcs = template.FuncMap{
	"money": mdomain.FormatCents,
	"deref": mdomain.Deref,
	"date": func(t mdomain.Timestamp) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"assigned": func(current *int64, id int64) bool {
		return current != nil && *current == id
	},
}

func parsePages() (map[string]*template.Template, error) {
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		if name == "templates/layout.html" {
			continue
		}
		t, err := template.Must(layout.Clone()).ParseFS(templateFS, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name[len("templates/"):len(name)-len(".html")]] = t
	}
	return pages, nil
}

// page is the data every template receives.
type page struct {
	Title  string
	Path   string
	User   *userdomain.User
	Nav    []nav.Item
	Toasts []toast.Toast
	Data   any
}

// render executes the named page into a buffer and writes it with status.
// Toasts are read after the controller ran so messages it raised show on this page.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	t, ok := h.pages[name]
	if !ok {
		log.Printf("handler: unknown page %q", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	user := currentUser(r)
	p := page{
		Title:  title,
		Path:   r.URL.Path,
		User:   user,
		Nav:    nav.Visible(user),
		Toasts: toast.FromContext(r.Context()).List(),
		Data:   data,
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		log.Printf("handler: render %s: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func currentUser(r *http.Request) *userdomain.User {
	if store, ok := session.FromContext(r.Context()); ok {
		return store.State().User
	}
	return nil
}

// apiContext returns the request context carrying the client's bearer token, if any.
func apiContext(r *http.Request) context.Context {
	if store, ok := session.FromContext(r.Context()); ok {
		if token := store.State().Token; token != "" {
			return gateway.WithToken(r.Context(), token)
		}
	}
	return r.Context()
}

func toasts(r *http.Request) *toast.Notifier { return toast.FromContext(r.Context()) }

func seeOther(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// pathID returns the {id} path value, or 0 when it is not a positive integer.
func pathID(r *http.Request) int64 {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func clientID(r *http.Request) string {
	if store, ok := session.FromContext(r.Context()); ok {
		return store.ClientID()
	}
	return ""
}

// inflight is the per-client, per-form submitting flag.
type inflight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// begin marks form as submitting for the client. It returns false when a submission is already in flight.
func (f *inflight) begin(client, form string) (func(), bool) {
	key := client + "\x00" + form
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[key]; busy {
		return nil, false
	}
	f.active[key] = struct{}{}
	return func() {
		f.mu.Lock()
		delete(f.active, key)
		f.mu.Unlock()
	}, true
}

// guard runs submit unless the same form of the same client is already being submitted,
// in which case the request is rejected with 409 and nothing is sent to the API.
func (h *Handler) guard(w http.ResponseWriter, r *http.Request, form string, submit func()) {
	done, ok := h.submits.begin(clientID(r), form)
	if !ok {
		http.Error(w, "submission already in progress", http.StatusConflict)
		return
	}
	defer done()
	submit()
}

func (h *Handler) observeLogin(result string) {
	if h.metrics != nil {
		h.metrics.ObserveLogin(result)
	}
}

func (h *Handler) logEvent(ctx context.Context, user *userdomain.User, action, resource, metadata string) {
	if h.audit == nil {
		return
	}
	companyID, userID := "", ""
	if user != nil {
		companyID, userID = strconv.FormatInt(user.CompanyID, 10), strconv.FormatInt(user.ID, 10)
	}
	h.audit.LogEvent(ctx, companyID, userID, action, resource, metadata)
}
