package handler

import (
	"io/fs"
	"net/http"

	"maintenance-manager/console/internal/platform/rbac"
)

// SelfAuditedRoutes are the route patterns whose controllers record their own audit events.
var SelfAuditedRoutes = map[string]bool{
	"POST /login":    true,
	"POST /logout":   true,
	"POST /register": true,
}

// Routes returns the console's ServeMux. Every page and form of a gated route passes through rbac.Gate.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	gate := func(route rbac.Route, fn http.HandlerFunc) http.Handler {
		opts := rbac.GateOptions{RevalidateInterval: h.deps.RevalidateInterval, Audit: h.audit, Policy: h.deps.Policy}
		if h.metrics != nil {
			opts.OnDecision = h.metrics.ObserveGate
		}
		return rbac.Gate(route, opts)(fn)
	}

	mux.Handle("GET /login", gate(rbac.Login, h.loginForm))
	mux.Handle("POST /login", gate(rbac.Login, h.login))
	mux.HandleFunc("POST /logout", h.logout)
	mux.Handle("GET /register", gate(rbac.Register, h.registerForm))
	mux.Handle("POST /register", gate(rbac.Register, h.register))
	mux.Handle("POST /register/company", gate(rbac.Register, h.registerCompany))

	mux.Handle("GET /dashboard", gate(rbac.Dashboard, h.dashboard))

	mux.Handle("GET /properties", gate(rbac.Properties, h.properties))
	mux.Handle("POST /properties", gate(rbac.Properties, h.createProperty))
	mux.Handle("POST /properties/{id}/units", gate(rbac.Properties, h.addUnit))

	mux.Handle("GET /work-orders", gate(rbac.WorkOrders, h.workOrders))
	mux.Handle("GET /work-orders/new", gate(rbac.NewWorkOrder, h.newWorkOrder))
	mux.Handle("GET /work-orders/new/units", gate(rbac.NewWorkOrder, h.units))
	mux.Handle("POST /work-orders/new", gate(rbac.NewWorkOrder, h.createWorkOrder))
	mux.Handle("GET /work-orders/{id}", gate(rbac.WorkOrder, h.workOrder))
	mux.Handle("POST /work-orders/{id}", gate(rbac.WorkOrder, h.updateWorkOrder))

	mux.Handle("GET /invoices", gate(rbac.Invoices, h.invoices))
	mux.Handle("GET /invoices/new", gate(rbac.NewInvoice, h.newInvoice))
	mux.Handle("POST /invoices/new", gate(rbac.NewInvoice, h.createInvoice))
	mux.Handle("POST /invoices/new/preview", gate(rbac.NewInvoice, h.previewInvoice))
	mux.Handle("GET /invoices/{id}", gate(rbac.Invoice, h.invoice))
	mux.Handle("POST /invoices/{id}/status", gate(rbac.Invoice, h.updateInvoiceStatus))
	mux.Handle("POST /invoices/{id}/pay", gate(rbac.Invoice, h.payInvoice))
	mux.Handle("POST /invoices/{id}/delete", gate(rbac.Invoice, h.deleteInvoice))

	mux.Handle("GET /settings", gate(rbac.Settings, h.settings))
	mux.Handle("POST /settings", gate(rbac.Settings, h.saveSettings))

	mux.HandleFunc("GET /toasts", h.listToasts)
	mux.HandleFunc("POST /toasts/{id}/dismiss", h.dismissToast)
	mux.HandleFunc("GET /session/events", h.sessionEvents)

	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	health := h.deps.Health
	if health == nil {
		health = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("ok"))
		})
	}
	mux.Handle("GET /healthz", health)

	mux.Handle("GET /{$}", gate(rbac.Dashboard, func(w http.ResponseWriter, r *http.Request) {
		seeOther(w, r, rbac.DashboardPath)
	}))
	// Unknown paths go back to the root, which the gate resolves to the dashboard or the login page.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		seeOther(w, r, "/")
	})
	return mux
}
