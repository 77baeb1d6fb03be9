package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"maintenance-manager/console/internal/session"
	"maintenance-manager/console/internal/session/repository"
	userdomain "maintenance-manager/console/internal/user/domain"
)

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *recordingAudit) LogEvent(ctx context.Context, companyID, userID, action, resource, metadata string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action+":"+metadata)
}

func storeWith(t *testing.T, role userdomain.Role) *session.Store {
	t.Helper()
	st := session.NewStore("c1", repository.NewMemoryStorage(0), nil, nil)
	st.Start(context.Background())
	if role != "" {
		if err := st.Login(context.Background(), "tok", &userdomain.User{ID: 3, CompanyID: 4, Role: role}); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func serve(t *testing.T, route Route, opts GateOptions, st *session.Store, accept string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	h := Gate(route, opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, route.Path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if st != nil {
		req = req.WithContext(session.WithStore(req.Context(), st))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, called
}

func TestGate_Authorized(t *testing.T) {
	rec, called := serve(t, Settings, GateOptions{}, storeWith(t, userdomain.RoleAdmin), "")
	if !called || rec.Code != http.StatusOK {
		t.Errorf("called = %v, code = %d; want handler to run", called, rec.Code)
	}
}

func TestGate_Unauthenticated(t *testing.T) {
	rec, called := serve(t, Dashboard, GateOptions{}, storeWith(t, ""), "")
	if called {
		t.Fatal("handler ran for logged-out client")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("code = %d, location = %q; want 303 /login", rec.Code, rec.Header().Get("Location"))
	}
}

func TestGate_NoStoreIsUnauthenticated(t *testing.T) {
	rec, called := serve(t, Dashboard, GateOptions{}, nil, "")
	if called || rec.Header().Get("Location") != "/login" {
		t.Errorf("called = %v, location = %q", called, rec.Header().Get("Location"))
	}
}

func TestGate_ForbiddenRedirectsAndAudits(t *testing.T) {
	audit := &recordingAudit{}
	var decisions []string
	opts := GateOptions{
		Audit:      audit,
		OnDecision: func(route string, d Decision) { decisions = append(decisions, route+"="+d.String()) },
	}
	rec, called := serve(t, Settings, opts, storeWith(t, userdomain.RolePropertyManager), "")
	if called {
		t.Fatal("handler ran for forbidden role")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Errorf("code = %d, location = %q; want 303 /dashboard", rec.Code, rec.Header().Get("Location"))
	}
	if len(audit.actions) != 1 || audit.actions[0] != "forbidden:/settings" {
		t.Errorf("audit = %v", audit.actions)
	}
	if len(decisions) != 1 || decisions[0] != "/settings=forbidden" {
		t.Errorf("decisions = %v", decisions)
	}
}

func TestGate_PendingDoesNotRedirect(t *testing.T) {
	pending := session.NewStore("c1", repository.NewMemoryStorage(0), nil, nil)

	rec, called := serve(t, Dashboard, GateOptions{}, pending, "")
	if called {
		t.Fatal("handler ran while pending")
	}
	if rec.Code != http.StatusOK || rec.Header().Get("Location") != "" {
		t.Errorf("code = %d, location = %q; want 200 without redirect", rec.Code, rec.Header().Get("Location"))
	}
	if !strings.Contains(rec.Body.String(), `http-equiv="refresh"`) {
		t.Error("pending page should refresh itself")
	}

	rec, _ = serve(t, Dashboard, GateOptions{}, pending, "application/json")
	if rec.Code != http.StatusAccepted || !strings.Contains(rec.Body.String(), `"pending"`) {
		t.Errorf("json pending = %d %s", rec.Code, rec.Body.String())
	}
}

func TestGate_PublicRouteSkipsCheck(t *testing.T) {
	_, called := serve(t, Login, GateOptions{}, nil, "")
	if !called {
		t.Error("public route should always reach the handler")
	}
}

func TestTarget(t *testing.T) {
	if Target(Unauthenticated) != "/login" || Target(Forbidden) != "/dashboard" || Target(Pending) != "" || Target(Authorized) != "" {
		t.Error("unexpected redirect targets")
	}
}
