package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	mdomain "maintenance-manager/console/internal/maintenance/domain"
	userdomain "maintenance-manager/console/internal/user/domain"
)

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("http://api.local/api/", 0)
	if c.BaseURL != "http://api.local/api" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", c.BaseURL)
	}
	if c.HTTPClient.Timeout != defaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.HTTPClient.Timeout, defaultTimeout)
	}
}

func TestAuthLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Errorf("request = %s %s, want POST /api/auth/login", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not send a bearer token, got %q", r.Header.Get("Authorization"))
		}
		var body LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Decode body: %v", err)
		}
		if body.Email != "a@b.c" || body.Password != "secret" {
			t.Errorf("body = %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok","user":{"id":1,"email":"a@b.c","role":"ADMIN","firstName":"A","lastName":"B","companyId":3,"companyName":"Acme","enabled":true}}`))
	}))
	defer server.Close()

	api := NewAPI(NewClient(server.URL+"/api", time.Second))
	resp, err := api.Auth.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "secret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token != "tok" || resp.User == nil || resp.User.Role != userdomain.RoleAdmin || resp.User.CompanyID != 3 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestBearerTokenFromContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want Bearer tok-1", got)
		}
		_, _ = w.Write([]byte(`{"id":5,"email":"t@x.y","role":"TECH"}`))
	}))
	defer server.Close()

	api := NewAPI(NewClient(server.URL, time.Second))
	u, err := api.Auth.Identity(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if u.ID != 5 || u.Role != userdomain.RoleTech {
		t.Errorf("user = %+v", u)
	}
}

func TestAPIError(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"message", http.StatusBadRequest, `{"message":"Email already in use"}`, "Email already in use"},
		{"field errors", http.StatusBadRequest, `{"errors":{"title":"must not be blank","category":"invalid"}}`, "invalid"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, ""},
		{"empty", http.StatusUnauthorized, ``, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer server.Close()

			_, err := NewAPI(NewClient(server.URL, time.Second)).Properties.List(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.Status != tc.status {
				t.Errorf("Status = %d, want %d", apiErr.Status, tc.status)
			}
			if apiErr.Message != tc.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tc.wantMessage)
			}
			if StatusOf(err) != tc.status {
				t.Errorf("StatusOf = %d, want %d", StatusOf(err), tc.status)
			}
		})
	}
}

func TestMessageOr(t *testing.T) {
	if got := MessageOr(&APIError{Status: 400, Message: "Nope"}, "fallback"); got != "Nope" {
		t.Errorf("MessageOr(api message) = %q", got)
	}
	if got := MessageOr(&APIError{Status: 500}, "fallback"); got != "fallback" {
		t.Errorf("MessageOr(no message) = %q", got)
	}
	if got := MessageOr(errors.New("dial tcp: refused"), "fallback"); got != "fallback" {
		t.Errorf("MessageOr(transport) = %q", got)
	}
}

func TestServices_RequestShapes(t *testing.T) {
	type call struct{ method, path, query, body string }
	var (
		mu    sync.Mutex
		calls []call
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.Path, r.URL.RawQuery, string(raw)})
		mu.Unlock()
		switch {
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/users":
			_, _ = w.Write([]byte(`[{"id":9,"role":"TECH","firstName":"Tess"}]`))
		case r.URL.Path == "/payments/checkout/4":
			_, _ = w.Write([]byte(`{"checkoutUrl":"https://pay.example/cs_1"}`))
		default:
			_, _ = w.Write([]byte(`{"id":4}`))
		}
	}))
	defer server.Close()

	ctx := WithToken(context.Background(), "tok")
	api := NewAPI(NewClient(server.URL, time.Second))

	status := mdomain.StatusAssigned
	assignee := int64(9)
	if _, err := api.WorkOrders.Update(ctx, 4, mdomain.WorkOrderUpdateRequest{Status: &status, AssignedToID: &assignee}); err != nil {
		t.Fatal(err)
	}
	techs, err := api.Users.ListByRole(ctx, userdomain.RoleTech)
	if err != nil || len(techs) != 1 || techs[0].FirstName != "Tess" {
		t.Fatalf("ListByRole = %+v, %v", techs, err)
	}
	if err := api.Invoices.Delete(ctx, 4); err != nil {
		t.Fatal(err)
	}
	co, err := api.Payments.CreateCheckout(ctx, 4)
	if err != nil || co.CheckoutURL != "https://pay.example/cs_1" {
		t.Fatalf("CreateCheckout = %+v, %v", co, err)
	}
	if _, err := api.Properties.AddUnit(ctx, 4, mdomain.UnitRequest{UnitNumber: "2B"}); err != nil {
		t.Fatal(err)
	}

	want := []call{
		{http.MethodPatch, "/work-orders/4", "", `{"status":"ASSIGNED","assignedToId":9}`},
		{http.MethodGet, "/users", "role=TECH", ""},
		{http.MethodDelete, "/invoices/4", "", ""},
		{http.MethodPost, "/payments/checkout/4", "", ""},
		{http.MethodPost, "/properties/4/units", "", `{"unitNumber":"2B"}`},
	}
	mu.Lock()
	defer mu.Unlock()
	if len(calls) != len(want) {
		t.Fatalf("calls = %d, want %d", len(calls), len(want))
	}
	for i, w := range want {
		if calls[i] != w {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], w)
		}
	}
}

func TestUpdateSendsOnlyChangedFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if string(raw) != `{"status":"COMPLETED"}` {
			t.Errorf("body = %s, want only status", raw)
		}
		_, _ = w.Write([]byte(`{"id":1,"status":"COMPLETED"}`))
	}))
	defer server.Close()

	status := mdomain.StatusCompleted
	wo, err := NewAPI(NewClient(server.URL, time.Second)).WorkOrders.Update(context.Background(), 1, mdomain.WorkOrderUpdateRequest{Status: &status})
	if err != nil {
		t.Fatal(err)
	}
	if wo.Status != mdomain.StatusCompleted {
		t.Errorf("Status = %q", wo.Status)
	}
}

func TestObserver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	var gotOp string
	var gotStatus int
	c := NewClient(server.URL, time.Second).WithObserver(func(op string, status int, _ time.Duration) {
		gotOp, gotStatus = op, status
	})
	_, _ = NewAPI(c).Invoices.Get(context.Background(), 77)
	if gotOp != "invoices.get" || gotStatus != http.StatusNotFound {
		t.Errorf("observed %q %d, want invoices.get 404", gotOp, gotStatus)
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewAPI(NewClient(url, time.Second)).WorkOrders.List(context.Background())
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if StatusOf(err) != 0 {
		t.Errorf("StatusOf(transport error) = %d, want 0", StatusOf(err))
	}
}
