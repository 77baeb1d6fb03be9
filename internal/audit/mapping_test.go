package audit

import "testing"

func TestParseRoute(t *testing.T) {
	testCases := []struct {
		pattern  string
		action   string
		resource string
	}{
		{"POST /login", "login", "session"},
		{"POST /logout", "logout", "session"},
		{"POST /register/company", "create", "company"},
		{"POST /settings", "update", "company"},
		{"POST /properties", "create", "property"},
		{"POST /properties/{id}/units", "add_unit", "property"},
		{"POST /work-orders/new", "create", "work_order"},
		{"POST /work-orders/{id}", "update", "work_order"},
		{"POST /invoices/new", "create", "invoice"},
		{"POST /invoices/{id}/status", "update_status", "invoice"},
		{"POST /invoices/{id}/delete", "delete", "invoice"},
		{"POST /invoices/{id}/pay", "pay", "invoice"},
		{"GET /invoices/{id}", "get", "invoice"},
		{"/dashboard", "get", "dashboard"},
		{"POST /", "unknown", "unknown"},
	}
	for _, tc := range testCases {
		t.Run(tc.pattern, func(t *testing.T) {
			ar := ParseRoute(tc.pattern)
			if ar.Action != tc.action {
				t.Errorf("action = %q, want %q", ar.Action, tc.action)
			}
			if ar.Resource != tc.resource {
				t.Errorf("resource = %q, want %q", ar.Resource, tc.resource)
			}
		})
	}
}

func TestAudited(t *testing.T) {
	testCases := []struct {
		pattern string
		want    bool
	}{
		{"POST /invoices/{id}/pay", true},
		{"POST /login", true},
		{"GET /invoices", false},
		{"POST /toasts/{id}/dismiss", false},
		{"POST /invoices/new/preview", false},
	}
	for _, tc := range testCases {
		if got := Audited(tc.pattern); got != tc.want {
			t.Errorf("Audited(%q) = %v, want %v", tc.pattern, got, tc.want)
		}
	}
}
