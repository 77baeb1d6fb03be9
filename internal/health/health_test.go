package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type mockPinger struct {
	pingErr error
}

func (m *mockPinger) Ping(context.Context) error {
	return m.pingErr
}

func servingStatus(t *testing.T, c *Checker, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	hs := NewServer()
	c.Update(context.Background(), hs)
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestUpdate(t *testing.T) {
	testCases := []struct {
		name string
		deps map[string]Pinger
		want healthpb.HealthCheckResponse_ServingStatus
	}{
		{"no dependencies", nil, healthpb.HealthCheckResponse_SERVING},
		{"storage up", map[string]Pinger{"storage": &mockPinger{}}, healthpb.HealthCheckResponse_SERVING},
		{"storage down", map[string]Pinger{"storage": &mockPinger{pingErr: errors.New("connection refused")}}, healthpb.HealthCheckResponse_NOT_SERVING},
		{"one of two down", map[string]Pinger{
			"storage":  &mockPinger{},
			"database": &mockPinger{pingErr: errors.New("timeout")},
		}, healthpb.HealthCheckResponse_NOT_SERVING},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChecker(time.Second)
			for name, p := range tc.deps {
				c.Add(name, p)
			}
			for _, svc := range []string{"", ServiceName} {
				if got := servingStatus(t, c, svc); got != tc.want {
					t.Errorf("status(%q) = %v, want %v", svc, got, tc.want)
				}
			}
		})
	}
}

func TestNewServer_StartsNotServing(t *testing.T) {
	resp, err := NewServer().Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
}

func TestAdd_IgnoresNil(t *testing.T) {
	c := NewChecker(0).Add("storage", nil)
	if len(c.deps) != 0 {
		t.Errorf("deps = %d, want 0", len(c.deps))
	}
	if c.timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", c.timeout)
	}
}

func TestPingFunc(t *testing.T) {
	want := errors.New("down")
	c := NewChecker(time.Second).Add("db", PingFunc(func(context.Context) error { return want }))
	failed := c.Check(context.Background())
	if failed["db"] != "down" {
		t.Errorf("failed = %v, want db: down", failed)
	}
}

func TestHandler(t *testing.T) {
	testCases := []struct {
		name       string
		pingErr    error
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, http.StatusOK, "ok"},
		{"unhealthy", errors.New("connection refused"), http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChecker(time.Second).Add("storage", &mockPinger{pingErr: tc.pingErr})
			rec := httptest.NewRecorder()
			c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tc.wantCode)
			}
			var body response
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tc.wantStatus)
			}
			if tc.pingErr != nil && body.Failed["storage"] != tc.pingErr.Error() {
				t.Errorf("failed = %v", body.Failed)
			}
		})
	}
}

func TestWatch_ShutsDownOnCancel(t *testing.T) {
	hs := NewServer()
	c := NewChecker(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Watch(ctx, hs, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status after shutdown = %v, want NOT_SERVING", resp.GetStatus())
	}
}
