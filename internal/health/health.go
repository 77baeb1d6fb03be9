// Package health reports readiness of the console's backing stores over gRPC health checking and /healthz.
package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name of the console, in addition to the overall "" service.
const ServiceName = "maintenance.console"

// Pinger is implemented by session storage and *sql.DB wrappers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function (e.g. (*sql.DB).PingContext) to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Checker pings named dependencies. A Checker with no dependencies is always healthy.
type Checker struct {
	timeout time.Duration
	deps    map[string]Pinger
}

// NewChecker returns a Checker whose pings are bounded by timeout (2s when <= 0).
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{timeout: timeout, deps: make(map[string]Pinger)}
}

// Add registers a dependency under name. A nil pinger is ignored.
func (c *Checker) Add(name string, p Pinger) *Checker {
	if p != nil {
		c.deps[name] = p
	}
	return c
}

// Check pings every dependency and returns the error message of each failing one, keyed by name.
func (c *Checker) Check(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	failed := make(map[string]string)
	for name, p := range c.deps {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	return failed
}

// NewServer returns a gRPC health server with the console service registered as NOT_SERVING until the first Watch tick.
func NewServer() *health.Server {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return hs
}

// Update runs one check and sets the serving status of hs accordingly. It returns the failures.
func (c *Checker) Update(ctx context.Context, hs *health.Server) map[string]string {
	failed := c.Check(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if len(failed) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(ServiceName, status)
	return failed
}

// Watch updates hs every interval until ctx is done, then marks every service NOT_SERVING.
func (c *Checker) Watch(ctx context.Context, hs *health.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	wasHealthy := true
	for {
		failed := c.Update(ctx, hs)
		if healthy := len(failed) == 0; healthy != wasHealthy {
			if healthy {
				log.Printf("health: all dependencies reachable")
			} else {
				log.Printf("health: unhealthy dependencies: %v", names(failed))
			}
			wasHealthy = healthy
		}
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

type response struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Handler serves /healthz: 200 {"status":"ok"} or 503 with the failing dependencies.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		failed := c.Check(r.Context())
		resp := response{Status: "ok"}
		code := http.StatusOK
		if len(failed) > 0 {
			resp = response{Status: "unavailable", Failed: failed}
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
}

func names(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
