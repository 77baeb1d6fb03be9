package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Deps holds the services exposed on the console's gRPC listener.
type Deps struct {
	// Health is the readiness server driven by health.Checker.Watch. If nil, a server reporting SERVING is registered.
	Health *health.Server
}

// RegisterServices registers the console's gRPC services with the given server.
//
//   - grpc.health.v1.Health → internal/health (storage and database readiness)
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	hs := deps.Health
	if hs == nil {
		hs = health.NewServer()
	}
	healthpb.RegisterHealthServer(s, hs)
}
