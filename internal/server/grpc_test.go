package server

import (
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

func TestRegisterServices(t *testing.T) {
	testCases := []struct {
		name string
		deps Deps
	}{
		{"nil health", Deps{}},
		{"with health", Deps{Health: health.NewServer()}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := grpc.NewServer()
			defer s.Stop()
			RegisterServices(s, tc.deps)

			info := s.GetServiceInfo()
			if _, ok := info["grpc.health.v1.Health"]; !ok {
				t.Errorf("services = %v, want grpc.health.v1.Health registered", info)
			}
		})
	}
}
