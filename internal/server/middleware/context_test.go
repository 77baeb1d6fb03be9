package middleware

import (
	"context"
	"testing"
)

func TestWithClient_SetsAllValues(t *testing.T) {
	ctx := WithClient(context.Background(), "client-1", "10.0.0.1")

	clientID, ok := GetClientID(ctx)
	if !ok {
		t.Fatal("GetClientID should return true")
	}
	if clientID != "client-1" {
		t.Errorf("client_id = %q, want %q", clientID, "client-1")
	}

	ip, ok := GetClientIP(ctx)
	if !ok {
		t.Fatal("GetClientIP should return true")
	}
	if ip != "10.0.0.1" {
		t.Errorf("client_ip = %q, want %q", ip, "10.0.0.1")
	}
}

func TestGetClientID_ReturnsFalseWhenNotSet(t *testing.T) {
	clientID, ok := GetClientID(context.Background())
	if ok {
		t.Error("GetClientID should return false when not set")
	}
	if clientID != "" {
		t.Errorf("client_id = %q, want empty string", clientID)
	}
}

func TestExtractors(t *testing.T) {
	if got := ClientIPFromContext(context.Background()); got != "unknown" {
		t.Errorf("ClientIPFromContext(empty) = %q, want unknown", got)
	}
	ctx := WithClient(context.Background(), "c", "1.2.3.4")
	if got := ClientIPFromContext(ctx); got != "1.2.3.4" {
		t.Errorf("ClientIPFromContext = %q", got)
	}
	if got := ClientIDFromContext(ctx); got != "c" {
		t.Errorf("ClientIDFromContext = %q", got)
	}
}
