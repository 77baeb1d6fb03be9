package middleware

import "context"

type contextKey struct{ name string }

var (
	clientIDKey = contextKey{"client_id"}
	clientIPKey = contextKey{"client_ip"}
)

// WithClient returns a context with the console client id and the caller's IP set.
// Handlers, the audit logger and the rate limiter read these via GetClientID and GetClientIP.
func WithClient(ctx context.Context, clientID, ip string) context.Context {
	ctx = context.WithValue(ctx, clientIDKey, clientID)
	ctx = context.WithValue(ctx, clientIPKey, ip)
	return ctx
}

// GetClientID returns the client id from context and true if set; otherwise "", false.
func GetClientID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(clientIDKey).(string)
	return v, ok
}

// GetClientIP returns the caller IP from context and true if set; otherwise "", false.
func GetClientIP(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(clientIPKey).(string)
	return v, ok
}

// ClientIDFromContext is GetClientID without the ok flag, for use as an audit.ClientExtractor.
func ClientIDFromContext(ctx context.Context) string {
	v, _ := GetClientID(ctx)
	return v
}

// ClientIPFromContext returns the caller IP or "unknown", for use as an audit.IPExtractor.
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := GetClientIP(ctx); ok && v != "" {
		return v
	}
	return "unknown"
}
