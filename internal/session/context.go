package session

import "context"

type contextKey struct{ name string }

var storeKey = &contextKey{"session-store"}

// WithStore returns a copy of ctx that carries store.
func WithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeKey, store)
}

// FromContext returns the client's Store, if the request passed through the client middleware.
func FromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(storeKey).(*Store)
	return s, ok && s != nil
}
