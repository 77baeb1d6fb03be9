// Package repository provides durable key/value storage for console client sessions.
package repository

import (
	"context"
	"errors"
)

// Keys under which a client's session is persisted.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrClosed is returned by storage that has been shut down.
var ErrClosed = errors.New("session storage closed")

// Storage persists string values per client id and key.
type Storage interface {
	// Get returns the value for key. ok is false when the key is missing or expired; err is only set on storage failure.
	Get(ctx context.Context, clientID, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, clientID, key, value string) error
	// Remove deletes keys. Missing keys are not an error.
	Remove(ctx context.Context, clientID string, keys ...string) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
