// Package store persists the set of serial numbers that already received a
// replacement notification.
package store

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Store is a notified-set backend. It satisfies notify.Store and the
// readiness probe.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, serials []string) error
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend     string
	FilePath    string
	RedisURL    string
	DatabaseURL string
}

// Open connects to the configured backend.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.FilePath), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisURL)
	case BackendPostgres:
		return NewPostgresStore(ctx, opts.DatabaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown notified store backend %q", opts.Backend)
	}
}
