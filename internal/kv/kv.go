// Package kv provides the key/value stores notes are persisted to.
package kv

import (
	"context"
	"fmt"
)

// Store is a string key/value store. Get reports ok=false when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is the database file (sqlite) or directory (file).
	Path        string
	RedisAddr   string
	RedisPrefix string
}

// Open returns the Store for opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		return NewSQLite(opts.Path)
	case BackendFile:
		return NewFile(opts.Path)
	case BackendRedis:
		return NewRedis(ctx, opts.RedisAddr, opts.RedisPrefix)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
