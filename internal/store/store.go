// Package store persists named JSON documents. Each document is read and
// written whole; there are no partial updates.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// Drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Store loads and saves whole documents by name.
type Store interface {
	// Load returns the document body, or nil if it was never saved.
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, body []byte) error

	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver      string      `yaml:"driver" mapstructure:"driver"`
	Path        string      `yaml:"path" mapstructure:"path"`
	DatabaseURL string      `yaml:"database_url" mapstructure:"database_url"`
	RedisAddr   string      `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPrefix string      `yaml:"redis_prefix" mapstructure:"redis_prefix"`
	Pool        *PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// Open connects to the configured backend and migrates it.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite:
		s, err = NewSQLite(cfg.Path)
	case DriverPostgres:
		s, err = NewPostgres(ctx, cfg.DatabaseURL, cfg.Pool)
	case DriverRedis:
		s, err = NewRedis(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}
