package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/julianstephens/weekplan/internal/keyring"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/storage/postgres"
	"github.com/julianstephens/weekplan/internal/storage/redis"
	"github.com/julianstephens/weekplan/internal/storage/sqlite"
)

// Kind names a storage backend.
type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
	KindRedis    Kind = "redis"
	KindJSON     Kind = "json"
	KindMemory   Kind = "memory"
)

// KindOf classifies a --config value.
func KindOf(dsn string) Kind {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return KindPostgres
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return KindRedis
	case dsn == ":memory:":
		return KindMemory
	case strings.EqualFold(filepath.Ext(dsn), ".json"):
		return KindJSON
	default:
		return KindSQLite
	}
}

// Open builds the backend named by dsn without touching it; call Init or
// Load next. Postgres strings must not embed a password: the dialed string
// comes from the environment or keyring when one is stored there.
func Open(dsn string) (Provider, error) {
	switch KindOf(dsn) {
	case KindPostgres:
		if err := postgres.ValidateConnString(dsn); err != nil {
			return nil, err
		}
		connStr, source := keyring.ResolveConnectionString(dsn)
		logger.Debug("Resolved Postgres connection", "source", source)
		return postgres.New(connStr), nil
	case KindRedis:
		store, err := redis.Open(dsn)
		if err != nil {
			return nil, err
		}
		return store, nil
	case KindMemory:
		return NewMemoryStore(), nil
	case KindJSON:
		return NewJSONStore(dsn), nil
	default:
		if strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("no storage location configured")
		}
		return sqlite.New(dsn), nil
	}
}
