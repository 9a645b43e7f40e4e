// Package storage selects the persistence backend.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/storage/memory"
	"github.com/bregovic/shanon-sub001/internal/storage/rediscache"
	"github.com/bregovic/shanon-sub001/internal/storage/sqldb"
	"github.com/bregovic/shanon-sub001/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendSurrealDB = "surrealdb"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendMemory    = "memory"
)

// NewStorageManager opens the configured backend. When a Redis address is
// configured the quote table is fronted by the Redis cache.
func NewStorageManager(logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = BackendSurrealDB
	}

	var (
		mgr interfaces.StorageManager
		err error
	)
	switch backend {
	case BackendSurrealDB:
		mgr, err = surrealdb.NewManager(logger, config)
	case BackendPostgres, BackendSQLite:
		mgr, err = sqldb.Open(logger, config)
	case BackendMemory:
		logger.Warn().Msg("Using in-memory storage; state is lost on restart")
		mgr = memory.NewManager()
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: surrealdb, postgres, sqlite, memory)", backend)
	}
	if err != nil {
		return nil, err
	}

	if config.Redis.Address == "" {
		return mgr, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := rediscache.NewClient(ctx, config.Redis)
	if err != nil {
		// The cache is optional; run against the backend alone
		logger.Warn().Err(err).Msg("Redis unavailable, quote cache disabled")
		return mgr, nil
	}
	logger.Info().Str("address", config.Redis.Address).Dur("ttl", config.Redis.GetTTL()).Msg("Redis quote cache enabled")
	return rediscache.Wrap(mgr, rdb, config.Redis.GetTTL(), logger), nil
}
