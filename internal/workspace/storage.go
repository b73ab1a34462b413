package workspace

import (
	"context"
	"fmt"

	"creatorhub/internal/config"
	"creatorhub/internal/infra/persistence"
	"creatorhub/internal/infra/persistence/memory"
	"creatorhub/internal/infra/persistence/postgres"
	"creatorhub/internal/infra/persistence/sqlite"
)

// OpenRowStore selects a persistence driver.
//
//	memory:   ephemeral, for tests and demos
//	sqlite:   embedded file at SQLitePath (":memory:" allowed)
//	postgres: server at PostgresDSN
func OpenRowStore(ctx context.Context, cfg config.StorageConfig) (persistence.RowStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.StorageSQLite
	}
	switch driver {
	case config.StorageMemory:
		return memory.NewStore(), nil
	case config.StorageSQLite:
		s, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoragePostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
