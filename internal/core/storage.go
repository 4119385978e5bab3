package core

import (
	"context"
	"fmt"

	"genomecore/internal/config"
	"genomecore/internal/infra/persistence/memory"
	"genomecore/internal/infra/persistence/postgres"
	"genomecore/internal/infra/persistence/sqlite"
	"genomecore/pkg/domain"
)

// StorageDriver identifies a concrete model store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenModelStore selects a model store from the storage section of the
// configuration. Defaults to sqlite when the driver is unset.
func OpenModelStore(ctx context.Context, cfg config.Storage) (domain.ModelStore, error) {
	driver := StorageDriver(cfg.Driver)
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
