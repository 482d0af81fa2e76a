// Package storage selects a results-store backend from the environment.
package storage

import (
	"fmt"
	"os"

	"chdsim/internal/infra/persistence/memory"
	"chdsim/internal/infra/persistence/postgres"
	"chdsim/internal/infra/persistence/sqlite"
	"chdsim/pkg/domain"
)

// Driver identifies a concrete results store implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral runs)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// OpenResultsStore selects a backend using environment variables.
// Defaults to memory when unset: a simulation run is self-contained unless
// the operator asks for durability.
//
//	CHDSIM_STORAGE_DRIVER: memory|sqlite|postgres (default memory)
//	CHDSIM_SQLITE_PATH: path to sqlite file (default ./chdsim.db)
//	CHDSIM_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenResultsStore(capacityHint int) (domain.ResultsStore, error) {
	driver := os.Getenv("CHDSIM_STORAGE_DRIVER")
	if driver == "" {
		driver = string(DriverMemory)
	}
	switch Driver(driver) {
	case DriverMemory:
		return memory.NewStore(capacityHint), nil
	case DriverSQLite:
		path := os.Getenv("CHDSIM_SQLITE_PATH")
		return sqlite.NewStore(path)
	case DriverPostgres:
		dsn := os.Getenv("CHDSIM_POSTGRES_DSN")
		return postgres.NewStore(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
