package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Connect opens the SQL database named by cfg and wraps it in a persistence
// client with the matching bun dialect. The caller owns the returned client
// and should close it when done.
func Connect(cfg persistence.Config) (*persistence.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sqlstore: persistence config is required")
	}
	driver := strings.TrimSpace(strings.ToLower(cfg.GetDriver()))

	sqlDB, err := sql.Open(driver, cfg.GetServer())
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening %s database: %w", driver, err)
	}

	switch driver {
	case DriverPostgres:
		return persistence.New(cfg, sqlDB, pgdialect.New())
	case DriverSQLite:
		// Shared-cache sqlite needs a single connection to avoid table locks.
		sqlDB.SetMaxOpenConns(1)
		return persistence.New(cfg, sqlDB, sqlitedialect.New())
	default:
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}
