package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	cargonotify "github.com/goliatone/go-cargo-notify"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
}

func TestCoreSchemaMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := cargonotify.GetCoreMigrationsFS()
	paths := []string{
		"data/sql/migrations/20260105000000_cargo_notify_core.up.sql",
		"data/sql/migrations/20260105000000_cargo_notify_core.down.sql",
		"data/sql/migrations/sqlite/20260105000000_cargo_notify_core.up.sql",
		"data/sql/migrations/sqlite/20260105000000_cargo_notify_core.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteCoreSchemaMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-cargo-notify-core?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	root := cargonotify.GetCoreMigrationsFS()
	sqliteMigrations, err := fs.Sub(root, "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}

	if err := execSQLMigration(
		context.Background(),
		db,
		sqliteMigrations,
		"20260105000000_cargo_notify_core.up.sql",
	); err != nil {
		t.Fatalf("apply core schema migration up: %v", err)
	}

	requiredTables := []string{
		"cargo_events",
		"cargo_delivery_logs",
		"cargo_notification_templates",
		"cargo_integrations",
	}
	for _, tableName := range requiredTables {
		var count int
		if err := db.QueryRowContext(
			context.Background(),
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
			tableName,
		).Scan(&count); err != nil {
			t.Fatalf("query sqlite_master for %s: %v", tableName, err)
		}
		if count != 1 {
			t.Fatalf("expected table %s to exist after up migration", tableName)
		}
	}

	if _, err := db.ExecContext(
		context.Background(),
		`INSERT INTO cargo_delivery_logs
			(id, integration_id, event_type, cargo_id, target_url, http_status, response_body, request_payload, succeeded, attempt_number, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"log_migration_1",
		"intg_migration_1",
		"completed",
		"CRG-1",
		"https://hooks.example.com/cargo",
		200,
		"ok",
		"{}",
		1,
		1,
		"2026-01-05T00:00:00Z",
	); err != nil {
		t.Fatalf("insert delivery log row: %v", err)
	}

	duplicateTemplate := `INSERT INTO cargo_notification_templates
		(id, event_type, enabled, prefix, body, updated_at)
	 VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(
		context.Background(),
		duplicateTemplate,
		"tpl_1", "completed", 1, "", "done", "2026-01-05T00:00:00Z",
	); err != nil {
		t.Fatalf("insert template row: %v", err)
	}
	if _, err := db.ExecContext(
		context.Background(),
		duplicateTemplate,
		"tpl_2", "completed", 1, "", "again", "2026-01-05T00:00:00Z",
	); err == nil {
		t.Fatalf("expected unique event_type violation for duplicate template")
	}

	if err := execSQLMigration(
		context.Background(),
		db,
		sqliteMigrations,
		"20260105000000_cargo_notify_core.down.sql",
	); err != nil {
		t.Fatalf("apply core schema migration down: %v", err)
	}

	var count int
	if err := db.QueryRowContext(
		context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
		"cargo_events",
	).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master after down migration: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cargo_events to be dropped after down migration")
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
