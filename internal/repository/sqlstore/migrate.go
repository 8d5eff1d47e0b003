package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
)

// Each dialect has its own directory of numbered .sql files. Files are
// applied in lexical order and recorded in schema_migrations, so a file is
// never run twice and must never be edited once released.
//
//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

func (db *DB) migrate(ctx context.Context) error {
	if err := db.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	dir := path.Join("migrations", string(db.dialect))
	files, err := listMigrationFiles(dir)
	if err != nil {
		return fmt.Errorf("list migration files: %w", err)
	}

	for _, filename := range files {
		if applied[filename] {
			slog.Debug("migration already applied", "file", filename)
			continue
		}
		if err := db.applyMigration(ctx, dir, filename); err != nil {
			return fmt.Errorf("apply migration %s: %w", filename, err)
		}
		slog.Info("migration applied", "file", filename, "dialect", db.dialect)
	}

	return nil
}

func (db *DB) ensureMigrationsTable(ctx context.Context) error {
	ts := "DATETIME"
	if db.dialect == Postgres {
		ts = "TIMESTAMPTZ"
	}
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at `+ts+` NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

func (db *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT filename FROM schema_migrations ORDER BY filename")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, err
		}
		applied[filename] = true
	}
	return applied, rows.Err()
}

func listMigrationFiles(dir string) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

// applyMigration runs one file inside a transaction. The whole file goes to
// the driver as a single Exec with no arguments; both drivers accept several
// statements that way (pgx switches to the simple protocol).
func (db *DB) applyMigration(ctx context.Context, dir, filename string) error {
	content, err := fs.ReadFile(migrationsFS, path.Join(dir, filename))
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("execute sql: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		db.rebind("INSERT INTO schema_migrations (filename) VALUES (?)"), filename,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}
