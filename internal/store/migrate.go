package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
)

//go:embed migrations
var migrationFS embed.FS

// Migrate applies the embedded migrations for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationFS, path.Join("migrations", string(s.dialect)))
	if err != nil {
		return fmt.Errorf("open migrations for %s: %w", s.dialect, err)
	}
	return s.MigrateFS(ctx, sub)
}

// MigrateFS runs all .sql files at the root of fsys in name order, each at most once.
func (s *Store) MigrateFS(ctx context.Context, fsys fs.FS) error {
	// 1. Create migrations table if not exists to track applied migrations
	_, err := s.exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	// 2. Read migration files
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, f := range entries {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".sql") {
			migrationFiles = append(migrationFiles, f.Name())
		}
	}
	sort.Strings(migrationFiles) // Ensure order 001, 002, ...

	// 3. Apply new migrations
	for _, file := range migrationFiles {
		applied, err := s.isApplied(ctx, file)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", file, err)
		}
		if applied {
			slog.Debug("Skipping already applied migration", "file", file)
			continue
		}

		slog.Info("Applying migration", "file", file)
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		err = s.inTx(ctx, func(t tx) error {
			if _, err := t.ExecContext(ctx, string(content)); err != nil {
				return err
			}
			_, err := t.exec(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, file)
			return err
		})
		if err != nil {
			// If it's a known ignorable error (e.g., table already exists),
			// the transaction is gone but we still want to record this version.
			if !isAlreadyExists(err) {
				return fmt.Errorf("failed to execute migration %s: %w", file, err)
			}
			slog.Warn("Schema object likely already exists, marking as applied", "file", file)
			if _, err := s.exec(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, file); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", file, err)
			}
		}
	}

	return nil
}

func (s *Store) isApplied(ctx context.Context, version string) (bool, error) {
	var exists int
	err := s.queryRow(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, version).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate column name")
}
