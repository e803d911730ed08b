package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// runMigrations runs all Bun migrations
func (b *BunDB) runMigrations(ctx context.Context) error {
	// Create a simple migrations tracking table
	_, err := b.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS bun_schema_migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Check which migrations have been applied
	type AppliedMigration struct {
		bun.BaseModel `bun:"table:bun_schema_migrations"`
		Version       string `bun:"version"`
	}
	var applied []AppliedMigration
	err = b.db.NewSelect().
		Model(&applied).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to check applied migrations: %w", err)
	}

	appliedMap := make(map[string]bool)
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	// Run migrations in order
	migrations := []struct {
		version string
		name    string
		up      func(context.Context, *bun.DB) error
	}{
		{"001", "initial_schema", init001CreateStampTables},
		{"002", "create_jobs_table", init002CreateJobsTable},
	}

	for _, m := range migrations {
		if appliedMap[m.version] {
			continue
		}

		Logger.Info("Running migration", "version", m.version, "name", m.name)
		if err := m.up(ctx, b.db); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.version, err)
		}

		// Mark as applied
		_, err = b.db.NewInsert().
			Model(&AppliedMigration{Version: m.version}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark migration %s as applied: %w", m.version, err)
		}
	}

	Logger.Info("All migrations completed successfully")
	return nil
}

// Migration 001: Create initial schema (stamp_images and server_config tables)
func init001CreateStampTables(ctx context.Context, db *bun.DB) error {
	Logger.Info("Running migration 001: Create initial schema")

	// Detect database dialect - check if it's PostgreSQL by checking dialect features
	_, isPostgres := db.Dialect().(interface{ SupportsReturning() bool })

	// Create stamp_images table. PNG bytes go in a BYTEA/BLOB column and the
	// (variant, position) pair is unique so round-robin lookups stay stable.
	var createTableSQL string
	if isPostgres {
		createTableSQL = `
			CREATE TABLE IF NOT EXISTS stamp_images (
				id SERIAL PRIMARY KEY,
				ulid TEXT NOT NULL UNIQUE,
				variant TEXT NOT NULL,
				position INTEGER NOT NULL,
				name TEXT NOT NULL,
				png BYTEA NOT NULL,
				width INTEGER NOT NULL,
				height INTEGER NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (variant, position)
			)
		`
	} else {
		createTableSQL = `
			CREATE TABLE IF NOT EXISTS stamp_images (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				ulid TEXT NOT NULL UNIQUE,
				variant TEXT NOT NULL,
				position INTEGER NOT NULL,
				name TEXT NOT NULL,
				png BLOB NOT NULL,
				width INTEGER NOT NULL,
				height INTEGER NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (variant, position)
			)
		`
	}

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create stamp_images table: %w", err)
	}

	// Create indexes for stamp_images
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_stamp_images_variant ON stamp_images(variant)",
		"CREATE INDEX IF NOT EXISTS idx_stamp_images_ulid ON stamp_images(ulid)",
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// Create server_config table
	var createConfigSQL string
	var insertConfigSQL string
	if isPostgres {
		createConfigSQL = `
			CREATE TABLE IF NOT EXISTS server_config (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				listen_addr_ip TEXT DEFAULT '',
				listen_addr_port TEXT NOT NULL DEFAULT '8000',
				storage_path TEXT NOT NULL DEFAULT '',
				session_ttl_hours INTEGER NOT NULL DEFAULT 24,
				cleanup_schedule TEXT NOT NULL DEFAULT '@every 1h',
				max_upload_mb INTEGER NOT NULL DEFAULT 50,
				pdf_renderer TEXT NOT NULL DEFAULT 'fitz',
				pdf_exporter TEXT NOT NULL DEFAULT 'raster',
				use_reverse_proxy BOOLEAN NOT NULL DEFAULT false,
				base_url TEXT DEFAULT '',
				default_stamp_height_px INTEGER NOT NULL DEFAULT 100,
				server_api_url TEXT DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
		insertConfigSQL = `INSERT INTO server_config (id) VALUES (1) ON CONFLICT (id) DO NOTHING`
	} else {
		createConfigSQL = `
			CREATE TABLE IF NOT EXISTS server_config (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				listen_addr_ip TEXT DEFAULT '',
				listen_addr_port TEXT NOT NULL DEFAULT '8000',
				storage_path TEXT NOT NULL DEFAULT '',
				session_ttl_hours INTEGER NOT NULL DEFAULT 24,
				cleanup_schedule TEXT NOT NULL DEFAULT '@every 1h',
				max_upload_mb INTEGER NOT NULL DEFAULT 50,
				pdf_renderer TEXT NOT NULL DEFAULT 'fitz',
				pdf_exporter TEXT NOT NULL DEFAULT 'raster',
				use_reverse_proxy BOOLEAN NOT NULL DEFAULT 0,
				base_url TEXT DEFAULT '',
				default_stamp_height_px INTEGER NOT NULL DEFAULT 100,
				server_api_url TEXT DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
		insertConfigSQL = `INSERT OR IGNORE INTO server_config (id) VALUES (1)`
	}

	_, err = db.ExecContext(ctx, createConfigSQL)
	if err != nil {
		return fmt.Errorf("failed to create server_config table: %w", err)
	}

	// Insert default config row
	_, err = db.ExecContext(ctx, insertConfigSQL)
	if err != nil {
		return fmt.Errorf("failed to insert default config: %w", err)
	}

	Logger.Info("Migration 001 completed successfully")
	return nil
}

func init001RollbackStampTables(ctx context.Context, db *bun.DB) error {
	Logger.Info("Rolling back migration 001")

	_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS server_config")
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS stamp_images")
	return err
}

// Migration 002: Create jobs table
func init002CreateJobsTable(ctx context.Context, db *bun.DB) error {
	Logger.Info("Running migration 002: Create jobs table")

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			status TEXT DEFAULT 'pending',
			progress INTEGER DEFAULT 0,
			current_step TEXT DEFAULT '',
			total_steps INTEGER DEFAULT 0,
			message TEXT DEFAULT '',
			error TEXT,
			result TEXT,
			document_ulid TEXT DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			started_at TIMESTAMP,
			completed_at TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_type ON jobs(type)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_document_ulid ON jobs(document_ulid)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_completed_at ON jobs(completed_at) WHERE completed_at IS NOT NULL",
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			// Partial indexes might not be supported in all SQLite versions
			Logger.Warn("Could not create index (might not be supported)", "error", err)
		}
	}

	Logger.Info("Migration 002 completed successfully")
	return nil
}

func init002RollbackJobsTable(ctx context.Context, db *bun.DB) error {
	Logger.Info("Rolling back migration 002")

	_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS jobs")
	return err
}
