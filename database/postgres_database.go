package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	config "github.com/drummonds/gosign/config"
	"github.com/oklog/ulid/v2"
)

// PostgresDB implements Repository for PostgreSQL
type PostgresDB struct {
	db         *sql.DB
	isEmbedded bool // Now refers to ephemeral instances
}

// SetupPostgresDatabase initializes PostgreSQL database with migrations
// If connectionString is empty, it will use ephemeral PostgreSQL
func SetupPostgresDatabase(connectionString string) (*PostgresDB, error) {
	var db *sql.DB
	var isEmbedded bool
	var err error

	if connectionString == "" {
		// Use ephemeral PostgreSQL for development
		Logger.Info("No connection string provided, using ephemeral PostgreSQL...")

		ephemeralDB, err := SetupEphemeralPostgresDatabase()
		if err != nil {
			return nil, fmt.Errorf("failed to setup ephemeral postgres: %w", err)
		}

		// Return the PostgresDB part, the ephemeral wrapper will handle cleanup
		return ephemeralDB.PostgresDB, nil
	} else {
		isEmbedded = false
		Logger.Info("Connecting to external PostgreSQL/CockroachDB server...")
	}

	// Open PostgreSQL database
	db, err = sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	Logger.Info("Connected to PostgreSQL database successfully")

	// Run migrations
	Logger.Info("Running database migrations...")
	if err := runPostgresMigrations(db); err != nil {
		Logger.Error("Failed to run database migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	Logger.Info("Database migrations completed successfully")

	return &PostgresDB{
		db:         db,
		isEmbedded: isEmbedded,
	}, nil
}

func runPostgresMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Try to find the migrations directory
	// First try from project root
	migrationsPath, err := filepath.Abs("database/migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// If running from within the database directory (during tests), adjust path
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		migrationsPath, err = filepath.Abs("migrations")
		if err != nil {
			return fmt.Errorf("failed to get migrations path: %w", err)
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Check current version and apply migrations
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if dirty {
		// Try to force clean and retry
		Logger.Warn("Database is in dirty state, attempting to recover")
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force migration version: %w", err)
		}
	}

	// Apply latest migrations
	Logger.Info("Applying database migrations")
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	Logger.Info("Database migrations completed successfully")
	return nil
}

// Close closes the database connection and stops embedded server if running
func (p *PostgresDB) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return err
		}
	}

	// Note: Ephemeral PostgreSQL cleanup is handled by EphemeralPostgresDB.Close()
	// This method only closes the database connection

	return nil
}

// ReplaceStamps swaps out the whole stamp set for a variant in one transaction
func (p *PostgresDB) ReplaceStamps(variant string, stamps []*StampImage) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM stamp_images WHERE variant = $1`, variant); err != nil {
		return fmt.Errorf("failed to clear stamp set: %w", err)
	}

	query := `
		INSERT INTO stamp_images (ulid, variant, position, name, png, width, height)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	for _, stamp := range stamps {
		err = tx.QueryRow(query,
			stamp.ULID.String(), stamp.Variant, stamp.Position,
			stamp.Name, stamp.PNG, stamp.Width, stamp.Height,
		).Scan(&stamp.ID)
		if err != nil {
			return fmt.Errorf("failed to insert stamp %q: %w", stamp.Name, err)
		}
	}

	return tx.Commit()
}

// scanStamps is a helper function to scan rows into StampImage structs
func scanStamps(rows *sql.Rows) ([]StampImage, error) {
	var stamps []StampImage

	for rows.Next() {
		stamp := StampImage{}
		var ulidStr string

		err := rows.Scan(
			&stamp.ID, &ulidStr, &stamp.Variant, &stamp.Position,
			&stamp.Name, &stamp.PNG, &stamp.Width, &stamp.Height,
			&stamp.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		ulid, err := ulid.Parse(ulidStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ULID: %w", err)
		}
		stamp.ULID = ulid

		stamps = append(stamps, stamp)
	}

	return stamps, rows.Err()
}

// GetStamps retrieves the stamp set for a variant ordered by position
func (p *PostgresDB) GetStamps(variant string) ([]StampImage, error) {
	query := `SELECT id, ulid, variant, position, name, png, width, height, created_at
	          FROM stamp_images WHERE variant = $1 ORDER BY position`

	rows, err := p.db.Query(query, variant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStamps(rows)
}

// GetStamp retrieves a single stamp by variant and position
func (p *PostgresDB) GetStamp(variant string, position int) (*StampImage, error) {
	query := `SELECT id, ulid, variant, position, name, png, width, height, created_at
	          FROM stamp_images WHERE variant = $1 AND position = $2`

	stamp := &StampImage{}
	var ulidStr string

	err := p.db.QueryRow(query, variant, position).Scan(
		&stamp.ID, &ulidStr, &stamp.Variant, &stamp.Position,
		&stamp.Name, &stamp.PNG, &stamp.Width, &stamp.Height,
		&stamp.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	ulid, err := ulid.Parse(ulidStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ULID: %w", err)
	}
	stamp.ULID = ulid

	return stamp, nil
}

// CountStamps returns the number of stamps stored for a variant
func (p *PostgresDB) CountStamps(variant string) (int, error) {
	var count int
	err := p.db.QueryRow(`SELECT COUNT(*) FROM stamp_images WHERE variant = $1`, variant).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteStamps removes every stamp for a variant and reports how many went
func (p *PostgresDB) DeleteStamps(variant string) (int, error) {
	result, err := p.db.Exec(`DELETE FROM stamp_images WHERE variant = $1`, variant)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(rowsAffected), nil
}

// GetStampVariants returns a per-variant count summary of the stamp library
func (p *PostgresDB) GetStampVariants() ([]StampVariantSummary, error) {
	summaries := make([]StampVariantSummary, 0, len(StampVariants))
	for _, variant := range StampVariants {
		count, err := p.CountStamps(variant)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, StampVariantSummary{Variant: variant, Count: count})
	}
	return summaries, nil
}

// SaveConfig saves server configuration
func (p *PostgresDB) SaveConfig(cfg *config.ServerConfig) error {
	query := `
		UPDATE server_config SET
			listen_addr_ip = $1,
			listen_addr_port = $2,
			storage_path = $3,
			session_ttl_hours = $4,
			cleanup_schedule = $5,
			max_upload_mb = $6,
			pdf_renderer = $7,
			pdf_exporter = $8,
			use_reverse_proxy = $9,
			base_url = $10,
			default_stamp_height_px = $11,
			server_api_url = $12,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`

	_, err := p.db.Exec(query,
		cfg.ListenAddrIP, cfg.ListenAddrPort, cfg.StoragePath,
		cfg.SessionTTLHours, cfg.CleanupSchedule, cfg.MaxUploadMB,
		cfg.PDFRenderer, cfg.PDFExporter, cfg.UseReverseProxy,
		cfg.BaseURL,
		cfg.FrontEndConfig.DefaultStampHeightPx, cfg.FrontEndConfig.ServerAPIURL,
	)

	return err
}

// GetConfig retrieves server configuration
func (p *PostgresDB) GetConfig() (*config.ServerConfig, error) {
	query := `
		SELECT listen_addr_ip, listen_addr_port, storage_path, session_ttl_hours,
		       cleanup_schedule, max_upload_mb, pdf_renderer, pdf_exporter,
		       use_reverse_proxy, base_url, default_stamp_height_px, server_api_url
		FROM server_config WHERE id = 1
	`

	cfg := &config.ServerConfig{}
	err := p.db.QueryRow(query).Scan(
		&cfg.ListenAddrIP, &cfg.ListenAddrPort, &cfg.StoragePath,
		&cfg.SessionTTLHours, &cfg.CleanupSchedule, &cfg.MaxUploadMB,
		&cfg.PDFRenderer, &cfg.PDFExporter, &cfg.UseReverseProxy,
		&cfg.BaseURL,
		&cfg.FrontEndConfig.DefaultStampHeightPx, &cfg.FrontEndConfig.ServerAPIURL,
	)

	if err != nil {
		return nil, err
	}

	return cfg, nil
}
