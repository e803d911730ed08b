package database

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stapelberg/postgrestest"
)

func TestEphemeralPostgres(t *testing.T) {
	// Setup logger for test
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	t.Log("Starting ephemeral PostgreSQL test...")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Try starting ephemeral PostgreSQL with minimal options
	t.Log("Attempting to start postgrestest server...")
	pgt, err := postgrestest.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start ephemeral postgres: %v", err)
	}
	defer pgt.Cleanup()

	t.Log("Ephemeral PostgreSQL server started successfully!")

	// Get the default database DSN
	defaultDSN := pgt.DefaultDatabase()
	t.Logf("Default database DSN: %s", defaultDSN)

	// Try connecting to it
	db, err := sql.Open("postgres", defaultDSN)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Test the connection
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	t.Log("Successfully connected to ephemeral PostgreSQL!")

	// Create a test table
	_, err = db.Exec(`CREATE TABLE test_table (id SERIAL PRIMARY KEY, name VARCHAR(100))`)
	if err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}

	// Insert test data
	_, err = db.Exec(`INSERT INTO test_table (name) VALUES ('test')`)
	if err != nil {
		t.Fatalf("Failed to insert test data: %v", err)
	}

	// Query test data
	var name string
	err = db.QueryRow(`SELECT name FROM test_table WHERE id = 1`).Scan(&name)
	if err != nil {
		t.Fatalf("Failed to query test data: %v", err)
	}

	if name != "test" {
		t.Fatalf("Expected name 'test', got '%s'", name)
	}

	t.Log("Ephemeral PostgreSQL test completed successfully!")
}

func TestSetupEphemeralPostgresDatabase(t *testing.T) {
	// Setup logger for test
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	t.Log("Testing SetupEphemeralPostgresDatabase function...")

	ephemeralDB, err := SetupEphemeralPostgresDatabase()
	if err != nil {
		t.Fatalf("Failed to setup ephemeral postgres database: %v", err)
	}
	defer ephemeralDB.Close()

	t.Log("Ephemeral database setup successfully!")

	// Store a stamp set through the Repository surface
	uploads := []StampUpload{
		{Name: "initials.png", Data: makeTestPNG(t, 90, 90)},
	}

	stored, err := StoreStampSet(VariantInitial, uploads, ephemeralDB)
	if err != nil {
		t.Fatalf("Failed to store stamp set: %v", err)
	}

	t.Logf("Stamp saved with ID: %d", stored[0].ID)

	// Retrieve the stamp back by position
	retrieved, err := ephemeralDB.PostgresDB.GetStamp(VariantInitial, 0)
	if err != nil {
		t.Fatalf("Failed to retrieve stamp: %v", err)
	}

	if retrieved.Name != uploads[0].Name {
		t.Fatalf("Expected stamp name '%s', got '%s'", uploads[0].Name, retrieved.Name)
	}

	if retrieved.Width != 90 || retrieved.Height != 90 {
		t.Fatalf("Expected dimensions 90x90, got %dx%d", retrieved.Width, retrieved.Height)
	}

	// Job tracking runs on the same ephemeral schema
	job, err := ephemeralDB.CreateJob(JobTypeRenderDocument, retrieved.ULID.String(), "Rendering pages")
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	if err := ephemeralDB.CompleteJob(job.ID, `{"pages": 1}`); err != nil {
		t.Fatalf("Failed to complete job: %v", err)
	}

	completed, err := ephemeralDB.GetJob(job.ID)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if completed.Status != JobStatusCompleted {
		t.Fatalf("Expected status %s, got %s", JobStatusCompleted, completed.Status)
	}

	t.Log("Successfully saved and retrieved stamps from ephemeral database!")
}
