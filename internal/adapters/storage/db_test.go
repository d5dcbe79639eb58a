package storage

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// openTestDB creates an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// each pooled connection would get its own in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableNames(t *testing.T, db *sql.DB) map[string]bool {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()
	names := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names[name] = true
	}
	return names
}

// TestMigrateDB verifies tables and version after migrating a fresh database.
func TestMigrateDB(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := MigrateDB(ctx, db); err != nil {
		t.Fatalf("MigrateDB: %v", err)
	}
	names := tableNames(t, db)
	for _, want := range []string{"schema_version", "audit_event"} {
		if !names[want] {
			t.Errorf("missing table %s", want)
		}
	}
	v, err := SchemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != LatestSchemaVersion() {
		t.Errorf("version = %d, want %d", v, LatestSchemaVersion())
	}
}

// TestMigrateDB_Idempotent verifies a second run applies nothing and keeps one version row.
func TestMigrateDB_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := MigrateDB(ctx, db); err != nil {
			t.Fatalf("MigrateDB run %d: %v", i+1, err)
		}
	}
	var rows int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("schema_version rows = %d, want 1", rows)
	}
}
