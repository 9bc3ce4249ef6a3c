package ledger

import (
	"database/sql"
	"net/url"
	"path/filepath"
	"testing"
)

func testRawDB(t *testing.T) *sql.DB {
	t.Helper()
	u := url.URL{Scheme: "file", Path: filepath.Join(t.TempDir(), "test.db")}
	db, err := sql.Open("sqlite", u.String())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := testRawDB(t)

	for i := 0; i < 2; i++ {
		if err := runMigrations(db); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	version, err := currentVersion(db)
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if version != len(migrations) {
		t.Fatalf("expected version %d, got %d", len(migrations), version)
	}

	for _, table := range []string{"attachments", "datasets"} {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count); err != nil {
			t.Fatalf("check %s: %v", table, err)
		}
		if count != 1 {
			t.Fatalf("%s table not created", table)
		}
	}
}

func TestRunMigrationsResumesFromPartialVersion(t *testing.T) {
	db := testRawDB(t)
	if err := ensureMigrationsTable(db); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := db.Exec(migrations[0].SQL); err != nil {
		t.Fatalf("apply v1: %v", err)
	}
	if _, err := db.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (1, datetime('now'))"); err != nil {
		t.Fatalf("stamp v1: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("run: %v", err)
	}
	version, err := currentVersion(db)
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected version 2, got %d", version)
	}
}

func TestSchemaStatus(t *testing.T) {
	st := testStore(t)
	status, err := st.SchemaStatus()
	if err != nil {
		t.Fatalf("schema status: %v", err)
	}
	if status.CurrentVersion != status.AvailableVersion || len(status.Pending) != 0 {
		t.Fatalf("expected up-to-date schema, got %#v", status)
	}
}
