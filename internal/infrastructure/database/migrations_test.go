package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"20260101_000000_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
		"20260102_000000_gadgets.up.sql":   {Data: []byte("CREATE TABLE gadgets (id TEXT PRIMARY KEY);")},
		"20260102_000000_gadgets.down.sql": {Data: []byte("DROP TABLE gadgets;")},
		"README.md":                        {Data: []byte("ignored")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	src := testMigrations()

	if err := db.Migrate(ctx, src); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "widgets") || !tableExists(t, db, "gadgets") {
		t.Fatal("migrated tables missing")
	}

	applied, pending, err := db.MigrationStatus(ctx, src)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2 and 0", len(applied), len(pending))
	}
	if applied[0].Version != "20260101_000000" {
		t.Errorf("applied[0].Version = %q, want oldest first", applied[0].Version)
	}

	// Re-running is a no-op.
	if err := db.Migrate(ctx, src); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	src := testMigrations()

	if err := db.Migrate(ctx, src); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, src); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(t, db, "gadgets") {
		t.Error("latest migration not rolled back")
	}
	if !tableExists(t, db, "widgets") {
		t.Error("earlier migration rolled back too")
	}

	_, pending, err := db.MigrationStatus(ctx, src)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "gadgets" {
		t.Errorf("pending = %+v, want [gadgets]", pending)
	}
}

func TestMigrate_NilSource(t *testing.T) {
	db := openTestDB(t)

	if err := db.Migrate(context.Background(), nil); err != nil {
		t.Errorf("Migrate(nil) error = %v", err)
	}
	if err := db.MigrateDown(context.Background(), nil); err != nil {
		t.Errorf("MigrateDown(nil) error = %v", err)
	}
}

func TestMigrate_FailureStopsAtBrokenMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	src := fstest.MapFS{
		"20260101_000000_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id TEXT);")},
		"20260102_000000_broken.up.sql": {Data: []byte("CREATE TABLE;")},
	}

	if err := db.Migrate(ctx, src); err == nil {
		t.Fatal("Migrate() expected error for broken migration")
	}
	if !tableExists(t, db, "ok") {
		t.Error("migration before the failure should stay committed")
	}

	applied, pending, err := db.MigrationStatus(ctx, src)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 1 and 1", len(applied), len(pending))
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantUp      bool
		wantOK      bool
	}{
		{"up migration", "20260118_120000_audit_logs.up.sql", "20260118_120000", true, true},
		{"down migration", "20260118_120000_audit_logs.down.sql", "20260118_120000", false, true},
		{"no direction", "20260118_120000_audit_logs.sql", "", false, false},
		{"not sql", "20260118_120000_audit_logs.up.txt", "", false, false},
		{"no version", "audit.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if version != tt.wantVersion || isUp != tt.wantUp || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = (%q, %v, %v), want (%q, %v, %v)",
					tt.filename, version, isUp, ok, tt.wantVersion, tt.wantUp, tt.wantOK)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260118_120000_audit_logs.up.sql", "audit_logs"},
		{"20260118_120000_audit_logs.down.sql", "audit_logs"},
		{"short.up.sql", "short"},
	}

	for _, tt := range tests {
		if got := extractMigrationName(tt.filename); got != tt.want {
			t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
