package database

import (
	"context"
	"testing"
	"testing/fstest"
)

var testMigrations = fstest.MapFS{
	"20260101_000000_readings.up.sql":   {Data: []byte("CREATE TABLE readings (id INTEGER PRIMARY KEY, value REAL);")},
	"20260101_000000_readings.down.sql": {Data: []byte("DROP TABLE readings;")},
	"20260102_000000_pairs.up.sql":      {Data: []byte("CREATE TABLE pairs (humidity TEXT, temperature TEXT);")},
	"README.md":                         {Data: []byte("not a migration")},
	"20260103_000000_orphan.down.sql":   {Data: []byte("DROP TABLE orphan;")},
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrate_AppliesInOrderAndIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	n, err := db.Migrate(ctx, testMigrations)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Migrate() applied %d, want 2", n)
	}
	if !tableExists(t, db, "readings") || !tableExists(t, db, "pairs") {
		t.Error("migration tables missing")
	}

	n, err = db.Migrate(ctx, testMigrations)
	if err != nil || n != 0 {
		t.Errorf("second Migrate() = %d, %v; want 0, nil", n, err)
	}

	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 2 || applied[0].Version != "20260101_000000" || applied[1].Version != "20260102_000000" {
		t.Errorf("AppliedMigrations() = %+v", applied)
	}
}

func TestMigrate_StopsAtFailure(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"20260101_000000_ok.up.sql":  {Data: []byte("CREATE TABLE ok_table (id INTEGER);")},
		"20260102_000000_bad.up.sql": {Data: []byte("CREATE TABLE (;")},
	}

	n, err := db.Migrate(context.Background(), fsys)
	if err == nil {
		t.Fatal("Migrate() error = nil, want failure")
	}
	if n != 1 {
		t.Errorf("Migrate() applied %d before failing, want 1", n)
	}
	if !tableExists(t, db, "ok_table") {
		t.Error("migration before the failure was not kept")
	}
}

func TestRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"20260101_000000_readings.up.sql":   testMigrations["20260101_000000_readings.up.sql"],
		"20260101_000000_readings.down.sql": testMigrations["20260101_000000_readings.down.sql"],
	}

	if _, err := db.Migrate(ctx, fsys); err != nil {
		t.Fatal(err)
	}
	if err := db.Rollback(ctx, fsys); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if tableExists(t, db, "readings") {
		t.Error("table survived rollback")
	}
	if err := db.Rollback(ctx, fsys); err != nil {
		t.Errorf("Rollback() with nothing applied = %v", err)
	}
}

func TestRollback_WithoutDownSQL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"20260102_000000_pairs.up.sql": testMigrations["20260102_000000_pairs.up.sql"],
	}
	if _, err := db.Migrate(ctx, fsys); err != nil {
		t.Fatal(err)
	}
	if err := db.Rollback(ctx, fsys); err == nil {
		t.Error("Rollback() without down SQL should fail")
	}
}

func TestLoadMigrations(t *testing.T) {
	ms, err := LoadMigrations(testMigrations)
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("LoadMigrations() = %d migrations, want 2 (orphan down ignored)", len(ms))
	}
	if ms[0].Name != "readings" || ms[0].DownSQL == "" {
		t.Errorf("first migration = %+v", ms[0])
	}
	if ms[1].Name != "pairs" || ms[1].DownSQL != "" {
		t.Errorf("second migration = %+v", ms[1])
	}

	none, err := LoadMigrations(nil)
	if err != nil || none != nil {
		t.Errorf("LoadMigrations(nil) = %v, %v", none, err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		file        string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260301_120000_audit_logs.up.sql", "20260301_120000", "audit_logs", true, true},
		{"20260301_120000_audit_logs.down.sql", "20260301_120000", "audit_logs", false, true},
		{"20260301_120000.up.sql", "20260301_120000", "20260301_120000", true, true},
		{"20260301.up.sql", "", "", false, false},
		{"20260301_120000_x.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			v, n, up, ok := parseMigrationFilename(tt.file)
			if v != tt.wantVersion || n != tt.wantName || up != tt.wantUp || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = %q, %q, %v, %v", tt.file, v, n, up, ok)
			}
		})
	}
}
