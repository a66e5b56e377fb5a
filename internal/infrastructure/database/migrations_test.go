package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/nerrad567/gray-logic-notecard/migrations"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"20260101_000000_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
		"20260102_000000_gadgets.up.sql":   {Data: []byte("CREATE TABLE gadgets (id INTEGER PRIMARY KEY);")},
		"README.md":                        {Data: []byte("ignored")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := testMigrations()

	_, pending, err := db.GetMigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(pending) != 2 || pending[0].Name != "widgets" || pending[1].Name != "gadgets" {
		t.Fatalf("pending = %+v, want widgets then gadgets", pending)
	}

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "widgets") || !tableExists(t, db, "gadgets") {
		t.Error("migrated tables missing")
	}

	applied, pending, err := db.GetMigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2 and 0", len(applied), len(pending))
	}

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"20260101_000000_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"20260101_000000_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
	}
	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatal(err)
	}
	if err := db.MigrateDown(ctx, fsys); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "widgets") {
		t.Error("widgets should have been dropped")
	}

	// Nothing left to roll back.
	if err := db.MigrateDown(ctx, fsys); err != nil {
		t.Errorf("MigrateDown() with nothing applied = %v", err)
	}
}

func TestMigrateDown_NoDownSQL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"20260102_000000_gadgets.up.sql": {Data: []byte("CREATE TABLE gadgets (id INTEGER PRIMARY KEY);")},
	}
	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatal(err)
	}
	if err := db.MigrateDown(ctx, fsys); err == nil {
		t.Error("MigrateDown() without down SQL should fail")
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"20260101_000000_ok.up.sql":     {Data: []byte("CREATE TABLE ok_table (id INTEGER);")},
		"20260102_000000_broken.up.sql": {Data: []byte("CREATE TABLE half (id INTEGER); NOT SQL;")},
	}
	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() should fail on broken SQL")
	}
	if !tableExists(t, db, "ok_table") {
		t.Error("earlier migration should stay committed")
	}
	if tableExists(t, db, "half") {
		t.Error("failed migration should be rolled back")
	}
}

func TestMigrate_NilFS(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(context.Background(), nil); err != nil {
		t.Errorf("Migrate(nil) error = %v", err)
	}
}

func TestMigrate_Embedded(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate(embedded) error = %v", err)
	}
	if !tableExists(t, db, "flush_cycles") {
		t.Error("flush_cycles not created")
	}
	if err := db.MigrateDown(ctx, migrations.FS); err != nil {
		t.Fatalf("MigrateDown(embedded) error = %v", err)
	}
	if tableExists(t, db, "flush_cycles") {
		t.Error("flush_cycles should be dropped")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{"20260301_090000_flush_cycles.up.sql", "20260301_090000", true, true},
		{"20260301_090000_flush_cycles.down.sql", "20260301_090000", false, true},
		{"readme.txt", "", false, false},
		{"20260301_090000_flush_cycles.sql", "", false, false},
		{"invalid.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk || version != tt.wantVersion || isUp != tt.wantIsUp {
				t.Errorf("parseMigrationFilename(%q) = (%q, %v, %v), want (%q, %v, %v)",
					tt.filename, version, isUp, ok, tt.wantVersion, tt.wantIsUp, tt.wantOk)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	if got := extractMigrationName("20260301_090000_flush_cycles.up.sql"); got != "flush_cycles" {
		t.Errorf("extractMigrationName() = %q", got)
	}
}
