package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-notecard/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-notecard/migrations"
)

// TestRun_InvalidConfig verifies that run() returns an error for a bad config path.
func TestRun_InvalidConfig(t *testing.T) {
	err := run(context.Background(), []string{"--config", "/nonexistent/config.yaml", "--env-file", ""})
	if err == nil {
		t.Fatal("run() should return error for nonexistent config")
	}
}

func TestRun_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("upload: [unclosed"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if err := run(context.Background(), []string{"-c", path, "--env-file", ""}); err == nil {
		t.Fatal("run() should return error for malformed YAML")
	}
}

func TestRun_BadFlag(t *testing.T) {
	if err := run(context.Background(), []string{"--no-such-flag"}); err == nil {
		t.Fatal("run() should reject unknown flags")
	}
}

func TestRun_Version(t *testing.T) {
	if err := run(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("run(--version) error = %v", err)
	}
}

// TestRun_Shutdown starts the relay against a device that never opens and
// checks that cancellation produces a clean exit.
func TestRun_Shutdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := "device:\n" +
		"  transport: serial\n" +
		"  endpoint: " + filepath.Join(dir, "no-such-tty") + "\n" +
		"  retry_interval: 1\n" +
		"hub:\n" +
		"  product: com.example.test:relay\n" +
		"api:\n" +
		"  host: 127.0.0.1\n" +
		"  port: " + strconv.Itoa(freePort(t)) + "\n" +
		"database:\n" +
		"  enabled: true\n" +
		"  path: " + filepath.Join(dir, "journal.db") + "\n" +
		"logging:\n" +
		"  level: error\n"
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, []string{"-c", path, "--env-file", ""}) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() error = %v, want nil on cancellation", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("NOTECARD_CONFIG", "/env/config.yaml")
		if got := resolveConfigPath("/flag/config.yaml"); got != "/flag/config.yaml" {
			t.Errorf("resolveConfigPath() = %q, want flag value", got)
		}
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("NOTECARD_CONFIG", "/env/config.yaml")
		if got := resolveConfigPath(""); got != "/env/config.yaml" {
			t.Errorf("resolveConfigPath() = %q, want env value", got)
		}
	})

	t.Run("defaults only", func(t *testing.T) {
		t.Setenv("NOTECARD_CONFIG", "")
		wd, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Chdir(t.TempDir()); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = os.Chdir(wd) })
		if got := resolveConfigPath(""); got != "" {
			t.Errorf("resolveConfigPath() = %q, want empty", got)
		}
	})
}

func TestIgnoreCancel(t *testing.T) {
	if err := ignoreCancel(context.Canceled); err != nil {
		t.Errorf("ignoreCancel(Canceled) = %v", err)
	}
	if err := ignoreCancel(context.DeadlineExceeded); err == nil {
		t.Error("ignoreCancel(DeadlineExceeded) = nil, want error")
	}
	if err := ignoreCancel(nil); err != nil {
		t.Errorf("ignoreCancel(nil) = %v", err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRun_MigrateDown(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "journal.db")

	db, err := database.Open(database.Config{Path: dbPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	path := filepath.Join(dir, "config.yaml")
	cfg := "hub:\n" +
		"  product: com.example.test:relay\n" +
		"database:\n" +
		"  path: " + dbPath + "\n" +
		"logging:\n" +
		"  level: error\n"
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if err := run(context.Background(), []string{"-c", path, "--env-file", "", "--migrate-down"}); err != nil {
		t.Fatalf("run(--migrate-down) error = %v", err)
	}

	db, err = database.Open(database.Config{Path: dbPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()
	applied, pending, err := db.GetMigrationStatus(context.Background(), migrations.FS)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 || len(pending) != 1 {
		t.Errorf("after rollback applied = %d, pending = %d; want 0 and 1", len(applied), len(pending))
	}
}
