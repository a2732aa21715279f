package db

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveSQLiteDSN(t *testing.T) {
	t.Parallel()

	got, err := ResolveSQLiteDSN(" custom.db ", "/ignored")
	if err != nil {
		t.Fatalf("ResolveSQLiteDSN() error = %v", err)
	}
	if got != "custom.db" {
		t.Fatalf("ResolveSQLiteDSN() = %q, want custom.db", got)
	}

	dir := filepath.Join(t.TempDir(), "state")
	got, err = ResolveSQLiteDSN("", dir)
	if err != nil {
		t.Fatalf("ResolveSQLiteDSN() error = %v", err)
	}
	if got != filepath.Join(dir, "data.db") {
		t.Fatalf("ResolveSQLiteDSN() = %q, want data.db under state dir", got)
	}
}

func TestSQLitePragmaDSN(t *testing.T) {
	t.Parallel()

	got := sqlitePragmaDSN("file.db", DefaultConfig().SQLite)
	for _, want := range []string{"file.db?", "busy_timeout(5000)", "journal_mode(WAL)", "synchronous(FULL)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("sqlitePragmaDSN() = %q, want to contain %q", got, want)
		}
	}
	if got := sqlitePragmaDSN("file.db?mode=rwc", SQLiteConfig{WAL: true}); got != "file.db?mode=rwc&_pragma=journal_mode(WAL)" {
		t.Fatalf("sqlitePragmaDSN() = %q", got)
	}
	if got := sqlitePragmaDSN("file.db", SQLiteConfig{}); got != "file.db" {
		t.Fatalf("sqlitePragmaDSN() without pragmas = %q", got)
	}
}

func TestOpenMigratesTables(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "data.db")
	gdb, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, _ := gdb.DB()
	defer sqlDB.Close()

	for _, table := range []string{"message_links", "pending_replies"} {
		if !gdb.Migrator().HasTable(table) {
			t.Fatalf("table %s missing after Open()", table)
		}
	}
	// Migrations are idempotent.
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate() second run error = %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Driver = "postgres"
	cfg.DSN = "x"
	if _, err := Open(cfg); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
