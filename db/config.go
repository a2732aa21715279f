package db

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type SQLiteConfig struct {
	BusyTimeoutMs int
	WAL           bool
	ForeignKeys   bool
	// SynchronousFull makes every commit fsync before returning.
	SynchronousFull bool
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Config struct {
	Driver      string
	DSN         string
	Pool        PoolConfig
	SQLite      SQLiteConfig
	AutoMigrate bool
}

func DefaultConfig() Config {
	return Config{
		Driver: "sqlite",
		DSN:    "",
		Pool: PoolConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 0,
		},
		SQLite: SQLiteConfig{
			BusyTimeoutMs:   5000,
			WAL:             true,
			ForeignKeys:     true,
			SynchronousFull: true,
		},
		AutoMigrate: true,
	}
}

// ResolveSQLiteDSN returns dsn unchanged when set, otherwise <stateDir>/data.db
// (creating stateDir). An empty stateDir means ./data.db in the working directory.
func ResolveSQLiteDSN(dsn string, stateDir string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn != "" {
		return dsn, nil
	}
	stateDir = strings.TrimSpace(stateDir)
	if stateDir == "" {
		return filepath.Clean("./data.db"), nil
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "data.db"), nil
}

// sqlitePragmaDSN appends the connection pragmas to a file DSN.
func sqlitePragmaDSN(dsn string, cfg SQLiteConfig) string {
	var pragmas []string
	if cfg.BusyTimeoutMs > 0 {
		pragmas = append(pragmas, "_pragma=busy_timeout("+strconv.Itoa(cfg.BusyTimeoutMs)+")")
	}
	if cfg.WAL {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	if cfg.ForeignKeys {
		pragmas = append(pragmas, "_pragma=foreign_keys(1)")
	}
	if cfg.SynchronousFull {
		pragmas = append(pragmas, "_pragma=synchronous(FULL)")
	}
	if len(pragmas) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}
