package library

import (
	"os"
	"strconv"
	"time"
)

// DefaultGenres is the fixed genre enumeration. Items may only carry one
// of these; the set is configuration, not per-item data.
var DefaultGenres = []string{"Fiction", "Non-Fiction", "Sci-Fi", "Mystery", "Biography"}

const (
	DefaultBorrowLimit = 3
	DefaultIdleTimeout = 30 * time.Minute
	DefaultDBPath      = "readeasy.db"
)

// Config holds the runtime knobs of the system. Values come from the
// environment (a .env file is honored when present, see main).
type Config struct {
	DBPath      string
	BorrowLimit int
	IdleTimeout time.Duration
	Genres      []string
}

// LoadConfig reads configuration from the environment, falling back to the
// documented defaults.
func LoadConfig() Config {
	cfg := Config{
		DBPath:      DefaultDBPath,
		BorrowLimit: DefaultBorrowLimit,
		IdleTimeout: DefaultIdleTimeout,
		Genres:      DefaultGenres,
	}
	if v := os.Getenv("READEASY_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("READEASY_BORROW_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BorrowLimit = n
		}
	}
	if v := os.Getenv("READEASY_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.IdleTimeout = d
		}
	}
	return cfg
}
