package library

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreJSON   = "json"
)

// Config holds runtime settings read from the environment.
type Config struct {
	StoreKind string // sqlite or json
	StorePath string
	LoanLimit int
	LogLevel  slog.Level

	// pathSet records that LIBRARY_DB chose StorePath explicitly.
	pathSet bool

	SMTPAddr        string
	SMTPFrom        string
	SMTPUser        string
	SMTPPassword    string
	EmailsPerSecond float64
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		StoreKind:       StoreSQLite,
		StorePath:       DefaultStorePath(StoreSQLite),
		LoanLimit:       DefaultLoanLimit,
		LogLevel:        slog.LevelInfo,
		EmailsPerSecond: 5,
	}
}

// DefaultStorePath is the file used by a backend when no path is configured.
func DefaultStorePath(kind string) string {
	if kind == StoreJSON {
		return "library.json"
	}
	return "library.db"
}

// SetStoreKind switches the backend. Unless a path was configured explicitly,
// StorePath follows the new backend's default.
func (c *Config) SetStoreKind(kind string) {
	c.StoreKind = strings.ToLower(kind)
	if !c.pathSet {
		c.StorePath = DefaultStorePath(c.StoreKind)
	}
}

// SetStorePath overrides the backend's file location.
func (c *Config) SetStorePath(path string) {
	c.StorePath = path
	c.pathSet = true
}

// LoadConfig reads an optional .env file in the working directory and then
// the LIBRARY_* environment variables.
func LoadConfig() (Config, error) {
	// A missing .env is normal; variables may come from the environment.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if v := os.Getenv("LIBRARY_STORE"); v != "" {
		cfg.SetStoreKind(v)
	}
	if v := os.Getenv("LIBRARY_DB"); v != "" {
		cfg.SetStorePath(v)
	}
	if v := os.Getenv("LIBRARY_LOAN_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("LIBRARY_LOAN_LIMIT: invalid value %q", v)
		}
		cfg.LoanLimit = n
	}
	if v := os.Getenv("LIBRARY_LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("LIBRARY_LOG_LEVEL: %w", err)
		}
	}
	cfg.SMTPAddr = os.Getenv("LIBRARY_SMTP_ADDR")
	cfg.SMTPFrom = os.Getenv("LIBRARY_SMTP_FROM")
	cfg.SMTPUser = os.Getenv("LIBRARY_SMTP_USER")
	cfg.SMTPPassword = os.Getenv("LIBRARY_SMTP_PASSWORD")
	if v := os.Getenv("LIBRARY_EMAIL_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("LIBRARY_EMAIL_PER_SECOND: %w", err)
		}
		cfg.EmailsPerSecond = f
	}

	if cfg.StoreKind != StoreSQLite && cfg.StoreKind != StoreJSON {
		return cfg, fmt.Errorf("LIBRARY_STORE: unknown store %q", cfg.StoreKind)
	}
	return cfg, nil
}

// EmailEnabled reports whether enough SMTP settings exist to send mail.
func (c Config) EmailEnabled() bool {
	return c.SMTPAddr != "" && c.SMTPFrom != ""
}
