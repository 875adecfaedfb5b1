package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port             string
	BodyLimitBytes   int
	AllowedOrigins   string
	RateLimitMax     int
	RateLimitWindow  time.Duration
	LogLevel         string
	LogFormat        string
	ListLimitDefault int
	ListLimitMax     int
	Database         Database
	Seller           Seller
}

type Database struct {
	Driver          string
	DSN             string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Seller is the issuing business printed on rendered invoices.
type Seller struct {
	Name           string
	Address        string
	Phone          string
	Email          string
	CurrencySymbol string
}

// Load reads envFile (if present) into the process environment and builds a Config.
// A missing env file is not an error.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	// Fiber default BodyLimit is 4 MB; BODY_LIMIT_BYTES wins over BODY_LIMIT_MB.
	bodyLimit := envInt("BODY_LIMIT_BYTES", 0)
	if bodyLimit <= 0 {
		bodyLimit = envInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}

	cfg := Config{
		Port:             envString("PORT", "8080"),
		BodyLimitBytes:   bodyLimit,
		AllowedOrigins:   envString("ALLOWED_ORIGINS", "*"),
		RateLimitMax:     envInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow:  time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		LogLevel:         envString("LOG_LEVEL", "info"),
		LogFormat:        envString("LOG_FORMAT", "json"),
		ListLimitDefault: envInt("LIST_LIMIT_DEFAULT", 10),
		ListLimitMax:     envInt("LIST_LIMIT_MAX", 100),
		Database: Database{
			Driver:          strings.ToLower(envString("DB_DRIVER", DriverSQLite)),
			SQLitePath:      envString("SQLITE_PATH", "invoices.db"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(envInt("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
		},
		Seller: Seller{
			Name:           envString("SELLER_NAME", "ScrewFast Ltd"),
			Address:        envString("SELLER_ADDRESS", "123 Star Road"),
			Phone:          envString("SELLER_PHONE", "07494 123 456"),
			Email:          envString("SELLER_EMAIL", "info@screwfast.com"),
			CurrencySymbol: envString("CURRENCY_SYMBOL", "£"),
		},
	}

	switch cfg.Database.Driver {
	case DriverPostgres:
		cfg.Database.DSN = postgresDSN()
	case DriverSQLite:
		cfg.Database.DSN = cfg.Database.SQLitePath
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q (want %s or %s)", cfg.Database.Driver, DriverPostgres, DriverSQLite)
	}

	if cfg.ListLimitDefault <= 0 {
		cfg.ListLimitDefault = 10
	}
	if cfg.ListLimitMax < cfg.ListLimitDefault {
		cfg.ListLimitMax = cfg.ListLimitDefault
	}
	return cfg, nil
}

func postgresDSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		envString("DB_HOST", "db"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		envString("DB_PORT", "5432"),
		envString("DB_SSLMODE", "disable"),
	)
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
