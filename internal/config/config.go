// Package config loads process configuration once at startup.
//
// Values come from the environment, optionally seeded from a .env file in the
// working directory. The resulting Config is a plain value: it is built once in
// main and passed by value into every constructor that needs it, so nothing
// below cmd/ ever reads the environment directly.
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

// Storage drivers selected from DATABASE_URL.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MinSecretKeyLength matches the minimum the token service accepts.
const MinSecretKeyLength = 16

type Config struct {
	Env  string // development, staging, production
	Port int

	// Database
	DatabaseURL       string // bare path, sqlite://path or postgres://...
	DBMaxConns        int32
	DBMinConns        int32
	DBConnMaxLifetime time.Duration

	// Auth
	SecretKey      string
	AccessTokenTTL time.Duration

	// Rate limiting on /auth. Disabled when RedisURL is empty.
	RedisURL        string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// Load reads .env (if present) and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return parse(os.Getenv)
}

// parse builds a Config from a lookup function. Every problem is collected
// so a misconfigured deployment reports all of them at once.
func parse(get func(string) string) (Config, error) {
	p := parser{get: get}

	cfg := Config{
		Env:               p.str("ENV", "development"),
		Port:              p.integer("PORT", 8000),
		DatabaseURL:       p.str("DATABASE_URL", "data/todo.db"),
		DBMaxConns:        int32(p.integer("DB_MAX_CONNS", 10)),
		DBMinConns:        int32(p.integer("DB_MIN_CONNS", 1)),
		DBConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		SecretKey:         p.str("SECRET_KEY", ""),
		AccessTokenTTL:    time.Duration(p.integer("ACCESS_TOKEN_EXPIRE_MINUTES", 1440)) * time.Minute,
		RedisURL:          p.str("REDIS_URL", ""),
		RateLimitMax:      p.integer("RATE_LIMIT_MAX", 20),
		RateLimitWindow:   p.duration("RATE_LIMIT_WINDOW", time.Minute),
	}

	if len(cfg.SecretKey) < MinSecretKeyLength {
		p.fail("SECRET_KEY must be at least %d characters", MinSecretKeyLength)
	}
	if cfg.AccessTokenTTL <= 0 {
		p.fail("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		p.fail("PORT must be between 1 and 65535")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		p.fail("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether ENV is "production".
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Driver returns DriverPostgres for postgres:// and postgresql:// URLs and
// DriverSQLite for everything else.
func (c Config) Driver() string {
	u := strings.ToLower(c.DatabaseURL)
	if strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// SQLitePath strips an optional sqlite:// prefix from DatabaseURL.
func (c Config) SQLitePath() string {
	return strings.TrimPrefix(c.DatabaseURL, "sqlite://")
}

type parser struct {
	get  func(string) string
	errs []error
}

func (p *parser) fail(format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf(format, args...))
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.get(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := strings.TrimSpace(p.get(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		p.fail("invalid integer for %s: %q", key, v)
		return def
	}
	return i
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.get(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail("invalid duration for %s: %q", key, v)
		return def
	}
	return d
}
