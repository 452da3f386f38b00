package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env         string `yaml:"env"`
	ListenAddr  string `yaml:"listen_addr"`
	StoreDriver string `yaml:"store_driver"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`
	LogLevel    string `yaml:"log_level"`
	SentryDSN   string `yaml:"sentry_dsn"`

	RefreshWorkers  int           `yaml:"refresh_workers"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	StaleAfter      time.Duration `yaml:"stale_after"`

	ProbeTimeout          time.Duration `yaml:"probe_timeout"`
	DNSResolver           string        `yaml:"dns_resolver"`
	WhoisCacheSize        int           `yaml:"whois_cache_size"`
	WhoisCacheTTL         time.Duration `yaml:"whois_cache_ttl"`
	MaxConcurrentAnalyses int           `yaml:"max_concurrent_analyses"`
}

func defaults() Config {
	return Config{
		Env:                   "development",
		ListenAddr:            ":8080",
		StoreDriver:           DriverPostgres,
		SQLitePath:            "./data/trustlens.db",
		LogLevel:              "info",
		RefreshInterval:       time.Minute,
		StaleAfter:            24 * time.Hour,
		ProbeTimeout:          5 * time.Second,
		WhoisCacheSize:        1024,
		WhoisCacheTTL:         6 * time.Hour,
		MaxConcurrentAnalyses: 32,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		_, err := fmt.Sscanf(v, "%d", &out)
		if err == nil {
			return out
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// ReadFile overlays a YAML file onto cfg. Keys absent from the file keep
// their current values.
func ReadFile(path string, cfg *Config) error {
	f, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(f, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

// Load builds the config from defaults, an optional CONFIG_FILE, then the
// environment. The Config is populated even when an error is returned.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := ReadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.Env = getenv("APP_ENV", cfg.Env)
	cfg.ListenAddr = getenv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.StoreDriver = strings.ToLower(getenv("STORE_DRIVER", cfg.StoreDriver))
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLitePath = getenv("SQLITE_PATH", cfg.SQLitePath)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.SentryDSN = getenv("SENTRY_DSN", cfg.SentryDSN)
	cfg.RefreshWorkers = getenvInt("REFRESH_WORKERS", cfg.RefreshWorkers)
	cfg.RefreshInterval = getenvDuration("REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.StaleAfter = getenvDuration("STALE_AFTER", cfg.StaleAfter)
	cfg.ProbeTimeout = getenvDuration("PROBE_TIMEOUT", cfg.ProbeTimeout)
	cfg.DNSResolver = getenv("DNS_RESOLVER", cfg.DNSResolver)
	cfg.WhoisCacheSize = getenvInt("WHOIS_CACHE_SIZE", cfg.WhoisCacheSize)
	cfg.WhoisCacheTTL = getenvDuration("WHOIS_CACHE_TTL", cfg.WhoisCacheTTL)
	cfg.MaxConcurrentAnalyses = getenvInt("MAX_CONCURRENT_ANALYSES", cfg.MaxConcurrentAnalyses)

	return cfg, cfg.Validate()
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL not set")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH not set")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StaleAfter <= 0 {
		return fmt.Errorf("STALE_AFTER must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("PROBE_TIMEOUT must be positive")
	}
	return nil
}

func (c Config) Development() bool { return c.Env == "development" }
