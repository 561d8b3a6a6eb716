// Package config loads deployment configuration: an optional TOML file with
// environment-variable overrides. Values are read once at startup and are
// immutable afterwards.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Addresses of the services, both for listening and for cross-service calls.
type Addresses struct {
	Identity     string `toml:"identity"`
	Directory    string `toml:"directory"`
	Reservations string `toml:"reservations"`
	Ledger       string `toml:"ledger"`
	Reputation   string `toml:"reputation"`
}

// Config is the process-wide configuration shared by every service command.
type Config struct {
	// Secret is the pre-shared token signing secret. It must never be
	// logged or transmitted. Exactly one of Secret / SecretFile is set
	// after Load.
	Secret     string `toml:"secret"`
	SecretFile string `toml:"secret_file"`

	// Listen holds the listen addresses (host:port) per service.
	Listen Addresses `toml:"listen"`
	// Peers holds the base URLs other services are reached at.
	Peers Addresses `toml:"peers"`

	// StorageBackend selects the store implementation: memory, sqlite or
	// postgres.
	StorageBackend string `toml:"storage_backend"`
	// SQLitePath is the directory sqlite store files are created in.
	SQLitePath string `toml:"sqlite_path"`
	// DatabaseURL is the postgres DSN.
	DatabaseURL string `toml:"database_url"`

	// KafkaBrokers enables settlement event publishing when non-empty.
	KafkaBrokers []string `toml:"kafka_brokers"`

	// MetricsEnabled exposes /metrics on the reservations service.
	MetricsEnabled bool `toml:"metrics_enabled"`
}

// Load reads path (when non-empty) and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)

	if cfg.Secret == "" && cfg.SecretFile != "" {
		b, err := os.ReadFile(cfg.SecretFile)
		if err != nil {
			return Config{}, fmt.Errorf("read secret file: %w", err)
		}
		cfg.Secret = strings.TrimSpace(string(b))
	}
	if cfg.Secret == "" {
		return Config{}, fmt.Errorf("missing token secret: set MARKET_SECRET or secret_file")
	}
	switch cfg.StorageBackend {
	case "memory", "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("unknown storage_backend %q", cfg.StorageBackend)
	}
	if cfg.StorageBackend == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("storage_backend=postgres requires DATABASE_URL")
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Listen: Addresses{
			Identity:     ":9000",
			Directory:    ":9001",
			Reservations: ":9002",
			Ledger:       ":9003",
			Reputation:   ":9004",
		},
		Peers: Addresses{
			Identity:     "http://127.0.0.1:9000",
			Directory:    "http://127.0.0.1:9001",
			Reservations: "http://127.0.0.1:9002",
			Ledger:       "http://127.0.0.1:9003",
			Reputation:   "http://127.0.0.1:9004",
		},
		StorageBackend: "memory",
		SQLitePath:     ".",
	}
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Secret, "MARKET_SECRET")
	set(&cfg.SecretFile, "MARKET_SECRET_FILE")
	set(&cfg.StorageBackend, "STORAGE_BACKEND")
	set(&cfg.SQLitePath, "SQLITE_PATH")
	set(&cfg.DatabaseURL, "DATABASE_URL")

	set(&cfg.Listen.Identity, "IDENTITY_LISTEN")
	set(&cfg.Listen.Directory, "DIRECTORY_LISTEN")
	set(&cfg.Listen.Reservations, "RESERVATIONS_LISTEN")
	set(&cfg.Listen.Ledger, "LEDGER_LISTEN")
	set(&cfg.Listen.Reputation, "REPUTATION_LISTEN")

	set(&cfg.Peers.Identity, "IDENTITY_URL")
	set(&cfg.Peers.Directory, "DIRECTORY_URL")
	set(&cfg.Peers.Reservations, "RESERVATIONS_URL")
	set(&cfg.Peers.Ledger, "LEDGER_URL")
	set(&cfg.Peers.Reputation, "REPUTATION_URL")

	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	if v := strings.TrimSpace(os.Getenv("METRICS_ENABLED")); v != "" {
		cfg.MetricsEnabled = v == "1" || strings.EqualFold(v, "true")
	}
}
