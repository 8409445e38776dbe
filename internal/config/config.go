// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends accepted in ROOMMATES_STORE.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config is the server configuration.
type Config struct {
	Addr     string `env:"ROOMMATES_ADDR"      envDefault:":8080"`
	LogLevel string `env:"ROOMMATES_LOG_LEVEL" envDefault:"info"`

	Store         string `env:"ROOMMATES_STORE"          envDefault:"sqlite"`
	DBPath        string `env:"ROOMMATES_DB_PATH"        envDefault:"./data/roommates.db"`
	MongoURI      string `env:"ROOMMATES_MONGO_URI"      envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"ROOMMATES_MONGO_DATABASE" envDefault:"roommates"`

	// RedisAddr enables the distributed ledger lock. Empty means in-process.
	RedisAddr  string        `env:"ROOMMATES_REDIS_ADDR"`
	LockExpiry time.Duration `env:"ROOMMATES_LOCK_EXPIRY" envDefault:"10s"`
	LockTries  int           `env:"ROOMMATES_LOCK_TRIES"  envDefault:"32"`

	// KafkaBrokers enables event publishing. Empty means events are dropped.
	KafkaBrokers []string `env:"ROOMMATES_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"ROOMMATES_KAFKA_TOPIC"   envDefault:"roommates.ledger"`

	JWTSecret string        `env:"ROOMMATES_JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"ROOMMATES_TOKEN_TTL" envDefault:"24h"`
}

// Load reads the given dotenv files (".env" when none are given) and then
// parses the environment. Missing dotenv files are skipped; variables
// already set in the environment win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("ROOMMATES_STORE: unknown store %q", c.Store)
	}
	if c.LockExpiry <= 0 {
		return errors.New("ROOMMATES_LOCK_EXPIRY must be positive")
	}
	if c.LockTries < 1 {
		return errors.New("ROOMMATES_LOCK_TRIES must be at least 1")
	}
	if c.TokenTTL <= 0 {
		return errors.New("ROOMMATES_TOKEN_TTL must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("ROOMMATES_KAFKA_TOPIC is required with brokers")
	}
	return nil
}
