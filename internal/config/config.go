// Package config loads process configuration from SATCORE_-prefixed
// environment variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "SATCORE_"

// Config is the full runtime configuration.
type Config struct {
	Storage    Storage
	Blob       Blob       `envPrefix:"BLOB_"`
	OceanColor OceanColor `envPrefix:"OCEANCOLOR_"`
	Celestrak  Celestrak  `envPrefix:"CELESTRAK_"`
	Log        Log        `envPrefix:"LOG_"`

	// RequestTimeout and MaxTickDuration have no defaults; serve refuses to
	// start without them.
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"`
	MaxTickDuration time.Duration `env:"MAX_TICK_DURATION"`

	UserAgent   string `env:"USER_AGENT" envDefault:"satcore/1.0"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// Storage selects the repository backend.
type Storage struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"memory"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/satcore.db"`
	PostgresDSN string `env:"POSTGRES_DSN"`
}

// Blob selects the object store for rendered images.
type Blob struct {
	Driver      string `env:"DRIVER" envDefault:"fs"`
	FSRoot      string `env:"FS_ROOT" envDefault:"data"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3PathStyle bool   `env:"S3_PATH_STYLE"`
}

// OceanColor configures the oceandata search/download client and ingestion job.
type OceanColor struct {
	BaseURL       string        `env:"BASE_URL" envDefault:"https://oceandata.sci.gsfc.nasa.gov"`
	Token         string        `env:"TOKEN"`
	TrustedDomain string        `env:"TRUSTED_DOMAIN" envDefault:"nasa.gov"`
	Interval      time.Duration `env:"INTERVAL" envDefault:"1h"`
	Lookback      time.Duration `env:"LOOKBACK" envDefault:"24h"`
	Group         string        `env:"GROUP" envDefault:"geophysical_data"`
	Variable      string        `env:"VARIABLE" envDefault:"sst4"`
	RateLimit     float64       `env:"RATE_LIMIT"`
}

// Celestrak configures the orbital catalog client and TLE refresh job.
type Celestrak struct {
	BaseURL  string        `env:"BASE_URL" envDefault:"https://celestrak.org"`
	Interval time.Duration `env:"INTERVAL" envDefault:"24h"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"1h"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// Load reads the given .env files when present, then parses the process
// environment. Missing .env files are not an error.
func Load(dotenv ...string) (Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return Parse(nil)
}

// Parse builds a Config from environ, or from the process environment when
// environ is nil.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix, Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks driver selections and their required settings.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Storage.Driver) {
	case "memory", "sqlite":
	case "postgres", "postgresql":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New(Prefix+"POSTGRES_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch strings.ToLower(c.Blob.Driver) {
	case "", "fs", "memory":
	case "s3":
		if c.Blob.S3Bucket == "" {
			errs = append(errs, errors.New(Prefix+"BLOB_S3_BUCKET is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ValidateServe adds the checks that only matter for the long-running
// scheduler process.
func (c Config) ValidateServe() error {
	errs := []error{c.Validate()}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New(Prefix+"REQUEST_TIMEOUT must be set to a positive duration"))
	}
	if c.MaxTickDuration <= 0 {
		errs = append(errs, errors.New(Prefix+"MAX_TICK_DURATION must be set to a positive duration"))
	}
	if c.OceanColor.Interval <= 0 || c.Celestrak.Interval <= 0 {
		errs = append(errs, errors.New("job intervals must be positive"))
	}
	if c.OceanColor.Token == "" {
		errs = append(errs, errors.New(Prefix+"OCEANCOLOR_TOKEN is required"))
	}
	if c.OceanColor.TrustedDomain == "" {
		errs = append(errs, errors.New(Prefix+"OCEANCOLOR_TRUSTED_DOMAIN is required"))
	}
	return errors.Join(errs...)
}
