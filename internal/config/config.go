// Package config loads the application configuration from a YAML file,
// fills unset fields with production defaults, and lets the environment
// override secrets so they stay out of config files.
//
// Usage:
//
//	cfg, err := config.Load("configs/vdrive.yaml")
//	if err != nil { ... }
package config

import (
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/vdrive/internal/errs"
)

// Config is the full application configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	Store     Store     `yaml:"store"`
	Icons     Icons     `yaml:"icons"`
	Search    Search    `yaml:"search"`
	Bookmarks Bookmarks `yaml:"bookmarks"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Log configures structured logging.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// Store configures the backing object store.
type Store struct {
	// Provider selects the driver: "minio" or "memory".
	Provider string `yaml:"provider"`

	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`

	DialTimeout time.Duration `yaml:"dialTimeout"`
	CallTimeout time.Duration `yaml:"callTimeout"`
}

// Icons configures thumbnail sidecar resolution.
type Icons struct {
	CacheTTL      time.Duration `yaml:"cacheTTL"`
	URLTTL        time.Duration `yaml:"urlTTL"`
	UploadURLTTL  time.Duration `yaml:"uploadURLTTL"`
	ProbeParallel int           `yaml:"probeParallel"`
}

// Search configures the bounded store scanner.
type Search struct {
	ScanLimit int           `yaml:"scanLimit"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
}

// Bookmarks configures the optional bookmark database. An empty DSN
// disables bookmarks entirely.
type Bookmarks struct {
	Driver string `yaml:"driver"` // postgres or mysql
	DSN    string `yaml:"dsn"`
}

// Default returns the configuration used when no file is given: a memory
// store, console logging, bookmarks disabled.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Store: Store{
			Provider:    "memory",
			Bucket:      "vdrive",
			DialTimeout: 5 * time.Second,
			CallTimeout: 30 * time.Second,
		},
		Icons: Icons{
			CacheTTL:      5 * time.Minute,
			URLTTL:        15 * time.Minute,
			UploadURLTTL:  10 * time.Minute,
			ProbeParallel: 5,
		},
		Search: Search{
			ScanLimit: 5000,
			CacheTTL:  30 * time.Second,
		},
		Bookmarks: Bookmarks{
			Driver: "postgres",
		},
	}
}

// Load reads path, layers it over Default, and applies environment
// overrides. A missing file is an error; use Default directly when
// running without one.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read config file", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to parse config file", err)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv pulls secrets from the environment. Values set there always
// win over file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("VDRIVE_STORE_ACCESS_KEY"); v != "" {
		c.Store.AccessKey = v
	}
	if v := os.Getenv("VDRIVE_STORE_SECRET_KEY"); v != "" {
		c.Store.SecretKey = v
	}
	if v := os.Getenv("VDRIVE_BOOKMARKS_DSN"); v != "" {
		c.Bookmarks.DSN = v
	}
}

func (c *Config) validate() error {
	switch c.Store.Provider {
	case "minio":
		if c.Store.Endpoint == "" {
			return errs.New(errs.ErrKindInvalidInput, "store.endpoint is required for the minio provider")
		}
		if c.Store.Bucket == "" {
			return errs.New(errs.ErrKindInvalidInput, "store.bucket is required for the minio provider")
		}
	case "memory":
	default:
		return errs.New(errs.ErrKindInvalidInput, "store.provider must be minio or memory")
	}

	if c.Bookmarks.DSN != "" {
		switch c.Bookmarks.Driver {
		case "postgres", "mysql":
		default:
			return errs.New(errs.ErrKindInvalidInput, "bookmarks.driver must be postgres or mysql")
		}
	}

	return nil
}
