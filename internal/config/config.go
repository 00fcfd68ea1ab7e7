package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

const (
	AppName = "Cat Filter"
	AppID   = "com.catfilter.app"
)

type Config struct {
	// Metadata endpoint returning {"file": "<image url>"}
	ProviderURL    string        `env:"CATFILTER_PROVIDER_URL" envDefault:"https://aws.random.cat/meow"`
	ReferenceField string        `env:"CATFILTER_REFERENCE_FIELD" envDefault:"file"`
	HTTPTimeout    time.Duration `env:"CATFILTER_HTTP_TIMEOUT" envDefault:"30s"`

	MaxMetadataBytes int64  `env:"CATFILTER_MAX_METADATA_BYTES" envDefault:"65536"`
	MaxContentBytes  int64  `env:"CATFILTER_MAX_CONTENT_BYTES" envDefault:"33554432"`
	TempDir          string `env:"CATFILTER_TEMP_DIR"`

	BatchWorkers  int `env:"CATFILTER_BATCH_WORKERS" envDefault:"5"`
	ThumbnailSize int `env:"CATFILTER_THUMBNAIL_SIZE" envDefault:"160"`

	LibraryDir      string `env:"CATFILTER_LIBRARY_DIR"`
	LibraryReadOnly bool   `env:"CATFILTER_LIBRARY_READ_ONLY" envDefault:"false"`
	SaveFormat      string `env:"CATFILTER_SAVE_FORMAT" envDefault:"jpeg"`
	JPEGQuality     int    `env:"CATFILTER_JPEG_QUALITY" envDefault:"95"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.LibraryDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.LibraryDir = filepath.Join(home, "Pictures", "CatFilter")
	}

	cfg.SaveFormat = strings.ToLower(cfg.SaveFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.ProviderURL == "" {
		errs = append(errs, errors.New("provider URL is empty"))
	}
	if c.ReferenceField == "" {
		errs = append(errs, errors.New("reference field is empty"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout))
	}
	if c.BatchWorkers < 1 {
		errs = append(errs, fmt.Errorf("batch workers must be at least 1, got %d", c.BatchWorkers))
	}
	if c.ThumbnailSize < 16 {
		errs = append(errs, fmt.Errorf("thumbnail size must be at least 16, got %d", c.ThumbnailSize))
	}
	switch c.SaveFormat {
	case "jpeg", "png":
	default:
		errs = append(errs, fmt.Errorf("unsupported save format %q", c.SaveFormat))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality out of range: %d", c.JPEGQuality))
	}

	return errors.Join(errs...)
}
