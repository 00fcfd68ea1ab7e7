package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "https://aws.random.cat/meow", cfg.ProviderURL)
	require.Equal(t, "file", cfg.ReferenceField)
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	require.Equal(t, 5, cfg.BatchWorkers)
	require.Equal(t, "jpeg", cfg.SaveFormat)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, filepath.Join(home, "Pictures", "CatFilter"), cfg.LibraryDir)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CATFILTER_PROVIDER_URL", "http://localhost:9999/meow")
	t.Setenv("CATFILTER_BATCH_WORKERS", "3")
	t.Setenv("CATFILTER_LIBRARY_DIR", dir)
	t.Setenv("CATFILTER_SAVE_FORMAT", "PNG")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9999/meow", cfg.ProviderURL)
	require.Equal(t, 3, cfg.BatchWorkers)
	require.Equal(t, dir, cfg.LibraryDir)
	require.Equal(t, "png", cfg.SaveFormat)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Config{
		ProviderURL:    "http://example.com",
		ReferenceField: "file",
		HTTPTimeout:    time.Second,
		BatchWorkers:   0,
		ThumbnailSize:  160,
		SaveFormat:     "gif",
		JPEGQuality:    95,
	}

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "batch workers")
	require.Contains(t, err.Error(), "unsupported save format")
}
