package testsupport

import (
	"path/filepath"
	"testing"

	"cherrycake/internal/config"
)

// ConfigOption adjusts a generated test configuration before its
// directories are created.
type ConfigOption func(testing.TB, *config.Config)

// NewConfig returns the default configuration rooted in a fresh temp
// directory: datasets come from <tmp>/output, the server binds an ephemeral
// port, and notifications stay off.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "output")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Datasets.Source = cfg.Paths.DataDir
	cfg.Server.Bind = "127.0.0.1:0"
	cfg.Notifications.NtfyTopic = ""

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, opt := range opts {
		opt(t, &cfg)
	}
	return &cfg
}

// WithAPIToken requires bearer auth on the API.
func WithAPIToken(token string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.Server.APIToken = token }
}

// WithDatasetSource points the loader at an explicit source, such as an
// httptest server URL.
func WithDatasetSource(source string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.Datasets.Source = source }
}

// WithSample writes the sample analysis documents into the data directory.
func WithSample() ConfigOption {
	return func(t testing.TB, cfg *config.Config) { WriteSampleDatasets(t, cfg.Paths.DataDir) }
}
