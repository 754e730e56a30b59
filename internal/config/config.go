package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cherrycake/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Datasets controls where visualization documents are fetched from.
type Datasets struct {
	// Source is either an http(s) URL prefix or a local directory. Empty means
	// paths.data_dir.
	Source         string `toml:"source"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Server contains HTTP listener configuration.
type Server struct {
	Bind              string `toml:"bind"`
	APIToken          string `toml:"api_token"`
	ReadHeaderTimeout int    `toml:"read_header_timeout"`
	ReadTimeout       int    `toml:"read_timeout"`
	WriteTimeout      int    `toml:"write_timeout"`
	IdleTimeout       int    `toml:"idle_timeout"`
	ShutdownTimeout   int    `toml:"shutdown_timeout"`
}

// Loop contains the per-visualization loop lengths and the frame source rate.
type Loop struct {
	DisplayHz           int `toml:"display_hz"`
	TensionSeconds      int `toml:"tension_seconds"`
	CounterpointSeconds int `toml:"counterpoint_seconds"`
	MotifSeconds        int `toml:"motif_seconds"`
	TonnetzSeconds      int `toml:"tonnetz_seconds"`
	FormSeconds         int `toml:"form_seconds"`
}

// Presentation describes the canvas size and target frame rate for the full
// page and the embedded variant.
type Presentation struct {
	FullWidth   int `toml:"full_width"`
	FullHeight  int `toml:"full_height"`
	FullFPS     int `toml:"full_fps"`
	EmbedWidth  int `toml:"embed_width"`
	EmbedHeight int `toml:"embed_height"`
	EmbedFPS    int `toml:"embed_fps"`
}

// SMTP contains mail relay settings for contact submissions.
type SMTP struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	From     string `toml:"from"`
	To       string `toml:"to"`
}

// Contact contains configuration for the contact endpoint.
type Contact struct {
	RatePerMinute float64 `toml:"rate_per_minute"`
	Burst         int     `toml:"burst"`
	RelayTimeout  int     `toml:"relay_timeout"`
	SMTP          SMTP    `toml:"smtp"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Contact        bool   `toml:"contact"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for cherrycake.
//
// Configuration sections by subsystem:
//   - Paths: data, state, and log directories
//   - Datasets: where visualization documents are loaded from
//   - Server: HTTP bind address, token, and timeouts
//   - Loop: loop duration per visualization and frame source rate
//   - Presentation: full and embed canvas sizes and frame rates
//   - Contact: rate limit and SMTP relay for the contact endpoint
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Datasets      Datasets      `toml:"datasets"`
	Server        Server        `toml:"server"`
	Loop          Loop          `toml:"loop"`
	Presentation  Presentation  `toml:"presentation"`
	Contact       Contact       `toml:"contact"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment fallbacks applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cherrycake.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. The data directory
// is only created when it also serves as the dataset source.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if !c.RemoteDatasets() && strings.TrimSpace(c.Datasets.Source) != "" {
		if err := os.MkdirAll(c.Datasets.Source, 0o755); err != nil {
			return fmt.Errorf("create dataset directory %q: %w", c.Datasets.Source, err)
		}
	}
	return nil
}

// RemoteDatasets reports whether datasets are fetched over HTTP.
func (c *Config) RemoteDatasets() bool {
	return isHTTPURL(c.Datasets.Source)
}

// InboxPath returns the SQLite database that stores contact submissions.
func (c *Config) InboxPath() string {
	return filepath.Join(c.Paths.StateDir, "inbox.db")
}

// LockPath returns the single-instance lock file for the server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "cherrycaked.lock")
}

// LoopDuration returns the configured loop length for a visualization name.
// Unknown names fall back to the tension loop length.
func (c *Config) LoopDuration(name string) time.Duration {
	seconds := c.Loop.TensionSeconds
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "counterpoint":
		seconds = c.Loop.CounterpointSeconds
	case "motif":
		seconds = c.Loop.MotifSeconds
	case "tonnetz":
		seconds = c.Loop.TonnetzSeconds
	case "form":
		seconds = c.Loop.FormSeconds
	}
	return time.Duration(seconds) * time.Second
}

// SMTPEnabled reports whether the mail relay has the minimum settings to send.
func (c *Config) SMTPEnabled() bool {
	s := c.Contact.SMTP
	return s.Host != "" && s.User != "" && s.Password != ""
}

// Seconds converts an integer seconds field to a duration.
func Seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func isHTTPURL(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if err := fileutil.WriteAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

const redacted = "********"

// Redacted returns a copy with credentials masked, safe to print or log.
func (c *Config) Redacted() Config {
	out := *c
	if out.Server.APIToken != "" {
		out.Server.APIToken = redacted
	}
	if out.Contact.SMTP.Password != "" {
		out.Contact.SMTP.Password = redacted
	}
	return out
}

// WriteTOML encodes the effective configuration, credentials masked.
func (c *Config) WriteTOML(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(c.Redacted()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
