package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cherrycake/internal/config"
)

func clearSMTPEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASSWORD", "SMTP_FROM", "SMTP_TO", "NTFY_TOPIC", "CHERRYCAKE_DATASETS", "CHERRYCAKE_API_TOKEN"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearSMTPEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "cherrycake", "output")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Datasets.Source != wantData {
		t.Fatalf("expected dataset source to default to data dir, got %q", cfg.Datasets.Source)
	}
	if cfg.RemoteDatasets() {
		t.Fatal("expected local datasets by default")
	}
	if cfg.Server.Bind != "127.0.0.1:7490" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.SMTPEnabled() {
		t.Fatal("expected SMTP relay disabled by default")
	}
	if cfg.Contact.SMTP.Port != 587 {
		t.Fatalf("expected default SMTP port 587, got %d", cfg.Contact.SMTP.Port)
	}
	if got := cfg.LoopDuration("tension"); got != 90*time.Second {
		t.Fatalf("tension loop = %v", got)
	}
	if got := cfg.LoopDuration("counterpoint"); got != 60*time.Second {
		t.Fatalf("counterpoint loop = %v", got)
	}
	if got := cfg.LoopDuration("tonnetz"); got != 90*time.Second {
		t.Fatalf("tonnetz loop = %v", got)
	}
	if cfg.Presentation.FullFPS != 60 || cfg.Presentation.EmbedFPS != 30 {
		t.Fatalf("unexpected presentation fps: %+v", cfg.Presentation)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Datasets.Source} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearSMTPEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "cherrycake.toml")

	type payload struct {
		Datasets struct {
			Source string `toml:"source"`
		} `toml:"datasets"`
		Loop struct {
			TensionSeconds int `toml:"tension_seconds"`
		} `toml:"loop"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Datasets.Source = "https://cherrycake.me/output/"
	custom.Loop.TensionSeconds = 45
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Datasets.Source != "https://cherrycake.me/output" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Datasets.Source)
	}
	if !cfg.RemoteDatasets() {
		t.Fatal("expected remote datasets")
	}
	if cfg.LoopDuration("tension") != 45*time.Second {
		t.Fatalf("unexpected tension loop %v", cfg.LoopDuration("tension"))
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestSMTPEnvironmentFallbacks(t *testing.T) {
	clearSMTPEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SMTP_USER", "relay@example.com")
	t.Setenv("SMTP_PASSWORD", "secret")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.SMTPEnabled() {
		t.Fatal("expected SMTP relay enabled from environment")
	}
	smtp := cfg.Contact.SMTP
	if smtp.Port != 465 {
		t.Fatalf("expected port from env, got %d", smtp.Port)
	}
	if smtp.From != "relay@example.com" || smtp.To != "relay@example.com" {
		t.Fatalf("expected from/to to fall back to user, got from=%q to=%q", smtp.From, smtp.To)
	}
}

func TestInvalidSMTPPortEnv(t *testing.T) {
	clearSMTPEnv(t)
	t.Setenv("SMTP_PORT", "not-a-port")
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for malformed SMTP_PORT")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bind", func(c *config.Config) { c.Server.Bind = "nope" }, "server.bind"},
		{"loop", func(c *config.Config) { c.Loop.MotifSeconds = 0 }, "loop.motif_seconds"},
		{"fps above display", func(c *config.Config) { c.Presentation.FullFPS = 120 }, "display_hz"},
		{"burst", func(c *config.Config) { c.Contact.Burst = 0 }, "contact.burst"},
		{"smtp from", func(c *config.Config) {
			c.Contact.SMTP = config.SMTP{Host: "h", Port: 587, User: "u", Password: "p", From: "not an address", To: "a@b.co"}
		}, "contact.smtp.from"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	clearSMTPEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Loop.DisplayHz != 60 {
		t.Fatalf("unexpected display hz %d", cfg.Loop.DisplayHz)
	}
}

func TestWriteTOMLMasksCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Server.APIToken = "s3cret"
	cfg.Contact.SMTP.Host = "smtp.example.com"
	cfg.Contact.SMTP.Password = "hunter2"

	var buf bytes.Buffer
	if err := cfg.WriteTOML(&buf); err != nil {
		t.Fatalf("WriteTOML: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "s3cret") || strings.Contains(out, "hunter2") {
		t.Fatalf("credentials leaked: %s", out)
	}

	var decoded config.Config
	if err := toml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode written config: %v", err)
	}
	if decoded.Contact.SMTP.Host != "smtp.example.com" || decoded.Loop.DisplayHz != cfg.Loop.DisplayHz {
		t.Fatalf("unexpected round trip %+v", decoded)
	}
	if cfg.Server.APIToken != "s3cret" {
		t.Fatal("Redacted must not modify the receiver")
	}
}
