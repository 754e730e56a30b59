package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Mail relay: no")
	requireContains(t, out, "Datasets: "+env.dataDir)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestValidateRejectsBrokenConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[loop]\ndisplay_hz = -5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, env, "config", "validate"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestConfigShowMasksToken(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("CHERRYCAKE_API_TOKEN", "tok-123")

	out, _, err := runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[paths]")
	requireContains(t, out, "display_hz = 60")
	requireContains(t, out, "********")
	if strings.Contains(out, "tok-123") {
		t.Fatalf("token leaked: %s", out)
	}
}
