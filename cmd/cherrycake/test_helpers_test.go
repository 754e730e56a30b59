package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cherrycake/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	dataDir    string
	stateDir   string
	configPath string
}

type envOption func(*strings.Builder)

func withNtfyTopic(url string) envOption {
	return func(b *strings.Builder) {
		fmt.Fprintf(b, "\n[notifications]\nntfy_topic = %q\ncontact = true\n", url)
	}
}

func setupCLITestEnv(t *testing.T, opts ...envOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	for _, key := range []string{"SMTP_HOST", "SMTP_USER", "SMTP_PASSWORD", "NTFY_TOPIC", "CHERRYCAKE_API_TOKEN"} {
		t.Setenv(key, "")
	}

	env := &cliTestEnv{
		baseDir:    base,
		dataDir:    filepath.Join(base, "output"),
		stateDir:   filepath.Join(base, "state"),
		configPath: filepath.Join(base, "config.toml"),
	}
	testsupport.WriteSampleDatasets(t, env.dataDir)

	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\ndata_dir = %q\nstate_dir = %q\nlog_dir = %q\n",
		env.dataDir, env.stateDir, filepath.Join(base, "logs"))
	for _, opt := range opts {
		opt(&b)
	}
	if err := os.WriteFile(env.configPath, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
