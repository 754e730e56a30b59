package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cherrycake/internal/config"
	"cherrycake/internal/logging"
)

func TestConsoleLoggerFormatsHeaderAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "contact")
	logger.Info("submission accepted",
		logging.Viz("tension"),
		logging.String(logging.FieldEventType, "contact_received"),
		logging.Bool("relayed", true),
		logging.String("remote_addr", "127.0.0.1"),
	)

	out := buf.String()
	if !strings.Contains(out, "INFO [contact] tension – submission accepted") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "    - Event: contact_received") {
		t.Fatalf("expected event field, got %q", out)
	}
	if !strings.Contains(out, "    - Relayed: yes") {
		t.Fatalf("expected friendly bool, got %q", out)
	}
	if strings.Contains(out, "127.0.0.1") {
		t.Fatalf("expected remote_addr hidden at info level, got %q", out)
	}
	if !strings.Contains(out, "1 more field hidden") {
		t.Fatalf("expected hidden field marker, got %q", out)
	}
}

func TestConsoleLoggerDebugShowsAllFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("frame skipped", logging.String("remote_addr", "10.0.0.1"))
	out := buf.String()
	if !strings.Contains(out, "remote_addr: 10.0.0.1") {
		t.Fatalf("expected raw field at debug level, got %q", out)
	}
	if !strings.Contains(out, "logger_test.go:") {
		t.Fatalf("expected source location at debug level, got %q", out)
	}
}

func TestJSONLoggerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("dataset failed", logging.Error(errors.New("boom")))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
	if payload["error"] != "boom" {
		t.Fatalf("expected error field, got %v", payload["error"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, logPath, err := logging.NewFromConfig(&cfg, "cherrycake-test.log")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logPath != filepath.Join(cfg.Paths.LogDir, "cherrycake-test.log") {
		t.Fatalf("unexpected log path %q", logPath)
	}
	logger.Info("hello file")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello file") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestWithContextAddsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithRequestID(context.Background(), "req-1")
	ctx = logging.WithViz(ctx, "motif")
	logging.WithContext(ctx, logger).Info("served")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) || !strings.Contains(out, `"viz":"motif"`) {
		t.Fatalf("expected context fields, got %q", out)
	}
	if id, ok := logging.RequestIDFromContext(ctx); !ok || id != "req-1" {
		t.Fatalf("RequestIDFromContext = %q, %v", id, ok)
	}
	if _, ok := logging.RequestIDFromContext(context.Background()); ok {
		t.Fatal("expected no request id on empty context")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "relay failed", "contact_relay_failed", logging.String(logging.FieldImpact, "mail not sent"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[logging.FieldEventType] != "contact_relay_failed" {
		t.Fatalf("unexpected event type %v", payload[logging.FieldEventType])
	}
	if payload[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error hint")
	}
	if payload[logging.FieldImpact] != "mail not sent" {
		t.Fatalf("expected caller impact preserved, got %v", payload[logging.FieldImpact])
	}
}

func TestJSONLoggerDomainAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("frame",
		logging.Viz("tonnetz"),
		logging.Progress(0.12345),
		logging.Duration("elapsed", 1500*time.Microsecond),
	)

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v (%q)", err, buf.String())
	}
	if payload[logging.FieldViz] != "tonnetz" {
		t.Fatalf("unexpected viz %v", payload[logging.FieldViz])
	}
	if payload[logging.FieldProgress] != 0.123 {
		t.Fatalf("expected rounded progress, got %v", payload[logging.FieldProgress])
	}
	if payload["elapsed_ms"] != 1.5 {
		t.Fatalf("expected elapsed_ms 1.5, got %v (%q)", payload["elapsed_ms"], buf.String())
	}
	if _, ok := payload["elapsed"]; ok {
		t.Fatal("expected raw duration key to be replaced")
	}
}

func TestErrorWithContextOmitsImpactDefault(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.ErrorWithContext(logger, "inbox open failed", "inbox_open_failed", logging.Error(errors.New("locked")))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[logging.FieldEventType] != "inbox_open_failed" || payload[logging.FieldErrorHint] == nil {
		t.Fatalf("expected event defaults, got %v", payload)
	}
	if _, ok := payload[logging.FieldImpact]; ok {
		t.Fatalf("expected no default impact on errors, got %v", payload)
	}
}
