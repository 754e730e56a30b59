package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewFanoutHandlerNilHandlers(t *testing.T) {
	h := newFanoutHandler(nil, nil)
	if _, ok := h.(NoopHandler); !ok {
		t.Errorf("expected NoopHandler for all nil handlers, got %T", h)
	}
}

func TestNewFanoutHandlerSingleHandlerUnwrapped(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Error("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(newFanoutHandler(infoHandler, debugHandler)).With(slog.String("viz", "form"))
	logger.Debug("debug only")
	logger.Info("both")

	if strings.Contains(infoBuf.String(), "debug only") {
		t.Error("info handler received debug record")
	}
	if !strings.Contains(debugBuf.String(), "debug only") {
		t.Error("debug handler missed debug record")
	}
	for _, buf := range []*bytes.Buffer{&infoBuf, &debugBuf} {
		if !strings.Contains(buf.String(), `"viz":"form"`) {
			t.Errorf("expected WithAttrs to propagate, got %q", buf.String())
		}
	}
}

func TestTeeLoggerWritesJSONFile(t *testing.T) {
	var console bytes.Buffer
	base := slog.New(newPrettyHandler(&console, new(slog.LevelVar), false))
	path := filepath.Join(t.TempDir(), "logs", "server.json")
	fileHandler, err := NewJSONFileHandler(path, "info")
	if err != nil {
		t.Fatalf("NewJSONFileHandler: %v", err)
	}

	TeeLogger(base, fileHandler).Info("listening", slog.String("address", "127.0.0.1:0"))

	if !strings.Contains(console.String(), "listening") {
		t.Fatalf("console output missing: %q", console.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"listening"`) {
		t.Fatalf("json file missing record: %q", data)
	}
}

func TestCleanupOldLogsRemovesExpiredMatches(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "cherrycaked-old.log")
	current := filepath.Join(dir, "cherrycaked-current.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, current, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, current, other} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := CleanupOldLogs(NewNop(), 5, RetentionTarget{Dir: dir, Pattern: "cherrycaked-*.log", Exclude: []string{current}})
	if removed != 1 {
		t.Fatalf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old log removed")
	}
	for _, path := range []string{current, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
	if CleanupOldLogs(nil, 0, RetentionTarget{Dir: dir}) != 0 {
		t.Fatal("expected zero retention to disable pruning")
	}
}
