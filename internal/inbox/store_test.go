package inbox_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"cherrycake/internal/inbox"
)

func openStore(t *testing.T) *inbox.Store {
	t.Helper()
	store, err := inbox.Open(filepath.Join(t.TempDir(), "state", "inbox.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	msg, err := store.Save(ctx, "  Ada ", " ada@example.com ", "Lovely fugue.", "203.0.113.9")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if msg.ID == 0 || msg.PublicID == "" {
		t.Fatalf("expected identifiers, got %+v", msg)
	}
	if msg.Name != "Ada" || msg.Email != "ada@example.com" {
		t.Fatalf("expected trimmed fields, got %q %q", msg.Name, msg.Email)
	}

	got, err := store.Get(ctx, msg.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.PublicID != msg.PublicID || got.Body != "Lovely fugue." {
		t.Fatalf("unexpected message %+v", got)
	}
	if got.RelayStatus != inbox.RelayPending || got.RelayedAt != nil {
		t.Fatalf("expected pending message, got %+v", got)
	}

	missing, err := store.Get(ctx, msg.ID+100)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing id, got %+v, %v", missing, err)
	}
}

func TestAnonymousSubmissionStoresEmptyName(t *testing.T) {
	store := openStore(t)
	msg, err := store.Save(context.Background(), "", "x@y.zz", "hi", "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Get(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "" || got.RemoteAddr != "" {
		t.Fatalf("expected empty optional fields, got %+v", got)
	}
}

func TestMarkRelayed(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	sent, _ := store.Save(ctx, "a", "a@b.cd", "one", "")
	failed, _ := store.Save(ctx, "b", "b@b.cd", "two", "")

	if err := store.MarkRelayed(ctx, sent.ID, inbox.RelaySent, nil); err != nil {
		t.Fatalf("MarkRelayed sent: %v", err)
	}
	if err := store.MarkRelayed(ctx, failed.ID, inbox.RelayFailed, errors.New("smtp: 421")); err != nil {
		t.Fatalf("MarkRelayed failed: %v", err)
	}

	got, _ := store.Get(ctx, sent.ID)
	if got.RelayStatus != inbox.RelaySent || got.RelayedAt == nil || got.RelayError != "" {
		t.Fatalf("unexpected sent message %+v", got)
	}
	got, _ = store.Get(ctx, failed.ID)
	if got.RelayStatus != inbox.RelayFailed || got.RelayedAt != nil || got.RelayError != "smtp: 421" {
		t.Fatalf("unexpected failed message %+v", got)
	}

	onlyFailed, err := store.List(ctx, 10, inbox.RelayFailed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(onlyFailed) != 1 || onlyFailed[0].ID != failed.ID {
		t.Fatalf("expected only the failed message, got %+v", onlyFailed)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, body := range []string{"first", "second", "third"} {
		if _, err := store.Save(ctx, "", "a@b.cd", body, ""); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].Body != "third" || all[2].Body != "first" {
		t.Fatalf("unexpected order %+v", all)
	}
	two, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(two) != 2 {
		t.Fatalf("expected limit 2, got %d", len(two))
	}
	if n, err := store.Count(ctx); err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestReopenKeepsMessages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.db")
	store, err := inbox.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Save(context.Background(), "", "a@b.cd", "persist", ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_ = store.Close()

	reopened, err := inbox.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if n, _ := reopened.Count(context.Background()); n != 1 {
		t.Fatalf("expected 1 message after reopen, got %d", n)
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.db")
	store, err := inbox.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := inbox.Open(path); !errors.Is(err, inbox.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
