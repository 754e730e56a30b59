package testsupport

import (
	"testing"

	"cherrycake/internal/config"
	"cherrycake/internal/inbox"
)

// MustOpenInbox opens the inbox at cfg.InboxPath and closes it when the test
// ends.
func MustOpenInbox(t testing.TB, cfg *config.Config) *inbox.Store {
	t.Helper()
	store, err := inbox.Open(cfg.InboxPath())
	if err != nil {
		t.Fatalf("open inbox %s: %v", cfg.InboxPath(), err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
