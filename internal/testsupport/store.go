package testsupport

import (
	"testing"

	"clipdeck/internal/config"
	"clipdeck/internal/prefs"
)

// MustOpenPrefs opens the configured preference store and registers cleanup.
func MustOpenPrefs(t testing.TB, cfg *config.Config) prefs.Store {
	t.Helper()

	store, err := prefs.Open(cfg)
	if err != nil {
		t.Fatalf("prefs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
