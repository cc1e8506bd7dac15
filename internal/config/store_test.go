package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewStoreCreatesDefaultedFile(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 0600", perm)
	}

	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyTeamSlug, KeyTeamName} {
		if store.Get(key) != "" {
			t.Errorf("key %q should default to empty", key)
		}
		if store.Has(key) {
			t.Errorf("Has(%q) should be false on a fresh store", key)
		}
	}
}

func TestStoreSetGetRemove(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := store.Set(KeyAccessToken, "token-value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := store.Get(KeyAccessToken); got != "token-value" {
		t.Errorf("Get = %q, want %q", got, "token-value")
	}
	if !store.Has(KeyAccessToken) {
		t.Error("Has should be true after Set")
	}

	if err := store.Remove(KeyAccessToken); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if store.Has(KeyAccessToken) {
		t.Error("Has should be false after Remove")
	}

	// Removing a key that was never set is a no-op.
	if err := store.Remove("unknown_key"); err != nil {
		t.Errorf("Remove of unknown key failed: %v", err)
	}
}

func TestStoreSetManyAndReset(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	err = store.SetMany(map[string]string{
		KeyAccessToken:  "at",
		KeyRefreshToken: "rt",
		KeyTeamSlug:     "team",
		KeyTeamName:     "Team Name",
	})
	if err != nil {
		t.Fatalf("SetMany failed: %v", err)
	}

	all := store.All()
	if all[KeyTeamSlug] != "team" || all[KeyTeamName] != "Team Name" {
		t.Errorf("All returned unexpected values: %v", all)
	}

	if err := store.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyTeamSlug, KeyTeamName} {
		if store.Has(key) {
			t.Errorf("key %q should be empty after Reset", key)
		}
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.Set(KeyTeamSlug, "persisted"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reopening store failed: %v", err)
	}
	if got := reopened.Get(KeyTeamSlug); got != "persisted" {
		t.Errorf("reopened Get = %q, want %q", got, "persisted")
	}
}

func TestStoreMergesPartialFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	// A hand-edited file missing keys still resolves every well-known key.
	if err := os.WriteFile(path, []byte("access_token: abc\n"), 0600); err != nil {
		t.Fatalf("seeding config file failed: %v", err)
	}

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if got := store.Get(KeyAccessToken); got != "abc" {
		t.Errorf("Get(access_token) = %q, want %q", got, "abc")
	}
	if store.Has(KeyRefreshToken) {
		t.Error("missing keys should resolve to empty")
	}
}
