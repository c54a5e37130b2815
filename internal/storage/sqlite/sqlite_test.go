package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"lunchbot/internal/storage"
)

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "snapshots.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	t.Run("Load with empty table", func(t *testing.T) {
		_, err := store.Load(ctx)
		if !errors.Is(err, storage.ErrNoSnapshot) {
			t.Errorf("Load error = %v, want ErrNoSnapshot", err)
		}
	})

	t.Run("Save then Load round-trips", func(t *testing.T) {
		payload := []byte(`{"groups":[],"proposals":[],"store":5,"channel":"#lunch"}`)
		if err := store.Save(ctx, payload); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if string(got) != string(payload) {
			t.Errorf("Load = %q, want %q", got, payload)
		}
	})

	t.Run("Load returns the newest snapshot", func(t *testing.T) {
		if err := store.Save(ctx, []byte("older")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := store.Save(ctx, []byte("newer")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if string(got) != "newer" {
			t.Errorf("Load = %q, want %q", got, "newer")
		}
	})

	t.Run("Reopen keeps history", func(t *testing.T) {
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		reopened, err := New(dbPath)
		if err != nil {
			t.Fatalf("Failed to reopen store: %v", err)
		}
		defer reopened.Close()

		got, err := reopened.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if string(got) != "newer" {
			t.Errorf("Load after reopen = %q, want %q", got, "newer")
		}
	})
}
