package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Seednode/reach100/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reach100.sqlite")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})

	ctx := context.Background()
	if _, err := store.Get(ctx, "game/players"); !storage.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.Put(ctx, "game/players", []byte(`[{"name":"Alice"}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "game/players", []byte(`[{"name":"Carol"}]`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.Get(ctx, "game/players")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"name":"Carol"}]` {
		t.Fatalf("payload = %q, want %q", got, `[{"name":"Carol"}]`)
	}
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "reach100.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if err := store.Put(context.Background(), "", []byte("x")); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
