package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Seednode/reach100/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStorePutGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reach100.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.Get(ctx, "players"); !storage.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.Put(ctx, "players", []byte(`[]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "players", []byte(`[{"name":"Bob"}]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := store.Get(ctx, "players")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"name":"Bob"}]` {
		t.Fatalf("got %q", got)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reach100.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Put(ctx, "abc/topPlayers", []byte(`[{"name":"Alice","averageActions":4}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "abc/topPlayers")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"name":"Alice","averageActions":4}]` {
		t.Fatalf("got %q", got)
	}
}
