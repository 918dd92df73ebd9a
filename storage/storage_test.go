package storage

import (
	"context"
	"testing"
)

func TestMemoryGetMissing(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), "players")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryPutGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	value := []byte(`[{"name":"Alice"}]`)
	if err := m.Put(ctx, "players", value); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Mutating the caller's slice must not change the stored copy.
	value[0] = 'x'

	got, err := m.Get(ctx, "players")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"name":"Alice"}]` {
		t.Fatalf("got %q", got)
	}
}

func TestMemoryRejectsEmptyKey(t *testing.T) {
	m := NewMemory()
	if err := m.Put(context.Background(), "  ", []byte("x")); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestMemoryHonoursCanceledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Put(ctx, "players", []byte("x")); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestScopeIsolatesGames(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a := Scope(m, "gameA")
	b := Scope(m, "gameB/")

	if err := a.Put(ctx, "players", []byte("a")); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if _, err := b.Get(ctx, "players"); !IsNotFound(err) {
		t.Fatalf("expected gameB to be empty, got %v", err)
	}

	raw, err := m.Get(ctx, "gameA/players")
	if err != nil {
		t.Fatalf("get raw: %v", err)
	}
	if string(raw) != "a" {
		t.Fatalf("raw = %q, want %q", raw, "a")
	}

	if err := b.Put(ctx, "players", []byte("b")); err != nil {
		t.Fatalf("put b: %v", err)
	}
	got, err := a.Get(ctx, "players")
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	if string(got) != "a" {
		t.Fatalf("gameA players = %q, want %q", got, "a")
	}
}
