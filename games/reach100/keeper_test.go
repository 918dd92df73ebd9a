package reach100

import (
	"context"
	"errors"
	"testing"

	"github.com/Seednode/reach100/storage"
)

type failingStore struct {
	storage.Store
}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func TestKeeperLoadMissing(t *testing.T) {
	k := NewKeeper(storage.NewMemory())

	players, board, err := k.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if players == nil || len(players) != 0 {
		t.Fatalf("players = %#v, want empty", players)
	}
	if board == nil || len(board) != 0 {
		t.Fatalf("board = %#v, want empty", board)
	}
}

func TestKeeperLoadCorrupt(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	if err := store.Put(ctx, PlayersKey, []byte(`{not json`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, LeaderboardKey, []byte(`null`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	players, board, err := NewKeeper(store).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(players) != 0 || len(board) != 0 {
		t.Fatalf("expected empty defaults, got %+v %+v", players, board)
	}
}

func TestKeeperLoadStoreFailure(t *testing.T) {
	_, _, err := NewKeeper(failingStore{}).Load(context.Background())
	if err == nil {
		t.Fatalf("expected store error")
	}
}

func TestKeeperRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.Scope(storage.NewMemory(), "game1")
	k := NewKeeper(store)

	g := newTestGame(t, "Alice", "Bob")
	startWithScores(t, g, 99, 3)
	evs := mustApply(t, g, OpIncrement)
	if err := k.Persist(ctx, g, evs); err != nil {
		t.Fatalf("persist: %v", err)
	}

	restored := New(nil, nil)
	if err := k.Restore(ctx, restored); err != nil {
		t.Fatalf("restore: %v", err)
	}

	want, got := g.Players(), restored.Players()
	if len(got) != len(want) {
		t.Fatalf("players = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i].Name != want[i].Name || got[i].Score != want[i].Score || got[i].Actions != want[i].Actions {
			t.Fatalf("player %d = %+v, want %+v", i, got[i], want[i])
		}
		if len(got[i].Games) != len(want[i].Games) {
			t.Fatalf("player %d games = %+v, want %+v", i, got[i].Games, want[i].Games)
		}
		for j := range want[i].Games {
			if got[i].Games[j].ActionsTaken != want[i].Games[j].ActionsTaken ||
				!got[i].Games[j].EndedAt.Equal(want[i].Games[j].EndedAt) {
				t.Fatalf("game %d/%d = %+v, want %+v", i, j, got[i].Games[j], want[i].Games[j])
			}
		}
	}

	wantBoard, gotBoard := g.Leaderboard(), restored.Leaderboard()
	if len(gotBoard) != 1 || gotBoard[0] != wantBoard[0] {
		t.Fatalf("leaderboard = %+v, want %+v", gotBoard, wantBoard)
	}
	if restored.RoundActive() || restored.CurrentIndex() != 0 {
		t.Fatalf("restored game should be idle")
	}
}

func TestKeeperBlobShape(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	blob := `[{"name":"Alice","score":0,"actions":0,"games":[{"actions":7,"endTime":"2024-05-01T10:00:00.000Z"}]}]`
	if err := store.Put(ctx, PlayersKey, []byte(blob)); err != nil {
		t.Fatalf("put: %v", err)
	}

	players, _, err := NewKeeper(store).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(players) != 1 || len(players[0].Games) != 1 || players[0].Games[0].ActionsTaken != 7 {
		t.Fatalf("players = %+v", players)
	}
}

func TestKeeperPersistSkipsLeaderboardWithoutWin(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	k := NewKeeper(store)

	g := newTestGame(t)
	evs, err := g.Register("Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := k.Persist(ctx, g, evs); err != nil {
		t.Fatalf("persist: %v", err)
	}

	if _, err := store.Get(ctx, PlayersKey); err != nil {
		t.Fatalf("roster not saved: %v", err)
	}
	if _, err := store.Get(ctx, LeaderboardKey); !storage.IsNotFound(err) {
		t.Fatalf("leaderboard should not be written, got %v", err)
	}
}
