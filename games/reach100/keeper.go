package reach100

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Seednode/reach100/storage"
)

const (
	PlayersKey     = "players"
	LeaderboardKey = "topPlayers"
)

// Keeper saves and loads a game's roster and leaderboard as JSON blobs.
type Keeper struct {
	store storage.Store
}

func NewKeeper(store storage.Store) *Keeper {
	return &Keeper{store: store}
}

// Load reads the saved roster and leaderboard. Missing or unreadable blobs
// come back empty; only store failures are reported.
func (k *Keeper) Load(ctx context.Context) ([]Player, []LeaderboardEntry, error) {
	players, err := loadBlob[[]Player](ctx, k.store, PlayersKey)
	if err != nil {
		return []Player{}, []LeaderboardEntry{}, err
	}
	board, err := loadBlob[[]LeaderboardEntry](ctx, k.store, LeaderboardKey)
	if err != nil {
		return players, []LeaderboardEntry{}, err
	}

	for i := range players {
		if players[i].Games == nil {
			players[i].Games = []GameRecord{}
		}
	}

	return players, board, nil
}

func loadBlob[T ~[]E, E any](ctx context.Context, store storage.Store, key string) (T, error) {
	empty := T{}

	data, err := store.Get(ctx, key)
	switch {
	case storage.IsNotFound(err):
		return empty, nil
	case err != nil:
		return empty, fmt.Errorf("load %s: %w", key, err)
	}

	// Corrupt blobs are treated as absent.
	var v T
	if err := json.Unmarshal(data, &v); err != nil || v == nil {
		return empty, nil
	}
	return v, nil
}

// Restore loads saved data into g.
func (k *Keeper) Restore(ctx context.Context, g *Game) error {
	players, board, err := k.Load(ctx)
	g.Restore(players, board)
	return err
}

func (k *Keeper) SaveRoster(ctx context.Context, players []Player) error {
	return k.save(ctx, PlayersKey, players)
}

func (k *Keeper) SaveLeaderboard(ctx context.Context, board []LeaderboardEntry) error {
	return k.save(ctx, LeaderboardKey, board)
}

func (k *Keeper) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := k.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Persist writes whatever events changed: the leaderboard when a win
// recomputed it, then the roster.
func (k *Keeper) Persist(ctx context.Context, g *Game, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	if Has(events, EventLeaderboardChanged) {
		if err := k.SaveLeaderboard(ctx, g.Leaderboard()); err != nil {
			return err
		}
	}
	return k.SaveRoster(ctx, g.Players())
}
