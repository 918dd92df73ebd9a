package reach100

import (
	"testing"
)

func games(actions ...int) []GameRecord {
	out := make([]GameRecord, 0, len(actions))
	for _, a := range actions {
		out = append(out, GameRecord{ActionsTaken: a, EndedAt: fixedNow})
	}
	return out
}

func TestComputeLeaderboard(t *testing.T) {
	tests := []struct {
		name    string
		players []Player
		want    []LeaderboardEntry
	}{
		{
			name:    "no finished games",
			players: []Player{{Name: "Alice"}, {Name: "Bob", Games: []GameRecord{}}},
			want:    []LeaderboardEntry{},
		},
		{
			name: "averages and sorts ascending",
			players: []Player{
				{Name: "Alice", Games: games(10, 20)},
				{Name: "Bob", Games: games(4)},
				{Name: "Carol"},
			},
			want: []LeaderboardEntry{
				{Name: "Bob", AverageActions: 4},
				{Name: "Alice", AverageActions: 15},
			},
		},
		{
			name: "keeps only the best three",
			players: []Player{
				{Name: "Alice", Games: games(9)},
				{Name: "Bob", Games: games(3, 4)},
				{Name: "Carol", Games: games(12)},
				{Name: "Dave", Games: games(1, 2, 3)},
				{Name: "Erin", Games: games(7)},
			},
			want: []LeaderboardEntry{
				{Name: "Dave", AverageActions: 2},
				{Name: "Bob", AverageActions: 3.5},
				{Name: "Erin", AverageActions: 7},
			},
		},
		{
			name: "ties keep roster order",
			players: []Player{
				{Name: "Alice", Games: games(6)},
				{Name: "Bob", Games: games(5, 7)},
			},
			want: []LeaderboardEntry{
				{Name: "Alice", AverageActions: 6},
				{Name: "Bob", AverageActions: 6},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLeaderboard(tt.players)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d (%+v)", len(got), len(tt.want), got)
			}
			if len(got) > LeaderboardSize {
				t.Fatalf("leaderboard longer than %d", LeaderboardSize)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("entry %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAverageActions(t *testing.T) {
	if _, ok := AverageActions(nil); ok {
		t.Fatalf("expected no average for empty history")
	}
	avg, ok := AverageActions(games(1, 2))
	if !ok || avg != 1.5 {
		t.Fatalf("avg = %v, %v", avg, ok)
	}
}

func TestLeaderboardEntryString(t *testing.T) {
	e := LeaderboardEntry{Name: "Alice", AverageActions: 12.5}
	if got, want := e.String(), "Alice: 12.50 actions/game"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
