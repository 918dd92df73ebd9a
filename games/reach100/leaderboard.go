package reach100

import (
	"cmp"
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LeaderboardEntry ranks a player by the average number of actions they
// needed to reach the target. Lower is better.
type LeaderboardEntry struct {
	Name           string  `json:"name"`
	AverageActions float64 `json:"averageActions"`
}

var printer = message.NewPrinter(language.English)

// String renders the entry the way the board lists it.
func (e LeaderboardEntry) String() string {
	return printer.Sprintf("%s: %.2f actions/game", e.Name, e.AverageActions)
}

// AverageActions returns the mean ActionsTaken over games, or false when
// there are none.
func AverageActions(games []GameRecord) (float64, bool) {
	if len(games) == 0 {
		return 0, false
	}
	total := 0
	for _, g := range games {
		total += g.ActionsTaken
	}
	return float64(total) / float64(len(games)), true
}

// ComputeLeaderboard ranks every player with at least one finished game and
// keeps the best LeaderboardSize. Ties keep roster order.
func ComputeLeaderboard(players []Player) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		avg, ok := AverageActions(p.Games)
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{Name: p.Name, AverageActions: avg})
	}

	slices.SortStableFunc(entries, func(a, b LeaderboardEntry) int {
		return cmp.Compare(a.AverageActions, b.AverageActions)
	})

	if len(entries) > LeaderboardSize {
		entries = entries[:LeaderboardSize]
	}
	return entries
}
