package reach100

// EventKind identifies what a game operation changed.
type EventKind string

const (
	EventRegistered         EventKind = "registered"
	EventRoundStarted       EventKind = "round_started"
	EventTurnTaken          EventKind = "turn_taken"
	EventWon                EventKind = "won"
	EventLeaderboardChanged EventKind = "leaderboard_changed"
	EventPlayerContinued    EventKind = "player_continued"
	EventPlayerRemoved      EventKind = "player_removed"
	EventRoundEnded         EventKind = "round_ended"
	EventReset              EventKind = "reset"
)

// Event is emitted by a successful operation. Payload is nil or one of the
// *Payload types below.
type Event struct {
	Kind    EventKind
	Payload any
}

type RegisteredPayload struct {
	Name string
	Seat int
}

type RoundStartedPayload struct {
	Scores    map[string]int
	FirstTurn string
}

type TurnTakenPayload struct {
	Name     string
	Op       Op
	Before   int
	After    int
	Actions  int
	NextTurn string
}

type WonPayload struct {
	Name   string
	Record GameRecord
}

type LeaderboardPayload struct {
	Entries []LeaderboardEntry
}

type ContinuedPayload struct {
	Name  string
	Score int
}

// RemovalReason says why a player left the roster.
type RemovalReason string

const (
	RemovedWithdrew RemovalReason = "withdrew"
	RemovedDeclined RemovalReason = "declined"
)

type RemovedPayload struct {
	Name   string
	Reason RemovalReason
}

// Has reports whether events contains an event of kind k.
func Has(events []Event, k EventKind) bool {
	for _, ev := range events {
		if ev.Kind == k {
			return true
		}
	}
	return false
}
