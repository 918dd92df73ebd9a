/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package reach100 holds the rules of the Reach 100 game.
//
// Players take turns applying +1, -1, *2 or /2 to their own score. Whoever
// lands on exactly 100 wins, gets a game record, and then decides whether to
// keep playing with a fresh score or leave the table.
package reach100

import (
	"errors"
	"math/rand"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	MaxPlayers      = 8
	TargetScore     = 100
	ScoreRange      = 100
	LeaderboardSize = 3
)

var (
	ErrRosterFull        = errors.New("roster is full")
	ErrEmptyName         = errors.New("player name is empty")
	ErrDuplicateName     = errors.New("player name is already taken")
	ErrNoPlayers         = errors.New("no players registered")
	ErrRoundNotActive    = errors.New("no round in progress")
	ErrAwaitingDecision  = errors.New("waiting for the winner to continue or stop")
	ErrNoPendingDecision = errors.New("no winner is waiting for a decision")
	ErrUnknownOp         = errors.New("unknown operation")
	ErrUnknownPlayer     = errors.New("player not found")
)

// Phase is the round state of a game.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseActive           Phase = "active"
	PhaseAwaitingDecision Phase = "awaiting_decision"
)

// Op is one of the four turn operations.
type Op string

const (
	OpIncrement Op = "+1"
	OpDecrement Op = "-1"
	OpDouble    Op = "*2"
	OpHalve     Op = "/2"
)

// Ops lists the operations in the order the board shows them.
var Ops = []Op{OpIncrement, OpDecrement, OpDouble, OpHalve}

func ParseOp(s string) (Op, error) {
	op := Op(strings.TrimSpace(s))
	if !slices.Contains(Ops, op) {
		return "", ErrUnknownOp
	}
	return op, nil
}

// apply returns the score after op. Decrement never goes below 1.
func (op Op) apply(score int) int {
	switch op {
	case OpIncrement:
		return score + 1
	case OpDecrement:
		if score > 1 {
			return score - 1
		}
		return score
	case OpDouble:
		return score * 2
	case OpHalve:
		return score / 2
	}
	return score
}

// GameRecord is one finished round for a player.
type GameRecord struct {
	ActionsTaken int       `json:"actions"`
	EndedAt      time.Time `json:"endTime"`
}

// Player is a registered participant. Score is only meaningful while a round
// is active.
type Player struct {
	Name    string       `json:"name"`
	Score   int          `json:"score"`
	Actions int          `json:"actions"`
	Games   []GameRecord `json:"games"`
}

func (p Player) clone() Player {
	p.Games = slices.Clone(p.Games)
	if p.Games == nil {
		p.Games = []GameRecord{}
	}
	return p
}

// Game owns the roster, the turn pointer and the leaderboard. It is not safe
// for concurrent use; callers serialise access.
type Game struct {
	rng *rand.Rand
	now func() time.Time

	players []Player
	current int
	phase   Phase
	board   []LeaderboardEntry
}

// New constructs a Game with the provided rng and clock, or time-seeded
// defaults when nil.
func New(rng *rand.Rand, now func() time.Time) *Game {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Game{
		rng:     rng,
		now:     now,
		players: []Player{},
		phase:   PhaseIdle,
		board:   []LeaderboardEntry{},
	}
}

// Restore replaces the roster and leaderboard with previously saved data.
// The turn pointer and round state are not persisted and start over.
func (g *Game) Restore(players []Player, board []LeaderboardEntry) {
	g.players = make([]Player, 0, len(players))
	for _, p := range players {
		g.players = append(g.players, p.clone())
	}
	if len(g.players) > MaxPlayers {
		g.players = g.players[:MaxPlayers]
	}
	g.board = slices.Clone(board)
	if g.board == nil {
		g.board = []LeaderboardEntry{}
	}
	g.current = 0
	g.phase = PhaseIdle
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func (g *Game) indexOf(name string) int {
	return slices.IndexFunc(g.players, func(p Player) bool {
		return p.Name == name
	})
}

// Register appends a new player to the roster.
func (g *Game) Register(name string) ([]Event, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if len(g.players) >= MaxPlayers {
		return nil, ErrRosterFull
	}
	if g.indexOf(name) >= 0 {
		return nil, ErrDuplicateName
	}

	g.players = append(g.players, Player{Name: name, Games: []GameRecord{}})

	return []Event{{
		Kind:    EventRegistered,
		Payload: RegisteredPayload{Name: name, Seat: len(g.players) - 1},
	}}, nil
}

func (g *Game) randomScore() int {
	return g.rng.Intn(ScoreRange)
}

// StartRound deals every player a random score in [0, 100) and hands the
// first turn to the first registered player.
func (g *Game) StartRound() ([]Event, error) {
	if len(g.players) == 0 {
		return nil, ErrNoPlayers
	}
	if g.phase == PhaseAwaitingDecision {
		return nil, ErrAwaitingDecision
	}

	scores := make(map[string]int, len(g.players))
	for i := range g.players {
		g.players[i].Score = g.randomScore()
		g.players[i].Actions = 0
		scores[g.players[i].Name] = g.players[i].Score
	}
	g.current = 0
	g.phase = PhaseActive

	return []Event{{
		Kind:    EventRoundStarted,
		Payload: RoundStartedPayload{Scores: scores, FirstTurn: g.players[0].Name},
	}}, nil
}

// Apply performs op for the current player. Every call counts as an action,
// including a decrement that was floored. Landing on exactly TargetScore wins;
// the game then waits for ResolveContinue before anyone else may act.
func (g *Game) Apply(op Op) ([]Event, error) {
	if !slices.Contains(Ops, op) {
		return nil, ErrUnknownOp
	}
	switch g.phase {
	case PhaseIdle:
		return nil, ErrRoundNotActive
	case PhaseAwaitingDecision:
		return nil, ErrAwaitingDecision
	}
	if len(g.players) == 0 {
		return nil, ErrNoPlayers
	}

	pl := &g.players[g.current]
	before := pl.Score
	pl.Score = op.apply(pl.Score)
	pl.Actions++

	turn := TurnTakenPayload{
		Name:    pl.Name,
		Op:      op,
		Before:  before,
		After:   pl.Score,
		Actions: pl.Actions,
	}

	if pl.Score != TargetScore {
		g.current = (g.current + 1) % len(g.players)
		turn.NextTurn = g.players[g.current].Name
		return []Event{{Kind: EventTurnTaken, Payload: turn}}, nil
	}

	turn.NextTurn = pl.Name
	record := GameRecord{ActionsTaken: pl.Actions, EndedAt: g.now()}
	pl.Games = append(pl.Games, record)
	g.board = ComputeLeaderboard(g.players)
	g.phase = PhaseAwaitingDecision

	return []Event{
		{Kind: EventTurnTaken, Payload: turn},
		{Kind: EventWon, Payload: WonPayload{Name: pl.Name, Record: record}},
		{Kind: EventLeaderboardChanged, Payload: LeaderboardPayload{Entries: slices.Clone(g.board)}},
	}, nil
}

// ResolveContinue settles the winner's choice. Keeping the winner rerolls
// their score and clears their action count; stopping removes them.
func (g *Game) ResolveContinue(keep bool) ([]Event, error) {
	if g.phase != PhaseAwaitingDecision {
		return nil, ErrNoPendingDecision
	}

	pl := &g.players[g.current]
	if keep {
		pl.Score = g.randomScore()
		pl.Actions = 0
		g.phase = PhaseActive
		return []Event{{
			Kind:    EventPlayerContinued,
			Payload: ContinuedPayload{Name: pl.Name, Score: pl.Score},
		}}, nil
	}

	return g.removeCurrent(RemovedDeclined), nil
}

// Withdraw removes the current player without touching any game history.
func (g *Game) Withdraw() ([]Event, error) {
	switch g.phase {
	case PhaseIdle:
		return nil, ErrRoundNotActive
	case PhaseAwaitingDecision:
		return nil, ErrAwaitingDecision
	}
	if len(g.players) == 0 {
		return nil, ErrNoPlayers
	}
	return g.removeCurrent(RemovedWithdrew), nil
}

func (g *Game) removeCurrent(reason RemovalReason) []Event {
	name := g.players[g.current].Name
	g.players = slices.Delete(g.players, g.current, g.current+1)

	events := []Event{{
		Kind:    EventPlayerRemoved,
		Payload: RemovedPayload{Name: name, Reason: reason},
	}}

	if len(g.players) == 0 {
		g.current = 0
		g.phase = PhaseIdle
		return append(events, Event{Kind: EventRoundEnded})
	}

	g.current %= len(g.players)
	g.phase = PhaseActive
	return events
}

// Reset ends the round and zeroes scores and actions. Game history and the
// leaderboard are kept. A pending win decision is dropped and the winner
// stays on the roster.
func (g *Game) Reset() ([]Event, error) {
	for i := range g.players {
		g.players[i].Score = 0
		g.players[i].Actions = 0
	}
	g.current = 0
	g.phase = PhaseIdle

	return []Event{{Kind: EventReset}}, nil
}

func (g *Game) Phase() Phase {
	return g.phase
}

func (g *Game) RoundActive() bool {
	return g.phase != PhaseIdle
}

func (g *Game) CurrentIndex() int {
	return g.current
}

// Current returns the player whose turn it is.
func (g *Game) Current() (Player, bool) {
	if len(g.players) == 0 || g.phase == PhaseIdle {
		return Player{}, false
	}
	return g.players[g.current].clone(), true
}

// Pending returns the winner waiting on a continue decision, if any.
func (g *Game) Pending() (Player, bool) {
	if g.phase != PhaseAwaitingDecision {
		return Player{}, false
	}
	return g.players[g.current].clone(), true
}

// Players returns a copy of the roster in registration order.
func (g *Game) Players() []Player {
	out := make([]Player, 0, len(g.players))
	for _, p := range g.players {
		out = append(out, p.clone())
	}
	return out
}

func (g *Game) Leaderboard() []LeaderboardEntry {
	return slices.Clone(g.board)
}

// History returns the finished rounds of the named player.
func (g *Game) History(name string) ([]GameRecord, error) {
	i := g.indexOf(normalizeName(name))
	if i < 0 {
		return nil, ErrUnknownPlayer
	}
	return g.players[i].clone().Games, nil
}

// Snapshot is a point-in-time view of a game, shaped for clients.
type Snapshot struct {
	Phase       Phase              `json:"phase"`
	RoundActive bool               `json:"round_active"`
	Current     int                `json:"current"`
	Pending     string             `json:"pending,omitempty"`
	Players     []Player           `json:"players"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	CanRegister bool               `json:"can_register"`
	CanStart    bool               `json:"can_start"`
}

func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Phase:       g.phase,
		RoundActive: g.RoundActive(),
		Current:     g.current,
		Players:     g.Players(),
		Leaderboard: g.Leaderboard(),
		CanRegister: len(g.players) < MaxPlayers,
		CanStart:    len(g.players) > 0 && g.phase != PhaseAwaitingDecision,
	}
	if p, ok := g.Pending(); ok {
		s.Pending = p.Name
	}
	return s
}
