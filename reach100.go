// Reach 100
//
// Players register at a shared table, then take turns applying +1, -1, *2 or
// /2 to their own score. The first to land on exactly 100 wins the round,
// gets a game record, and chooses whether to keep playing with a fresh score
// or leave. The three players with the fewest average actions per win make up
// the leaderboard.
//
// Features:
// - WebSockets per game ID: /path/:gameid and /path/:gameid/ws
// - Play is hot-seat: any browser on the game may act for the current player
// - Clients identified by cookie (clientID), used for logging only
// - Roster and leaderboard saved to the configured store after every change,
//   and reloaded when a game ID is reopened
// - Games unloaded after a configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - Rejected commands are reported only to the client that sent them
// - JSON snapshot at /path/:gameid/state
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/reach100/games/reach100"
	"github.com/Seednode/reach100/storage"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	storeTimeout = 5 * time.Second
	writeWait    = 10 * time.Second
)

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`               // "register", "start", "op", "withdraw", "continue", "reset", "history"
	Name     string `json:"name,omitempty"`     // register / history
	Op       string `json:"op,omitempty"`       // op
	Continue *bool  `json:"continue,omitempty"` // continue
}

// StateMessage carries the full game snapshot to every client.
type StateMessage struct {
	Type string `json:"type"` // "state"
	reach100.Snapshot
	Standings []string `json:"standings"` // leaderboard lines, ready to display
}

// WinMessage announces that someone reached the target.
type WinMessage struct {
	Type    string `json:"type"` // "win"
	Name    string `json:"name"`
	Actions int    `json:"actions"`
	Message string `json:"message"`
}

// DecisionMessage asks the winner whether to keep playing.
type DecisionMessage struct {
	Type    string `json:"type"` // "decision"
	Name    string `json:"name"`
	Message string `json:"message"`
}

// RejectedMessage is sent to a single client whose command was ignored.
type RejectedMessage struct {
	Type    string `json:"type"` // "rejected"
	Command string `json:"command"`
	Reason  string `json:"reason"`
}

// HistoryMessage lists one player's finished games.
type HistoryMessage struct {
	Type  string                `json:"type"` // "history"
	Name  string                `json:"name"`
	Games []reach100.GameRecord `json:"games"`
}

// SimpleMessage is for generic notifications ("removed", "round_over").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	clientID string
}

type command struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	clients map[*Client]bool

	game   *reach100.Game
	keeper *reach100.Keeper

	register chan *Client
	unreg    chan *Client
	commands chan command
	quit     chan struct{}

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newHub(gameID string, game *reach100.Game, keeper *reach100.Keeper) *Hub {
	now := time.Now()
	return &Hub{
		id:         gameID,
		clients:    make(map[*Client]bool),
		game:       game,
		keeper:     keeper,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		quit:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			select {
			case <-h.quit:
				// closeAll already ran; this client arrived too late.
				close(c.send)
				h.mu.Unlock()
				return
			default:
			}
			h.lastActive = time.Now()
			h.clients[c] = true

			c.send <- h.stateMessageLocked()
			if p, ok := h.game.Pending(); ok {
				c.send <- decisionMessage(p.Name)
			}
			h.mu.Unlock()

			logf(cfg, "GAMES: Client %s connected to %s", c.clientID, h.id)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case cmd := <-h.commands:
			h.handleCommand(cfg, cmd)

		case <-h.quit:
			return
		}
	}
}

// handleCommand applies one client command to the game. Commands run one at
// a time, so the game never sees overlapping turns.
func (h *Hub) handleCommand(cfg *Config, cmd command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	msg := cmd.msg
	var (
		events []reach100.Event
		err    error
	)

	switch msg.Type {
	case "register":
		events, err = h.game.Register(msg.Name)
	case "start":
		events, err = h.game.StartRound()
	case "op":
		var op reach100.Op
		op, err = reach100.ParseOp(msg.Op)
		if err == nil {
			events, err = h.game.Apply(op)
		}
	case "withdraw":
		events, err = h.game.Withdraw()
	case "continue":
		if msg.Continue == nil {
			err = errors.New("missing continue choice")
			break
		}
		events, err = h.game.ResolveContinue(*msg.Continue)
	case "reset":
		events, err = h.game.Reset()
	case "history":
		h.sendHistoryLocked(cmd.client, msg.Name)
		return
	default:
		return
	}

	if err != nil {
		logf(cfg, "GAMES: Ignored %q from %s in %s: %v", msg.Type, cmd.client.clientID, h.id, err)
		h.sendLocked(cmd.client, RejectedMessage{
			Type:    "rejected",
			Command: msg.Type,
			Reason:  err.Error(),
		})
		return
	}

	h.persistLocked(events)

	for _, ev := range events {
		h.announceLocked(cfg, ev)
	}

	h.broadcastLocked(h.stateMessageLocked())
}

// persistLocked saves what events changed. Failures are logged and play goes
// on with the in-memory state.
func (h *Hub) persistLocked(events []reach100.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := h.keeper.Persist(ctx, h.game, events); err != nil {
		errorf("STORE: Saving %s failed: %v", h.id, err)
	}
}

// announceLocked logs an event and relays the ones players need to see.
func (h *Hub) announceLocked(cfg *Config, ev reach100.Event) {
	switch p := ev.Payload.(type) {
	case reach100.RegisteredPayload:
		logf(cfg, "GAMES: Player %q joined %s", p.Name, h.id)

	case reach100.RoundStartedPayload:
		logf(cfg, "GAMES: Round started in %s with %d players", h.id, len(p.Scores))

	case reach100.TurnTakenPayload:
		logf(cfg, "GAMES: %q played %s (%d -> %d) in %s", p.Name, p.Op, p.Before, p.After, h.id)

	case reach100.WonPayload:
		logf(cfg, "GAMES: %q reached %d in %d actions in %s", p.Name, reach100.TargetScore, p.Record.ActionsTaken, h.id)
		h.broadcastLocked(WinMessage{
			Type:    "win",
			Name:    p.Name,
			Actions: p.Record.ActionsTaken,
			Message: fmt.Sprintf("Player %s reached %d with %d actions!", p.Name, reach100.TargetScore, p.Record.ActionsTaken),
		})
		h.broadcastLocked(decisionMessage(p.Name))

	case reach100.ContinuedPayload:
		logf(cfg, "GAMES: %q keeps playing in %s", p.Name, h.id)

	case reach100.RemovedPayload:
		logf(cfg, "GAMES: %q left %s (%s)", p.Name, h.id, p.Reason)
		text := p.Name + " withdrew from the game."
		if p.Reason == reach100.RemovedDeclined {
			text = p.Name + " stopped playing."
		}
		h.broadcastLocked(SimpleMessage{Type: "removed", Message: text})

	case reach100.LeaderboardPayload:
		logf(cfg, "GAMES: Leaderboard in %s now has %d entries", h.id, len(p.Entries))

	default:
		switch ev.Kind {
		case reach100.EventRoundEnded:
			h.broadcastLocked(SimpleMessage{Type: "round_over", Message: "No players left. The round is over."})
		case reach100.EventReset:
			logf(cfg, "GAMES: Game %s reset", h.id)
		}
	}
}

func decisionMessage(name string) DecisionMessage {
	return DecisionMessage{
		Type:    "decision",
		Name:    name,
		Message: "Player " + name + " wins! Do you want to continue playing?",
	}
}

func (h *Hub) stateMessageLocked() StateMessage {
	snap := h.game.Snapshot()
	standings := make([]string, 0, len(snap.Leaderboard))
	for _, e := range snap.Leaderboard {
		standings = append(standings, e.String())
	}
	return StateMessage{
		Type:      "state",
		Snapshot:  snap,
		Standings: standings,
	}
}

func (h *Hub) snapshot() reach100.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.game.Snapshot()
}

func (h *Hub) sendHistoryLocked(c *Client, name string) {
	games, err := h.game.History(name)
	if err != nil {
		h.sendLocked(c, RejectedMessage{
			Type:    "rejected",
			Command: "history",
			Reason:  err.Error(),
		})
		return
	}
	h.sendLocked(c, HistoryMessage{
		Type:  "history",
		Name:  strings.TrimSpace(name),
		Games: games,
	})
}

// sendLocked delivers msg to one client, dropping it if its buffer is full.
func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// closeAll stops the hub and disconnects all of its clients (used by reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.quit:
		return
	default:
		close(h.quit)
	}

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const clientCookieName = "reach100_id"

func getOrSetClientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(clientCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     clientCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

var gameIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,32}$`)

func validGameID(id string) bool {
	return gameIDPattern.MatchString(id)
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session sharing one backing store.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	store       storage.Store
}

func newGameManager(ctx context.Context, idleTimeout time.Duration, store storage.Store) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		store:       store,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop(ctx)
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	game := reach100.New(nil, nil)
	keeper := reach100.NewKeeper(storage.Scope(gm.store, gameID))

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := keeper.Restore(ctx, game); err != nil {
		errorf("STORE: Loading %s failed, starting empty: %v", gameID, err)
	} else if n := len(game.Players()); n > 0 {
		logf(cfg, "STORE: Restored %d players in %s", n, gameID)
	}

	hub := newHub(gameID, game, keeper)
	gm.hubs[gameID] = hub
	go hub.run(cfg)
	return hub
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically unloads hubs that have been idle longer than
// idleTimeout. Their state stays in the store.
func (gm *GameManager) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			gm.closeAll()
			return
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-gm.idleTimeout)

		gm.mu.Lock()
		for id, hub := range gm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(gm.hubs, id)
				go hub.closeAll()
			}
		}
		gm.mu.Unlock()
	}
}

func (gm *GameManager) closeAll() {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.closeAll()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if !validGameID(gameID) {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		clientID := getOrSetClientID(w, r)

		hub := gm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Upgrade for %s failed: %v", gameID, err)
			return
		}

		// The server's read timeout would otherwise end long-lived sockets.
		_ = conn.SetReadDeadline(time.Time{})

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			clientID: clientID,
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.quit:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "register", "start", "op", "withdraw", "continue", "reset", "history":
			select {
			case h.commands <- command{client: c, msg: msg}:
			case <-h.quit:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// serveState returns the game snapshot as JSON.
func serveState(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if !validGameID(gameID) {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		snap := gm.getHub(cfg, gameID).snapshot()

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(snap); err != nil {
			errs <- err

			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if !validGameID(gameID) {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func getIndexHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validGameID(ps.ByName("gameid")) {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		data, err := assets.ReadFile("assets/reach100/index.html")
		if err != nil {
			errs <- err

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetClientID(w, r)

		_, _ = w.Write(data)
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerReach100Game sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/state    → JSON snapshot of that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerReach100Game(ctx context.Context, cfg *Config, path string, mux *httprouter.Router, store storage.Store, errs chan<- error) *GameManager {
	gm := newGameManager(ctx, cfg.sessionTimeout, store)

	// Root path → redirect to new random game
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	// Per-game client view (HTML)
	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg, errs))

	// Per-game websocket
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	// Per-game snapshot
	mux.GET(cfg.prefix+path+"/:gameid/state", serveState(cfg, gm, errs))

	// Per-game QR code
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)

	return gm
}
