// Perfil Party Game
//
// Players on one shared device take turns revealing clues about a hidden
// profile (a person, place, or thing) while the others guess its identity.
// A scoreboard tracks points across rounds and categories.
//
// Features:
// - Sessions created with 2-8 uniquely named players; insertion order is turn order
// - Round plan drawn round-robin across the chosen categories, no repeats
// - Clue-by-clue reveal with a per-profile ceiling, pass-turn rotation, award/deduct scoring
// - Reset (same players, new plan) and restart (same plan parameters, fresh shuffle)
// - Write-through persistence after every transition, so reloads resume mid-game
// - Read-only watcher sockets per session: a scoreboard in a second tab or on
//   another phone refreshes after every committed change
// - Last-write-wins across tabs; concurrent play against one session is not merged
// - Players identified by cookie (playerID), informational only
// - Idle sessions evicted from memory after a configurable timeout and
//   rehydrated from the store on the next touch
// - In-browser QR button to share the scoreboard URL, backed by go-qrcode

package main

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/perfil/catalog"
	"github.com/Seednode/perfil/game"
	"github.com/Seednode/perfil/store"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Request bodies coming from the client
type createSessionRequest struct {
	Players []string `json:"players"`
}

type startGameRequest struct {
	Categories []string `json:"categories"`
	Rounds     int      `json:"rounds"`
}

type pointsRequest struct {
	PlayerID string `json:"playerId"`
	Points   int    `json:"points"`
}

// sessionResponse wraps every successful state-changing reply. Saved is false
// when the transition committed in memory but the write-through failed; the
// client warns about unsaved progress instead of losing the move.
type sessionResponse struct {
	Session *game.SessionState `json:"session"`
	Saved   bool               `json:"saved"`
}

// errorResponse is the JSON error envelope. Reason is machine-readable for
// client-side localization; Shortfall is set for insufficient-profile errors.
type errorResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	Shortfall int    `json:"shortfall,omitempty"`
}

// catalogResponse drives the category checkboxes and the round-count bound.
type catalogResponse struct {
	Locale     string         `json:"locale"`
	Categories []string       `json:"categories"`
	Counts     map[string]int `json:"counts"`
	MaxRounds  int            `json:"maxRounds"`
}

// SessionStateMessage is pushed to watcher sockets after every committed
// transition, and once on connect.
type SessionStateMessage struct {
	Type    string             `json:"type"` // "session_state"
	Session *game.SessionState `json:"session"`
}

// SessionGoneMessage tells watchers the session was deleted.
type SessionGoneMessage struct {
	Type string `json:"type"` // "session_gone"
}

type watcher struct {
	conn *websocket.Conn
	send chan any
}

// watcherHub fans session snapshots out to the read-only sockets of one
// session. Watchers never mutate state; they only observe it.
type watcherHub struct {
	mu       sync.Mutex
	watchers map[*watcher]bool
}

func newWatcherHub() *watcherHub {
	return &watcherHub{
		watchers: make(map[*watcher]bool),
	}
}

func (h *watcherHub) add(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.watchers[w] = true
}

func (h *watcherHub) remove(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.watchers[w]; ok {
		delete(h.watchers, w)
		close(w.send)
	}
}

func (h *watcherHub) broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for w := range h.watchers {
		select {
		case w.send <- msg:
		default:
			delete(h.watchers, w)
			close(w.send)
		}
	}
}

func (h *watcherHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for w := range h.watchers {
		close(w.send)
		_ = w.conn.Close()
		delete(h.watchers, w)
	}
}

type liveSession struct {
	state      *game.SessionState
	lastActive time.Time
}

// SessionManager serializes all transitions against the sessions it owns,
// caches live state in memory, writes through to the store after every
// successful transition, and notifies watchers. Idle sessions are evicted
// and rehydrated from the store on the next touch.
type SessionManager struct {
	mu          sync.Mutex
	engine      *game.Engine
	store       store.Store
	catalog     *catalog.Catalog
	live        map[string]*liveSession
	hubs        map[string]*watcherHub
	idleTimeout time.Duration
}

func newSessionManager(cfg *Config, profiles *catalog.Catalog, sessions store.Store) *SessionManager {
	sm := &SessionManager{
		engine:      game.NewEngine(nil),
		store:       sessions,
		catalog:     profiles,
		live:        make(map[string]*liveSession),
		hubs:        make(map[string]*watcherHub),
		idleTimeout: cfg.sessionTimeout,
	}
	if sm.idleTimeout > 0 {
		go sm.reaperLoop()
	}
	return sm
}

// hub returns the watcher hub for a session, creating it on first use.
func (sm *SessionManager) hub(sessionID string) *watcherHub {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if hub, ok := sm.hubs[sessionID]; ok {
		return hub
	}

	hub := newWatcherHub()
	sm.hubs[sessionID] = hub
	return hub
}

// currentLocked returns the live state for a session, loading it from the
// store when it is not resident. Caller holds sm.mu.
func (sm *SessionManager) currentLocked(r *http.Request, sessionID string) (*game.SessionState, error) {
	if ls, ok := sm.live[sessionID]; ok {
		ls.lastActive = time.Now()
		return ls.state, nil
	}

	state, err := sm.store.Load(r.Context(), sessionID)
	if err != nil {
		return nil, err
	}

	sm.live[sessionID] = &liveSession{
		state:      state,
		lastActive: time.Now(),
	}
	return state, nil
}

// create builds a new pending session and persists it.
func (sm *SessionManager) create(r *http.Request, playerNames []string) (*game.SessionState, bool, error) {
	state, err := sm.engine.CreateSession(playerNames)
	if err != nil {
		return nil, false, err
	}

	sm.mu.Lock()
	sm.live[state.ID] = &liveSession{
		state:      state,
		lastActive: time.Now(),
	}
	sm.mu.Unlock()

	saved := sm.store.Save(r.Context(), state) == nil

	return state, saved, nil
}

// get returns a snapshot of a session for rendering.
func (sm *SessionManager) get(r *http.Request, sessionID string) (*game.SessionState, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	state, err := sm.currentLocked(r, sessionID)
	if err != nil {
		return nil, err
	}

	return state.Clone(), nil
}

// mutate applies one engine transition atomically: load, transition, cache,
// write through, broadcast. A failed transition leaves state untouched; a
// failed save keeps the advanced in-memory state and reports saved=false.
func (sm *SessionManager) mutate(r *http.Request, sessionID string, transition func(*game.SessionState) (*game.SessionState, error)) (*game.SessionState, bool, error) {
	sm.mu.Lock()

	state, err := sm.currentLocked(r, sessionID)
	if err != nil {
		sm.mu.Unlock()
		return nil, false, err
	}

	next, err := transition(state)
	if err != nil {
		sm.mu.Unlock()
		return nil, false, err
	}

	sm.live[sessionID] = &liveSession{
		state:      next,
		lastActive: time.Now(),
	}
	hub := sm.hubs[sessionID]
	sm.mu.Unlock()

	saved := true
	if err := sm.store.Save(r.Context(), next); err != nil {
		saved = false
		log.Printf("%s | ERROR: saving session %s: %v", time.Now().Format(logDate), sessionID, err)
	}

	if hub != nil {
		hub.broadcast(SessionStateMessage{
			Type:    "session_state",
			Session: next.Clone(),
		})
	}

	return next.Clone(), saved, nil
}

// delete removes a session from memory and the store and disconnects its
// watchers.
func (sm *SessionManager) delete(r *http.Request, sessionID string) error {
	sm.mu.Lock()
	delete(sm.live, sessionID)
	hub := sm.hubs[sessionID]
	delete(sm.hubs, sessionID)
	sm.mu.Unlock()

	if hub != nil {
		hub.broadcast(SessionGoneMessage{Type: "session_gone"})
		go hub.closeAll()
	}

	return sm.store.Delete(r.Context(), sessionID)
}

// reaperLoop periodically evicts sessions idle longer than idleTimeout from
// memory. The persisted copy stays in the store, so a later request simply
// rehydrates.
func (sm *SessionManager) reaperLoop() {
	ticker := time.NewTicker(sm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-sm.idleTimeout)

		sm.mu.Lock()
		for id, ls := range sm.live {
			if ls.lastActive.Before(cutoff) {
				delete(sm.live, id)

				if hub, ok := sm.hubs[id]; ok {
					delete(sm.hubs, id)
					go hub.closeAll()
				}
			}
		}
		sm.mu.Unlock()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "perfil_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// ---- JSON plumbing ----

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine and store errors onto HTTP statuses and the JSON
// error envelope.
func writeError(cfg *Config, w http.ResponseWriter, err error) {
	var (
		validation   *game.ValidationError
		insufficient *game.InsufficientProfilesError
		unknown      *game.UnknownPlayerError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(cfg, w, http.StatusBadRequest, errorResponse{
			Error:  validation.Message,
			Reason: validation.Reason,
		})
	case errors.As(err, &insufficient):
		writeJSON(cfg, w, http.StatusBadRequest, errorResponse{
			Error:     insufficient.Error(),
			Reason:    "insufficient_profiles",
			Shortfall: insufficient.Shortfall(),
		})
	case errors.As(err, &unknown):
		writeJSON(cfg, w, http.StatusBadRequest, errorResponse{
			Error:  unknown.Error(),
			Reason: "unknown_player",
		})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(cfg, w, http.StatusNotFound, errorResponse{
			Error:  "session not found",
			Reason: "not_found",
		})
	case errors.Is(err, catalog.ErrUnknownCategory):
		writeJSON(cfg, w, http.StatusBadRequest, errorResponse{
			Error:  err.Error(),
			Reason: "unknown_category",
		})
	default:
		writeJSON(cfg, w, http.StatusInternalServerError, errorResponse{
			Error:  err.Error(),
			Reason: "storage_error",
		})
	}
}

func decodeBody(r *http.Request, v any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	return json.NewDecoder(r.Body).Decode(v)
}

// ---- Handlers ----

func serveCatalog(cfg *Config, profiles *catalog.Catalog) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, catalogResponse{
			Locale:     profiles.Locale(),
			Categories: profiles.ListCategories(),
			Counts:     profiles.Counts(),
			MaxRounds:  cfg.maxRounds,
		})
	}
}

func createSession(cfg *Config, sm *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req createSessionRequest
		if err := decodeBody(r, &req); err != nil {
			writeJSON(cfg, w, http.StatusBadRequest, errorResponse{
				Error:  "invalid request body",
				Reason: "bad_request",
			})
			return
		}

		state, saved, err := sm.create(r, req.Players)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Created session %s with %d players for %s", state.ID, len(state.Players), realIP(r))

		writeJSON(cfg, w, http.StatusCreated, sessionResponse{
			Session: state,
			Saved:   saved,
		})
	}
}

func getSession(cfg *Config, sm *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		state, err := sm.get(r, p.ByName("sessionid"))
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, sessionResponse{
			Session: state,
			Saved:   true,
		})
	}
}

func deleteSession(cfg *Config, sm *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if err := sm.delete(r, p.ByName("sessionid")); err != nil {
			writeError(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Deleted session %s", p.ByName("sessionid"))

		w.WriteHeader(http.StatusNoContent)
	}
}

func startGame(cfg *Config, sm *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		var req startGameRequest
		if err := decodeBody(r, &req); err != nil {
			writeJSON(cfg, w, http.StatusBadRequest, errorResponse{
				Error:  "invalid request body",
				Reason: "bad_request",
			})
			return
		}

		if req.Rounds > cfg.maxRounds {
			writeJSON(cfg, w, http.StatusBadRequest, errorResponse{
				Error:  "too many rounds requested",
				Reason: game.ReasonInvalidRounds,
			})
			return
		}

		state, saved, err := sm.mutate(r, p.ByName("sessionid"), func(s *game.SessionState) (*game.SessionState, error) {
			return sm.engine.StartGame(s, sm.catalog, req.Categories, req.Rounds)
		})
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Started session %s: %d rounds over %s", state.ID, state.NumberOfRounds, strings.Join(state.SelectedCategories, ", "))

		writeJSON(cfg, w, http.StatusOK, sessionResponse{
			Session: state,
			Saved:   saved,
		})
	}
}

// transitionHandler covers the body-less transitions: clue, reveal, pass,
// next, reset, restart.
func transitionHandler(cfg *Config, sm *SessionManager, action string, transition func(*game.SessionState) (*game.SessionState, error)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		state, saved, err := sm.mutate(r, p.ByName("sessionid"), transition)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: %s on session %s (round %d/%d)", action, state.ID, state.CurrentRound, state.NumberOfRounds)

		writeJSON(cfg, w, http.StatusOK, sessionResponse{
			Session: state,
			Saved:   saved,
		})
	}
}

func pointsHandler(cfg *Config, sm *SessionManager, award bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		var req pointsRequest
		if err := decodeBody(r, &req); err != nil {
			writeJSON(cfg, w, http.StatusBadRequest, errorResponse{
				Error:  "invalid request body",
				Reason: "bad_request",
			})
			return
		}

		state, saved, err := sm.mutate(r, p.ByName("sessionid"), func(s *game.SessionState) (*game.SessionState, error) {
			if award {
				return sm.engine.AwardPoints(s, req.PlayerID, req.Points)
			}
			return sm.engine.RemovePoints(s, req.PlayerID, req.Points)
		})
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, sessionResponse{
			Session: state,
			Saved:   saved,
		})
	}
}

// serveWatchSocket upgrades a read-only watcher: it receives a snapshot on
// connect and after every committed transition. Inbound messages are
// discarded; watchers cannot play.
func serveWatchSocket(cfg *Config, sm *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		sessionID := p.ByName("sessionid")

		state, err := sm.get(r, sessionID)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		watch := &watcher{
			conn: conn,
			send: make(chan any, 8),
		}

		hub := sm.hub(sessionID)
		hub.add(watch)

		watch.send <- SessionStateMessage{
			Type:    "session_state",
			Session: state,
		}

		go watch.writePump()
		watch.readPump(hub)
	}
}

func (w *watcher) readPump(hub *watcherHub) {
	defer func() {
		hub.remove(w)
		_ = w.conn.Close()
	}()

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (w *watcher) writePump() {
	defer w.conn.Close()

	for msg := range w.send {
		if err := w.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the session URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessionID := ps.ByName("sessionid")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
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

	// We are at /.../:sessionid/qr; strip trailing "/qr" to get the URL.
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

// ---- Static file paths ----

//go:embed perfil/index.html
var indexHTML []byte

//go:embed perfil/app.css
var perfilCSS []byte

//go:embed perfil/app.js
var perfilJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(perfilCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(perfilJS)
	}
}

// registerPerfilGame sets up routes so that:
//   - $path                              → HTML client
//   - $path/catalog                      → categories + counts + bounds
//   - $path/sessions                     → create session
//   - $path/sessions/:sessionid          → fetch / delete session
//   - $path/sessions/:sessionid/<action> → state transitions
//   - $path/sessions/:sessionid/ws       → read-only watcher socket
//   - $path/sessions/:sessionid/qr       → PNG QR code for the session URL
func registerPerfilGame(cfg *Config, path string, mux *httprouter.Router, profiles *catalog.Catalog, sessions store.Store) {
	sm := newSessionManager(cfg, profiles, sessions)

	engine := sm.engine

	// Client view (HTML) and shared assets
	mux.GET(cfg.prefix+path, getIndexHandler(cfg))
	mux.GET(cfg.prefix+"/assets/perfil/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/perfil/app.js", getJsHandler(cfg))

	mux.GET(cfg.prefix+path+"/catalog", serveCatalog(cfg, profiles))

	mux.POST(cfg.prefix+path+"/sessions", createSession(cfg, sm))
	mux.GET(cfg.prefix+path+"/sessions/:sessionid", getSession(cfg, sm))
	mux.DELETE(cfg.prefix+path+"/sessions/:sessionid", deleteSession(cfg, sm))

	mux.POST(cfg.prefix+path+"/sessions/:sessionid/start", startGame(cfg, sm))
	mux.POST(cfg.prefix+path+"/sessions/:sessionid/clue", transitionHandler(cfg, sm, "Clue", engine.RevealNextClue))
	mux.POST(cfg.prefix+path+"/sessions/:sessionid/reveal", transitionHandler(cfg, sm, "Reveal", engine.RevealAnswer))
	mux.POST(cfg.prefix+path+"/sessions/:sessionid/pass", transitionHandler(cfg, sm, "Pass", engine.PassTurn))
	mux.POST(cfg.prefix+path+"/sessions/:sessionid/next", transitionHandler(cfg, sm, "Next profile", engine.NextProfile))
	mux.POST(cfg.prefix+path+"/sessions/:sessionid/reset", transitionHandler(cfg, sm, "Reset", engine.ResetSamePlayers))
	mux.POST(cfg.prefix+path+"/sessions/:sessionid/restart", transitionHandler(cfg, sm, "Restart", engine.RestartSamePlan))
	mux.POST(cfg.prefix+path+"/sessions/:sessionid/award", pointsHandler(cfg, sm, true))
	mux.POST(cfg.prefix+path+"/sessions/:sessionid/deduct", pointsHandler(cfg, sm, false))

	mux.GET(cfg.prefix+path+"/sessions/:sessionid/ws", serveWatchSocket(cfg, sm))
	mux.GET(cfg.prefix+path+"/sessions/:sessionid/qr", qrHandler)
}
