// Package network - api.go
// REST surface of the board: state, board layout, joining and rolling over
// plain HTTP, plus health and metrics for operators.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MRamiBalles/Sugoroku/server/internal/domain/panel"
	"github.com/MRamiBalles/Sugoroku/server/internal/domain/token"
	"github.com/MRamiBalles/Sugoroku/server/internal/engine"
	"github.com/MRamiBalles/Sugoroku/server/internal/events"
	"github.com/MRamiBalles/Sugoroku/server/internal/infra/storage"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/logger"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/metrics"
)

// Game is the part of the engine the transports drive.
type Game interface {
	Join(id, name, sprite string) (token.Snapshot, error)
	TakeTurn(playerID string) (engine.TurnResult, error)
	Frame() engine.Frame
	Standings() []engine.Standing
	Track() *panel.Track
	Config() engine.Config
}

// RecapSource builds a player's recap from durable history.
type RecapSource interface {
	Recap(ctx context.Context, gameID, playerID string, sinceTurn int) ([]storage.RecapEvent, error)
}

// API serves the REST endpoints.
type API struct {
	game    Game
	hub     *Hub
	history *HistoryHandler
	recaps  RecapSource
	gameID  string
	logger  *logger.Logger
	started time.Time
}

// NewAPI wires the REST handlers. hub and recaps may be nil.
func NewAPI(game Game, hub *Hub, eventLog *events.EventLog, recaps RecapSource, gameID string, log *logger.Logger) *API {
	if log == nil {
		log = logger.Discard()
	}
	return &API{
		game:    game,
		hub:     hub,
		history: NewHistoryHandler(eventLog, log),
		recaps:  recaps,
		gameID:  gameID,
		logger:  log,
		started: time.Now(),
	}
}

// Routes configures all routes and returns the router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)

	r.Get("/healthz", a.handleHealth)
	r.Get("/metrics", metrics.Handler())
	r.Get("/metrics/prometheus", metrics.PrometheusHandler())

	if a.hub != nil {
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ServeWs(a.hub, w, r)
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", a.handleState)
		r.Get("/board", a.handleBoard)
		r.Get("/standings", a.handleStandings)
		r.Post("/players", a.handleJoin)
		r.Get("/players/{id}/recap", a.handleRecap)
		r.Post("/turns", a.handleTurn)
		a.history.RegisterRoutes(r)
	})

	return r
}

// logRequests logs every request once it has been served.
func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Info(fmt.Sprintf("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Microsecond)))
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if a.hub != nil {
		clients = a.hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"game_id":        a.gameID,
		"players":        len(a.game.Standings()),
		"clients":        clients,
		"uptime_seconds": int(time.Since(a.started).Seconds()),
	})
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.game.Frame())
}

// BoardView describes the loop for clients that draw it.
type BoardView struct {
	Width    int           `json:"width"`
	Depth    int           `json:"depth"`
	CellSize int           `json:"cell_size"`
	Lift     int           `json:"token_lift"`
	Walk     string        `json:"walk"`
	Panels   []panel.Panel `json:"panels"`
}

func (a *API) handleBoard(w http.ResponseWriter, r *http.Request) {
	cfg := a.game.Config()
	respondJSON(w, http.StatusOK, BoardView{
		Width:    cfg.Board.Width,
		Depth:    cfg.Board.Depth,
		CellSize: cfg.Board.CellSize,
		Lift:     cfg.TokenLift,
		Walk:     string(cfg.Walk),
		Panels:   a.game.Track().Panels(),
	})
}

func (a *API) handleStandings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.game.Standings())
}

// JoinRequest is the body of POST /api/players.
type JoinRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Sprite   string `json:"sprite"`
}

func (a *API) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerID == "" {
		req.PlayerID = uuid.NewString()
	}
	if req.Name == "" {
		req.Name = req.PlayerID
	}

	snap, err := a.game.Join(req.PlayerID, req.Name, req.Sprite)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

// TurnRequest is the body of POST /api/turns. An empty player_id rolls for
// whoever is current.
type TurnRequest struct {
	PlayerID string `json:"player_id"`
}

func (a *API) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := a.game.TakeTurn(req.PlayerID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (a *API) handleRecap(w http.ResponseWriter, r *http.Request) {
	if a.recaps == nil {
		respondError(w, http.StatusNotFound, "Recaps need persistent storage")
		return
	}

	since := 0
	if s := r.URL.Query().Get("since"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "since must be a turn number")
			return
		}
		since = n
	}

	recap, err := a.recaps.Recap(r.Context(), a.gameID, chi.URLParam(r, "id"), since)
	if err != nil {
		a.logger.Errorf("Recap failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Recap unavailable")
		return
	}
	respondJSON(w, http.StatusOK, recap)
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrDuplicatePlayer),
		errors.Is(err, engine.ErrRosterFull),
		errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, engine.ErrTokenMoving),
		errors.Is(err, engine.ErrEmptyRoster):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidPlayer),
		errors.Is(err, engine.ErrInvalidConfiguration),
		errors.Is(err, panel.ErrIndexOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
