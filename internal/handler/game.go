package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/efreitasn/stockgame/internal/service"
	"github.com/go-chi/chi/v5"
)

// GameHandler handles the admin game endpoints.
type GameHandler struct {
	games  *service.GameService
	logger *slog.Logger
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(games *service.GameService, logger *slog.Logger) *GameHandler {
	return &GameHandler{games: games, logger: logger}
}

// createGameRequest is the JSON request body for POST /admin/games.
// Times are RFC 3339.
type createGameRequest struct {
	Name      string    `json:"name"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	PlayerIDs []string  `json:"playerIds"`
}

type addParticipantRequest struct {
	PlayerID string `json:"playerId"`
}

type createGameResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	GameID  string       `json:"gameId"`
	Game    gameResponse `json:"game"`
}

type declareWinnerResponse struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message"`
	Winner       *standingResponse `json:"winner"`
	Participants int               `json:"participants"`
	Game         gameResponse      `json:"game"`
}

// Create handles POST /admin/games.
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	g, err := h.games.Create(r.Context(), service.CreateGameRequest{
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		PlayerIDs: req.PlayerIDs,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, createGameResponse{
		Success: true,
		Message: "Game created",
		GameID:  g.ID,
		Game:    buildGameResponse(g),
	})
}

// List handles GET /admin/games.
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	games, err := h.games.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	out := make([]gameResponse, 0, len(games))
	for _, g := range games {
		out = append(out, buildGameResponse(g))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /admin/games/{id}.
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.games.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, buildGameResponse(g))
}

// AddParticipant handles POST /admin/games/{id}/players.
func (h *GameHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	var req addParticipantRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	g, err := h.games.AddParticipant(r.Context(), chi.URLParam(r, "id"), req.PlayerID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, buildGameResponse(g))
}

// DeclareWinner handles POST /admin/games/{id}/declare-winner.
func (h *GameHandler) DeclareWinner(w http.ResponseWriter, r *http.Request) {
	res, err := h.games.DeclareWinner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := declareWinnerResponse{
		Success:      true,
		Message:      "Game completed without participants",
		Participants: res.Participants,
		Game:         buildGameResponse(res.Game),
	}
	if res.Winner != nil {
		s := buildStandingResponse(*res.Winner)
		resp.Winner = &s
		resp.Message = "Winner declared: " + res.Winner.Name
	}
	writeJSON(w, http.StatusOK, resp)
}
