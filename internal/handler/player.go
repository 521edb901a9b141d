package handler

import (
	"log/slog"
	"net/http"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/efreitasn/stockgame/internal/service"
	"github.com/go-chi/chi/v5"
)

// PlayerHandler handles HTTP requests for player endpoints.
type PlayerHandler struct {
	players *service.PlayerService
	board   *service.LeaderboardService
	logger  *slog.Logger
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(players *service.PlayerService, board *service.LeaderboardService, logger *slog.Logger) *PlayerHandler {
	return &PlayerHandler{
		players: players,
		board:   board,
		logger:  logger,
	}
}

// registerPlayerRequest is the JSON request body for POST /players.
type registerPlayerRequest struct {
	Name         string   `json:"name"`
	StartingCash *float64 `json:"startingCash"`
}

type renameRequest struct {
	CurrentName string `json:"currentName"`
	NewName     string `json:"newName"`
}

type symbolRequest struct {
	Symbol string `json:"symbol"`
}

type portfolioValueResponse struct {
	PlayerID            string  `json:"playerId"`
	TotalPortfolioValue float64 `json:"totalPortfolioValue"`
}

type topPlayerResponse struct {
	TopPlayerID         string  `json:"topPlayerId"`
	TopPlayerName       string  `json:"topPlayerName"`
	TotalPortfolioValue float64 `json:"totalPortfolioValue"`
}

type watchlistResponse struct {
	PlayerID  string   `json:"playerId"`
	Watchlist []string `json:"watchlist"`
}

type watchlistPricesResponse struct {
	PlayerID string              `json:"playerId"`
	Prices   map[string]*float64 `json:"prices"`
}

// Register handles POST /players.
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerPlayerRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	p, err := h.players.Register(r.Context(), service.RegisterPlayerRequest{
		Name:         req.Name,
		StartingCash: req.StartingCash,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, buildPlayerResponse(p))
}

// List handles GET /players.
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	out := make([]playerResponse, 0, len(players))
	for _, p := range players {
		out = append(out, buildPlayerResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /players/{id}.
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.players.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, buildPlayerResponse(p))
}

// Rename handles POST /players/rename.
func (h *PlayerHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	p, err := h.players.Rename(r.Context(), req.CurrentName, req.NewName)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, buildPlayerResponse(p))
}

// TradeHistory handles GET /players/{id}/trade-history.
func (h *PlayerHandler) TradeHistory(w http.ResponseWriter, r *http.Request) {
	trades, err := h.players.TradeHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, buildTradeResponses(trades))
}

// PortfolioValue handles GET /players/{id}/portfolio/value.
func (h *PlayerHandler) PortfolioValue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	value, err := h.players.PortfolioValue(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolioValueResponse{
		PlayerID:            id,
		TotalPortfolioValue: domain.ToFloat(value),
	})
}

// Leaderboard handles GET /players/leaderboard.
func (h *PlayerHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	standings, err := h.board.Build(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	out := make([]standingResponse, 0, len(standings))
	for _, s := range standings {
		out = append(out, buildStandingResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// TopPlayer handles GET /players/top-player.
func (h *PlayerHandler) TopPlayer(w http.ResponseWriter, r *http.Request) {
	top, err := h.board.TopPlayer(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, topPlayerResponse{
		TopPlayerID:         top.PlayerID,
		TopPlayerName:       top.Name,
		TotalPortfolioValue: domain.ToFloat(top.TotalValue),
	})
}

// WatchlistAdd handles POST /players/{id}/watchlistadd.
func (h *PlayerHandler) WatchlistAdd(w http.ResponseWriter, r *http.Request) {
	var req symbolRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	id := chi.URLParam(r, "id")
	list, err := h.players.AddToWatchlist(r.Context(), id, req.Symbol)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, watchlistResponse{PlayerID: id, Watchlist: list})
}

// WatchlistRemove handles POST /players/{id}/watchlistremove.
func (h *PlayerHandler) WatchlistRemove(w http.ResponseWriter, r *http.Request) {
	var req symbolRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	id := chi.URLParam(r, "id")
	list, err := h.players.RemoveFromWatchlist(r.Context(), id, req.Symbol)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, watchlistResponse{PlayerID: id, Watchlist: list})
}

// WatchlistPrices handles GET /players/{id}/prices.
func (h *PlayerHandler) WatchlistPrices(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prices, err := h.players.WatchlistPrices(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	out := make(map[string]*float64, len(prices))
	for sym, p := range prices {
		out[sym] = priceOrNil(p)
	}
	writeJSON(w, http.StatusOK, watchlistPricesResponse{PlayerID: id, Prices: out})
}
