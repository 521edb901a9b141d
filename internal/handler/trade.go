package handler

import (
	"log/slog"
	"net/http"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/efreitasn/stockgame/internal/service"
	"github.com/go-chi/chi/v5"
)

// TradeHandler handles buy and sell requests.
type TradeHandler struct {
	trades *service.TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(trades *service.TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

// tradeRequest is the JSON request body for buy and sell.
type tradeRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

type tradeResultResponse struct {
	Player playerResponse `json:"player"`
	Trade  tradeResponse  `json:"trade"`
}

type tradeFunc func(r *http.Request, playerID, symbol string, qty int64) (*domain.Player, *domain.Trade, error)

// Buy handles POST /players/{id}/buy.
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(r *http.Request, id, sym string, qty int64) (*domain.Player, *domain.Trade, error) {
		return h.trades.Buy(r.Context(), id, sym, qty)
	})
}

// Sell handles POST /players/{id}/sell.
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(r *http.Request, id, sym string, qty int64) (*domain.Player, *domain.Trade, error) {
		return h.trades.Sell(r.Context(), id, sym, qty)
	})
}

func (h *TradeHandler) handle(w http.ResponseWriter, r *http.Request, exec tradeFunc) {
	var req tradeRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	p, trade, err := exec(r, chi.URLParam(r, "id"), req.Symbol, req.Quantity)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tradeResultResponse{
		Player: buildPlayerResponse(p),
		Trade:  buildTradeResponse(*trade),
	})
}
