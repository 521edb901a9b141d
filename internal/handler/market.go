package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/efreitasn/stockgame/internal/service"
	"github.com/go-chi/chi/v5"
)

// MarketHandler handles quote and trend requests.
type MarketHandler struct {
	market *service.MarketService
	logger *slog.Logger
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(market *service.MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{market: market, logger: logger}
}

type priceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type trendResponse struct {
	Symbol        string  `json:"symbol"`
	LatestPrice   float64 `json:"latestPrice"`
	PreviousPrice float64 `json:"previousPrice"`
	Direction     string  `json:"direction"`
}

// Price handles GET /stocks/{symbol}/price.
func (h *MarketHandler) Price(w http.ResponseWriter, r *http.Request) {
	sym, price, err := h.market.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{Symbol: sym, Price: domain.ToFloat(price)})
}

// Trends handles GET /players/market-trends?symbols=A,B.
func (h *MarketHandler) Trends(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, s)
			}
		}
	}

	trends, err := h.market.Trends(r.Context(), symbols)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	out := make([]trendResponse, 0, len(trends))
	for _, t := range trends {
		out = append(out, trendResponse{
			Symbol:        t.Symbol,
			LatestPrice:   domain.ToFloat(t.LatestPrice),
			PreviousPrice: domain.ToFloat(t.PreviousPrice),
			Direction:     string(t.Direction),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
