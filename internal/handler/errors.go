package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/efreitasn/stockgame/internal/domain"
)

// writeServiceError maps domain errors to HTTP responses. Anything it does
// not recognize is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeError(w, http.StatusBadRequest, "invalid_request", reqErr.Message)
		return
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "invalid_quantity", "Quantity must be a positive integer")
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, "insufficient_funds", "Insufficient funds")
	case errors.Is(err, domain.ErrInsufficientHoldings):
		writeError(w, http.StatusBadRequest, "insufficient_holdings", "Insufficient holdings")
	case errors.Is(err, domain.ErrWatchlistDuplicate):
		writeError(w, http.StatusBadRequest, "watchlist_duplicate", "Symbol is already on the watchlist")
	case errors.Is(err, domain.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, "player_not_found", "Player not found")
	case errors.Is(err, domain.ErrGameNotFound):
		writeError(w, http.StatusNotFound, "game_not_found", "Game not found")
	case errors.Is(err, domain.ErrNoPlayers):
		writeError(w, http.StatusNotFound, "no_players", "No players found")
	case errors.Is(err, domain.ErrPlayerNameTaken):
		writeError(w, http.StatusConflict, "player_name_taken", "Player name is already taken")
	case errors.Is(err, domain.ErrGameCompleted):
		writeError(w, http.StatusConflict, "game_completed", "Game is already completed")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_game_transition", "Game cannot make that transition")
	case errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, "version_conflict", "The resource was modified concurrently, please retry")
	case errors.Is(err, domain.ErrPriceUnavailable):
		writeError(w, http.StatusBadGateway, "price_unavailable", priceMessage(err))
	default:
		logger.Error("internal error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func priceMessage(err error) string {
	var pe *domain.PriceError
	if errors.As(err, &pe) {
		return fmt.Sprintf("Price unavailable for %s", pe.Symbol)
	}
	var ve *domain.ValuationError
	if errors.As(err, &ve) {
		return fmt.Sprintf("Price unavailable for %s", ve.Symbol)
	}
	return "Price unavailable"
}
