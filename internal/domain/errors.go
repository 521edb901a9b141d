package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrPlayerNotFound       = errors.New("player_not_found")
	ErrPlayerNameTaken      = errors.New("player_name_taken")
	ErrNoPlayers            = errors.New("no_players")
	ErrGameNotFound         = errors.New("game_not_found")
	ErrGameCompleted        = errors.New("game_completed")
	ErrInvalidTransition    = errors.New("invalid_game_transition")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInsufficientFunds    = errors.New("insufficient_funds")
	ErrInsufficientHoldings = errors.New("insufficient_holdings")
	ErrWatchlistDuplicate   = errors.New("watchlist_duplicate")
	ErrPriceUnavailable     = errors.New("price_unavailable")
	ErrVersionConflict      = errors.New("version_conflict")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PriceError reports a failed quote lookup for one symbol. It matches
// ErrPriceUnavailable with errors.Is regardless of the underlying cause.
type PriceError struct {
	Symbol string
	Err    error
}

func (e *PriceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("price unavailable for %s", e.Symbol)
	}
	return fmt.Sprintf("price unavailable for %s: %v", e.Symbol, e.Err)
}

func (e *PriceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPriceUnavailable}
	}
	return []error{ErrPriceUnavailable, e.Err}
}

// ValuationError is returned when a portfolio cannot be valued because a
// held symbol has no price.
type ValuationError struct {
	PlayerID string
	Symbol   string
}

func (e *ValuationError) Error() string {
	return fmt.Sprintf("cannot value player %s: no price for %s", e.PlayerID, e.Symbol)
}

func (e *ValuationError) Unwrap() error {
	return ErrPriceUnavailable
}
