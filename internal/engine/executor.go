package engine

import (
	"math"
	"time"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Executor applies buys and sells to players. It never mutates the player
// it is given: every operation works on a clone and returns it, so a failed
// precondition leaves the caller's snapshot untouched.
type Executor struct {
	now func() time.Time
}

// NewExecutor creates an Executor. A nil clock defaults to time.Now.
func NewExecutor(now func() time.Time) *Executor {
	if now == nil {
		now = time.Now
	}
	return &Executor{now: now}
}

// Buy debits price × qty from the player's cash, credits qty shares of
// symbol and records the trade.
//
// Errors: domain.ErrInvalidQuantity when qty <= 0, *domain.ValidationError
// for a non-positive price or a holding that would pass math.MaxInt64
// shares, domain.ErrInsufficientFunds when the cost exceeds the player's
// cash.
func (e *Executor) Buy(p *domain.Player, symbol string, qty int64, price decimal.Decimal) (*domain.Player, *domain.Trade, error) {
	if err := validateOrder(qty, price); err != nil {
		return nil, nil, err
	}

	if qty > math.MaxInt64-p.HoldingQuantity(symbol) {
		return nil, nil, &domain.ValidationError{Message: "quantity would exceed the maximum holding size"}
	}

	cost := price.Mul(decimal.NewFromInt(qty))
	if cost.GreaterThan(p.Cash) {
		return nil, nil, domain.ErrInsufficientFunds
	}

	next := p.Clone()
	next.Cash = next.Cash.Sub(cost)
	next.AddShares(symbol, qty)
	trade := e.record(next, symbol, qty, price, domain.TradeActionBuy)
	return next, trade, nil
}

// Sell removes qty shares of symbol, credits price × qty to the player's
// cash and records the trade. A holding that reaches zero is removed.
//
// Errors: domain.ErrInvalidQuantity when qty <= 0, *domain.ValidationError
// for a non-positive price, domain.ErrInsufficientHoldings when the player
// holds fewer than qty shares of symbol.
func (e *Executor) Sell(p *domain.Player, symbol string, qty int64, price decimal.Decimal) (*domain.Player, *domain.Trade, error) {
	if err := validateOrder(qty, price); err != nil {
		return nil, nil, err
	}
	if p.HoldingQuantity(symbol) < qty {
		return nil, nil, domain.ErrInsufficientHoldings
	}

	next := p.Clone()
	if err := next.RemoveShares(symbol, qty); err != nil {
		return nil, nil, err
	}
	next.Cash = next.Cash.Add(price.Mul(decimal.NewFromInt(qty)))
	trade := e.record(next, symbol, qty, price, domain.TradeActionSell)
	return next, trade, nil
}

func (e *Executor) record(p *domain.Player, symbol string, qty int64, price decimal.Decimal, action domain.TradeAction) *domain.Trade {
	t := domain.Trade{
		ID:       uuid.New().String(),
		Symbol:   symbol,
		Quantity: qty,
		Price:    price,
		Action:   action,
		Date:     e.now().UTC(),
	}
	p.Trades = append(p.Trades, t)
	return &t
}

func validateOrder(qty int64, price decimal.Decimal) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	if !price.IsPositive() {
		return &domain.ValidationError{Message: "price must be positive"}
	}
	return nil
}
