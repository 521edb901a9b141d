package service

import (
	"context"
	"time"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/efreitasn/stockgame/internal/engine"
	"github.com/efreitasn/stockgame/internal/pricing"
	"github.com/shopspring/decimal"
)

// TradeService executes buys and sells at the current market price.
type TradeService struct {
	playerMutator
	prices   pricing.PriceSource
	executor *engine.Executor
	events   EventPublisher
	now      func() time.Time
}

// NewTradeService creates a new TradeService with the given dependencies.
func NewTradeService(
	players domain.PlayerRepository,
	prices pricing.PriceSource,
	executor *engine.Executor,
	events EventPublisher,
	locks *Locker,
	retries int,
) *TradeService {
	if events == nil {
		events = nopPublisher{}
	}
	return &TradeService{
		playerMutator: playerMutator{players: players, locks: locks, retries: retries},
		prices:        prices,
		executor:      executor,
		events:        events,
		now:           time.Now,
	}
}

// Buy purchases qty shares of symbol for the player.
func (s *TradeService) Buy(ctx context.Context, playerID, symbol string, qty int64) (*domain.Player, *domain.Trade, error) {
	return s.execute(ctx, playerID, symbol, qty, s.executor.Buy)
}

// Sell sells qty shares of symbol from the player's holdings.
func (s *TradeService) Sell(ctx context.Context, playerID, symbol string, qty int64) (*domain.Player, *domain.Trade, error) {
	return s.execute(ctx, playerID, symbol, qty, s.executor.Sell)
}

type tradeFunc func(p *domain.Player, symbol string, qty int64, price decimal.Decimal) (*domain.Player, *domain.Trade, error)

// execute validates the order, fetches the price outside the player lock
// and then applies the trade. A failed price fetch leaves the player
// untouched.
func (s *TradeService) execute(ctx context.Context, playerID, symbol string, qty int64, apply tradeFunc) (*domain.Player, *domain.Trade, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, nil, err
	}
	if qty <= 0 {
		return nil, nil, domain.ErrInvalidQuantity
	}
	if _, err := s.players.FindPlayer(ctx, playerID); err != nil {
		return nil, nil, err
	}

	price, err := s.prices.GetPrice(ctx, sym)
	if err != nil {
		return nil, nil, err
	}

	var trade *domain.Trade
	p, err := s.mutate(ctx, playerID, func(p *domain.Player) (*domain.Player, error) {
		next, t, err := apply(p, sym, qty, price)
		if err != nil {
			return nil, err
		}
		trade = t
		return next, nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.events.Publish(newEvent(domain.EventTradeExecuted, s.now(), tradeExecutedData{
		TradeID:  trade.ID,
		PlayerID: p.ID,
		Symbol:   trade.Symbol,
		Action:   string(trade.Action),
		Quantity: trade.Quantity,
		Price:    domain.ToFloat(trade.Price),
		Total:    domain.ToFloat(trade.Total()),
		Cash:     domain.ToFloat(p.Cash),
	}))
	return p, trade, nil
}
