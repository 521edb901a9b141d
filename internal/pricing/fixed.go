package pricing

import (
	"context"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/shopspring/decimal"
)

// FixedPriceSource quotes every valid symbol at a configured price, with
// optional per-symbol overrides. It never calls out of process.
type FixedPriceSource struct {
	price     decimal.Decimal
	overrides map[string]decimal.Decimal
}

// NewFixedPriceSource creates a FixedPriceSource. Override keys must be
// normalized symbols.
func NewFixedPriceSource(price decimal.Decimal, overrides map[string]decimal.Decimal) *FixedPriceSource {
	o := make(map[string]decimal.Decimal, len(overrides))
	for sym, p := range overrides {
		o[sym] = p
	}
	return &FixedPriceSource{price: price, overrides: o}
}

// GetPrice returns the override for symbol, or the default price.
func (s *FixedPriceSource) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return decimal.Zero, &domain.PriceError{Symbol: symbol, Err: err}
	}
	if p, ok := s.overrides[sym]; ok {
		return p, nil
	}
	return s.price, nil
}

// GetPrices returns a price for every valid symbol and nil for the rest.
func (s *FixedPriceSource) GetPrices(ctx context.Context, symbols []string) map[string]*decimal.Decimal {
	return fetchAll(ctx, symbols, 1, s.GetPrice)
}

// Trend reports a flat trend at the fixed price.
func (s *FixedPriceSource) Trend(ctx context.Context, symbol string) (Trend, error) {
	p, err := s.GetPrice(ctx, symbol)
	if err != nil {
		return Trend{}, err
	}
	sym, _ := domain.NormalizeSymbol(symbol)
	return NewTrend(sym, p, p), nil
}
