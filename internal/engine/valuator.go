package engine

import (
	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/shopspring/decimal"
)

// PriceLookup returns the price of a symbol and whether one is known.
type PriceLookup func(symbol string) (decimal.Decimal, bool)

// SnapshotLookup adapts a price map, as returned by a price source's
// GetPrices, into a PriceLookup. Nil entries count as unknown.
func SnapshotLookup(prices map[string]*decimal.Decimal) PriceLookup {
	return func(symbol string) (decimal.Decimal, bool) {
		p, ok := prices[symbol]
		if !ok || p == nil {
			return decimal.Zero, false
		}
		return *p, true
	}
}

// Value returns cash plus the market value of every holding. If any held
// symbol has no price the whole valuation fails with *domain.ValuationError.
// Value only reads p and is safe to call concurrently.
func Value(p *domain.Player, lookup PriceLookup) (decimal.Decimal, error) {
	total := p.Cash
	for _, h := range p.Holdings {
		price, ok := lookup(h.Symbol)
		if !ok {
			return decimal.Zero, &domain.ValuationError{PlayerID: p.ID, Symbol: h.Symbol}
		}
		total = total.Add(price.Mul(decimal.NewFromInt(h.Quantity)))
	}
	return total, nil
}
