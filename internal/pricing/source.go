// Package pricing provides stock quotes from a fixed table or a remote
// quote API.
package pricing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// PriceSource provides quotes for stock symbols.
type PriceSource interface {
	// GetPrice returns the current price of symbol. Failures match
	// domain.ErrPriceUnavailable.
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	// GetPrices looks up every symbol and never fails as a whole. A symbol
	// whose lookup failed maps to nil.
	GetPrices(ctx context.Context, symbols []string) map[string]*decimal.Decimal
}

// Direction is the movement between the two most recent closes.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Trend compares the latest close of a symbol with the previous one.
type Trend struct {
	Symbol        string
	LatestPrice   decimal.Decimal
	PreviousPrice decimal.Decimal
	Direction     Direction
}

// TrendSource reports daily price trends.
type TrendSource interface {
	Trend(ctx context.Context, symbol string) (Trend, error)
}

// NewTrend builds a Trend from two closes.
func NewTrend(symbol string, latest, previous decimal.Decimal) Trend {
	dir := DirectionFlat
	switch latest.Cmp(previous) {
	case 1:
		dir = DirectionUp
	case -1:
		dir = DirectionDown
	}
	return Trend{
		Symbol:        symbol,
		LatestPrice:   latest,
		PreviousPrice: previous,
		Direction:     dir,
	}
}

// fetchAll runs get for every distinct symbol with at most limit lookups
// in flight. Failed lookups are recorded as nil.
func fetchAll(
	ctx context.Context,
	symbols []string,
	limit int,
	get func(context.Context, string) (decimal.Decimal, error),
) map[string]*decimal.Decimal {
	out := make(map[string]*decimal.Decimal, len(symbols))
	if limit < 1 {
		limit = 1
	}

	distinct := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if _, seen := out[sym]; !seen {
			out[sym] = nil
			distinct = append(distinct, sym)
		}
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(limit)

	for _, sym := range distinct {
		g.Go(func() error {
			price, err := get(ctx, sym)
			if err != nil {
				return nil
			}
			mu.Lock()
			out[sym] = &price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // lookups never return errors
	return out
}
