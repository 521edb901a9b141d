package service

import (
	"context"
	"log/slog"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/efreitasn/stockgame/internal/pricing"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultTrendSymbols are reported when no symbols are requested.
var DefaultTrendSymbols = []string{"AAPL", "MSFT", "GOOGL"}

// MarketService answers quote and trend queries.
type MarketService struct {
	prices      pricing.PriceSource
	trends      pricing.TrendSource
	concurrency int
	logger      *slog.Logger
}

// NewMarketService creates a new MarketService. concurrency bounds the
// number of trend lookups in flight.
func NewMarketService(prices pricing.PriceSource, trends pricing.TrendSource, concurrency int, logger *slog.Logger) *MarketService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &MarketService{
		prices:      prices,
		trends:      trends,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Quote returns the normalized symbol and its current price.
func (s *MarketService) Quote(ctx context.Context, symbol string) (string, decimal.Decimal, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return "", decimal.Zero, err
	}
	price, err := s.prices.GetPrice(ctx, sym)
	if err != nil {
		return "", decimal.Zero, err
	}
	return sym, price, nil
}

// Trends returns the daily trend for each symbol, in request order.
// Symbols whose lookup fails are left out.
func (s *MarketService) Trends(ctx context.Context, symbols []string) ([]pricing.Trend, error) {
	syms := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, raw := range symbols {
		sym, err := domain.NormalizeSymbol(raw)
		if err != nil {
			return nil, err
		}
		if !seen[sym] {
			seen[sym] = true
			syms = append(syms, sym)
		}
	}
	if len(syms) == 0 {
		syms = DefaultTrendSymbols
	}

	results := make([]*pricing.Trend, len(syms))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, sym := range syms {
		g.Go(func() error {
			t, err := s.trends.Trend(ctx, sym)
			if err != nil {
				s.logger.Warn("market trend unavailable",
					slog.String("symbol", sym),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[i] = &t
			return nil
		})
	}
	_ = g.Wait()

	out := make([]pricing.Trend, 0, len(results))
	for _, t := range results {
		if t != nil {
			out = append(out, *t)
		}
	}
	return out, nil
}
