package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/efreitasn/stockgame/internal/engine"
	"github.com/efreitasn/stockgame/internal/pricing"
	"github.com/efreitasn/stockgame/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockPriceSource is a testify mock for pricing.PriceSource and
// pricing.TrendSource.
type mockPriceSource struct {
	mock.Mock
}

func (m *mockPriceSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockPriceSource) GetPrices(ctx context.Context, symbols []string) map[string]*decimal.Decimal {
	args := m.Called(ctx, symbols)
	return args.Get(0).(map[string]*decimal.Decimal)
}

func (m *mockPriceSource) Trend(ctx context.Context, symbol string) (pricing.Trend, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(pricing.Trend), args.Error(1)
}

func priceErr(sym string) error {
	return &domain.PriceError{Symbol: sym, Err: context.DeadlineExceeded}
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingPublisher) Publish(evt domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// conflictingStore fails the first n player saves with a version conflict.
type conflictingStore struct {
	*store.MemoryStore
	mu        sync.Mutex
	remaining int
	saves     int
}

func (c *conflictingStore) SavePlayer(ctx context.Context, p *domain.Player) error {
	c.mu.Lock()
	c.saves++
	if c.remaining > 0 {
		c.remaining--
		c.mu.Unlock()
		return domain.ErrVersionConflict
	}
	c.mu.Unlock()
	return c.MemoryStore.SavePlayer(ctx, p)
}

// testEnv wires every service against one in-memory store.
type testEnv struct {
	store   *store.MemoryStore
	events  *recordingPublisher
	players *PlayerService
	trades  *TradeService
	board   *LeaderboardService
	games   *GameService
	market  *MarketService
}

func newTestEnv(t *testing.T, prices pricing.PriceSource) *testEnv {
	t.Helper()
	s := store.NewMemoryStore()
	events := &recordingPublisher{}
	locks := NewLocker()
	clock := func() time.Time { return testNow }

	env := &testEnv{
		store:   s,
		events:  events,
		players: NewPlayerService(s, s, prices, events, locks, decimal.NewFromInt(10000), 3),
		trades:  NewTradeService(s, prices, engine.NewExecutor(clock), events, locks, 3),
		board:   NewLeaderboardService(s, prices),
		games:   NewGameService(s, s, prices, events, locks, 3, discardLogger()),
	}
	env.players.now = clock
	env.trades.now = clock
	env.games.now = clock
	if ts, ok := prices.(pricing.TrendSource); ok {
		env.market = NewMarketService(prices, ts, 2, discardLogger())
	}
	return env
}

// fixedPrices quotes 100 for everything except the given overrides.
func fixedPrices(overrides map[string]string) *pricing.FixedPriceSource {
	o := make(map[string]decimal.Decimal, len(overrides))
	for sym, p := range overrides {
		o[sym] = dec(p)
	}
	return pricing.NewFixedPriceSource(decimal.NewFromInt(100), o)
}

func (e *testEnv) register(t *testing.T, name string, cash *float64) *domain.Player {
	t.Helper()
	p, err := e.players.Register(context.Background(), RegisterPlayerRequest{Name: name, StartingCash: cash})
	require.NoError(t, err)
	return p
}

func ptr[T any](v T) *T {
	return &v
}
