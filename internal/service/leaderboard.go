package service

import (
	"context"
	"fmt"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/efreitasn/stockgame/internal/engine"
	"github.com/efreitasn/stockgame/internal/pricing"
)

// LeaderboardService ranks players by portfolio value.
type LeaderboardService struct {
	players domain.PlayerRepository
	prices  pricing.PriceSource
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(players domain.PlayerRepository, prices pricing.PriceSource) *LeaderboardService {
	return &LeaderboardService{players: players, prices: prices}
}

// Build values every player against one price snapshot and returns the
// standings, best first.
func (s *LeaderboardService) Build(ctx context.Context) ([]engine.Standing, error) {
	players, err := s.players.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	prices := s.prices.GetPrices(ctx, distinctHeldSymbols(players))
	return engine.BuildLeaderboard(players, engine.SnapshotLookup(prices))
}

// TopPlayer returns the leader, or domain.ErrNoPlayers when nobody has
// registered yet.
func (s *LeaderboardService) TopPlayer(ctx context.Context) (*engine.Standing, error) {
	standings, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}
	if len(standings) == 0 {
		return nil, domain.ErrNoPlayers
	}
	top := standings[0]
	return &top, nil
}

// distinctHeldSymbols returns every symbol held by any of the players, in
// first-seen order.
func distinctHeldSymbols(players []*domain.Player) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range players {
		for _, h := range p.Holdings {
			if _, ok := seen[h.Symbol]; ok {
				continue
			}
			seen[h.Symbol] = struct{}{}
			out = append(out, h.Symbol)
		}
	}
	return out
}
