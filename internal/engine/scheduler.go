package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/efreitasn/stockgame/internal/domain"
)

// GameFinisher starts and finishes games for the scheduler. FinishGame
// settles the game and declares its winner.
type GameFinisher interface {
	ActivateGame(ctx context.Context, gameID string) error
	FinishGame(ctx context.Context, gameID string) error
}

// GameScheduler periodically activates games whose start time has passed
// and finishes games whose end time has passed.
type GameScheduler struct {
	interval time.Duration
	games    domain.GameRepository
	finisher GameFinisher
	logger   *slog.Logger
}

// NewGameScheduler creates a new GameScheduler with the given dependencies.
func NewGameScheduler(
	interval time.Duration,
	games domain.GameRepository,
	finisher GameFinisher,
	logger *slog.Logger,
) *GameScheduler {
	return &GameScheduler{
		interval: interval,
		games:    games,
		finisher: finisher,
		logger:   logger,
	}
}

// Start launches a background goroutine that ticks at the configured
// interval. It stops when ctx is cancelled.
func (s *GameScheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				s.tick(ctx, t)
			}
		}
	}()
}

// tick applies every transition that is due at now. A game whose end
// time has already passed is finished directly, even if still pending.
func (s *GameScheduler) tick(ctx context.Context, now time.Time) {
	games, err := s.games.ListGames(ctx)
	if err != nil {
		s.logger.Error("scheduler: list games", slog.String("error", err.Error()))
		return
	}

	for _, g := range games {
		if g.Status == domain.GameStatusCompleted {
			continue
		}

		var err error
		switch {
		case !g.EndTime.After(now):
			err = s.finisher.FinishGame(ctx, g.ID)
		case g.ShouldActivate(now):
			err = s.finisher.ActivateGame(ctx, g.ID)
		default:
			continue
		}

		// Another caller may have completed the game since it was listed.
		if err != nil && !errors.Is(err, domain.ErrGameCompleted) && !errors.Is(err, domain.ErrInvalidTransition) {
			s.logger.Warn("scheduler: game transition failed",
				slog.String("game_id", g.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
