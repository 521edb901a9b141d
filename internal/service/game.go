package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/efreitasn/stockgame/internal/engine"
	"github.com/efreitasn/stockgame/internal/pricing"
	"github.com/google/uuid"
)

// CreateGameRequest represents the input for game creation.
type CreateGameRequest struct {
	Name      string
	StartTime time.Time
	EndTime   time.Time
	PlayerIDs []string
}

// WinnerResult is the outcome of declaring a game's winner. Winner is nil
// for a game without participants.
type WinnerResult struct {
	Game         *domain.Game
	Winner       *engine.Standing
	Participants int
}

// GameService manages timed games and decides their winners.
type GameService struct {
	games   domain.GameRepository
	players domain.PlayerRepository
	prices  pricing.PriceSource
	events  EventPublisher
	locks   *Locker
	retries int
	now     func() time.Time
	logger  *slog.Logger
}

// NewGameService creates a new GameService with the given dependencies.
func NewGameService(
	games domain.GameRepository,
	players domain.PlayerRepository,
	prices pricing.PriceSource,
	events EventPublisher,
	locks *Locker,
	retries int,
	logger *slog.Logger,
) *GameService {
	if events == nil {
		events = nopPublisher{}
	}
	return &GameService{
		games:   games,
		players: players,
		prices:  prices,
		events:  events,
		locks:   locks,
		retries: retries,
		now:     time.Now,
		logger:  logger,
	}
}

// Create validates the request and creates a pending game. Every listed
// player must exist.
func (s *GameService) Create(ctx context.Context, req CreateGameRequest) (*domain.Game, error) {
	name, err := validateName("name", req.Name)
	if err != nil {
		return nil, err
	}
	if req.StartTime.IsZero() {
		return nil, &domain.ValidationError{Message: "startTime is required"}
	}
	if req.EndTime.IsZero() {
		return nil, &domain.ValidationError{Message: "endTime is required"}
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, &domain.ValidationError{Message: "endTime must be after startTime"}
	}
	for _, id := range req.PlayerIDs {
		if _, err := s.players.FindPlayer(ctx, id); err != nil {
			return nil, err
		}
	}

	g := domain.NewGame(uuid.New().String(), name, req.StartTime.UTC(), req.EndTime.UTC(), req.PlayerIDs, s.now().UTC())
	if err := s.games.CreateGame(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// List returns all games in creation order.
func (s *GameService) List(ctx context.Context) ([]*domain.Game, error) {
	return s.games.ListGames(ctx)
}

// Get returns the game with the given ID.
func (s *GameService) Get(ctx context.Context, id string) (*domain.Game, error) {
	return s.games.FindGame(ctx, id)
}

// AddParticipant adds an existing player to a game that has not completed.
// Adding a player twice is a no-op.
func (s *GameService) AddParticipant(ctx context.Context, gameID, playerID string) (*domain.Game, error) {
	if _, err := s.games.FindGame(ctx, gameID); err != nil {
		return nil, err
	}
	if _, err := s.players.FindPlayer(ctx, playerID); err != nil {
		return nil, err
	}

	return s.mutateGame(ctx, gameID, func(g *domain.Game) (bool, error) {
		if g.Status == domain.GameStatusCompleted {
			return false, domain.ErrGameCompleted
		}
		return g.AddPlayer(playerID), nil
	})
}

// DeclareWinner values every participant against one price snapshot,
// completes the game and records the winner. A valuation failure leaves
// the game unchanged.
func (s *GameService) DeclareWinner(ctx context.Context, gameID string) (*WinnerResult, error) {
	var result *WinnerResult
	game, err := s.mutateGame(ctx, gameID, func(g *domain.Game) (bool, error) {
		if g.Status == domain.GameStatusCompleted {
			return false, domain.ErrGameCompleted
		}

		participants := make([]*domain.Player, 0, len(g.PlayerIDs))
		for _, id := range g.PlayerIDs {
			p, err := s.players.FindPlayer(ctx, id)
			if err != nil {
				return false, err
			}
			participants = append(participants, p)
		}

		prices := s.prices.GetPrices(ctx, distinctHeldSymbols(participants))
		winner, err := engine.DecideWinner(participants, engine.SnapshotLookup(prices))
		if err != nil {
			return false, err
		}

		winnerID := ""
		if winner != nil {
			winnerID = winner.PlayerID
		}
		if err := g.Complete(winnerID, s.now().UTC()); err != nil {
			return false, err
		}
		result = &WinnerResult{Winner: winner, Participants: len(participants)}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	result.Game = game

	data := gameEventData{
		GameID:       game.ID,
		Name:         game.Name,
		Status:       string(game.Status),
		WinnerID:     game.WinnerID,
		Participants: result.Participants,
	}
	if w := result.Winner; w != nil {
		value := domain.ToFloat(w.TotalValue)
		data.WinnerName = &w.Name
		data.WinnerValue = &value
	}
	s.events.Publish(newEvent(domain.EventGameCompleted, s.now(), data))
	return result, nil
}

// ActivateGame moves a pending game to active.
func (s *GameService) ActivateGame(ctx context.Context, gameID string) error {
	game, err := s.mutateGame(ctx, gameID, func(g *domain.Game) (bool, error) {
		if err := g.Activate(s.now().UTC()); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("game activated", slog.String("game_id", game.ID))
	s.events.Publish(newEvent(domain.EventGameActivated, s.now(), gameEventData{
		GameID:       game.ID,
		Name:         game.Name,
		Status:       string(game.Status),
		Participants: len(game.PlayerIDs),
	}))
	return nil
}

// FinishGame declares the winner of a game whose end time has passed.
func (s *GameService) FinishGame(ctx context.Context, gameID string) error {
	res, err := s.DeclareWinner(ctx, gameID)
	if err != nil {
		return err
	}

	attrs := []any{slog.String("game_id", gameID), slog.Int("participants", res.Participants)}
	if res.Winner != nil {
		attrs = append(attrs, slog.String("winner_id", res.Winner.PlayerID))
	}
	s.logger.Info("game finished", attrs...)
	return nil
}

// mutateGame loads the game under its lock, applies fn and saves it when
// fn reports a change.
func (s *GameService) mutateGame(ctx context.Context, gameID string, fn func(g *domain.Game) (bool, error)) (*domain.Game, error) {
	unlock := s.locks.Lock(gameLockKey(gameID))
	defer unlock()

	var out *domain.Game
	err := retryOnConflict(ctx, s.retries, func() error {
		g, err := s.games.FindGame(ctx, gameID)
		if err != nil {
			return err
		}
		changed, err := fn(g)
		if err != nil {
			return err
		}
		if changed {
			if err := s.games.SaveGame(ctx, g); err != nil {
				return err
			}
		}
		out = g
		return nil
	})
	if errors.Is(err, domain.ErrVersionConflict) {
		s.logger.Warn("game save kept conflicting", slog.String("game_id", gameID))
	}
	return out, err
}

var _ engine.GameFinisher = (*GameService)(nil)
