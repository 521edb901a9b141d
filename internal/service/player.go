package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/efreitasn/stockgame/internal/engine"
	"github.com/efreitasn/stockgame/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength     = 64
	maxFeedbackLength = 2000
)

// RegisterPlayerRequest represents the input for player registration.
type RegisterPlayerRequest struct {
	Name         string
	StartingCash *float64 // defaults to the configured starting cash
}

// playerMutator applies read-modify-write changes to a player under the
// per-player lock, retrying on version conflicts.
type playerMutator struct {
	players domain.PlayerRepository
	locks   *Locker
	retries int
}

// mutate loads the player, applies fn and saves the result. fn returning a
// nil player means nothing changed and the loaded player is returned as is.
func (m playerMutator) mutate(ctx context.Context, id string, fn func(p *domain.Player) (*domain.Player, error)) (*domain.Player, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	var out *domain.Player
	err := retryOnConflict(ctx, m.retries, func() error {
		p, err := m.players.FindPlayer(ctx, id)
		if err != nil {
			return err
		}
		next, err := fn(p)
		if err != nil {
			return err
		}
		if next == nil {
			out = p
			return nil
		}
		if err := m.players.SavePlayer(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// PlayerService handles registration, profile, portfolio, watchlist and
// feedback operations.
type PlayerService struct {
	playerMutator
	feedback     domain.FeedbackRepository
	prices       pricing.PriceSource
	events       EventPublisher
	startingCash decimal.Decimal
	now          func() time.Time
}

// NewPlayerService creates a new PlayerService with the given dependencies.
func NewPlayerService(
	players domain.PlayerRepository,
	feedback domain.FeedbackRepository,
	prices pricing.PriceSource,
	events EventPublisher,
	locks *Locker,
	startingCash decimal.Decimal,
	retries int,
) *PlayerService {
	if events == nil {
		events = nopPublisher{}
	}
	return &PlayerService{
		playerMutator: playerMutator{players: players, locks: locks, retries: retries},
		feedback:      feedback,
		prices:        prices,
		events:        events,
		startingCash:  startingCash,
		now:           time.Now,
	}
}

// Register validates the request and creates a player with the starting
// cash and the welcome challenge.
func (s *PlayerService) Register(ctx context.Context, req RegisterPlayerRequest) (*domain.Player, error) {
	name, err := validateName("name", req.Name)
	if err != nil {
		return nil, err
	}

	cash := s.startingCash
	if req.StartingCash != nil {
		cash, err = domain.ParseAmount(*req.StartingCash)
		if err != nil {
			return nil, &domain.ValidationError{Message: "startingCash: " + err.Error()}
		}
		if cash.IsNegative() {
			return nil, &domain.ValidationError{Message: "startingCash must be >= 0"}
		}
		if cash.GreaterThan(domain.MaxStartingCash) {
			return nil, &domain.ValidationError{Message: "startingCash must be at most " + domain.MaxStartingCash.String()}
		}
	}

	p := domain.NewPlayer(uuid.New().String(), name, cash, s.now().UTC())
	if err := s.players.CreatePlayer(ctx, p); err != nil {
		return nil, err
	}

	s.events.Publish(newEvent(domain.EventPlayerRegistered, s.now(), playerRegisteredData{
		PlayerID: p.ID,
		Name:     p.Name,
		Cash:     domain.ToFloat(p.Cash),
	}))
	return p, nil
}

// List returns all players in registration order.
func (s *PlayerService) List(ctx context.Context) ([]*domain.Player, error) {
	return s.players.ListPlayers(ctx)
}

// Get returns the player with the given ID.
func (s *PlayerService) Get(ctx context.Context, id string) (*domain.Player, error) {
	return s.players.FindPlayer(ctx, id)
}

// Rename changes the name of the player currently called currentName.
func (s *PlayerService) Rename(ctx context.Context, currentName, newName string) (*domain.Player, error) {
	current, err := validateName("currentName", currentName)
	if err != nil {
		return nil, err
	}
	next, err := validateName("newName", newName)
	if err != nil {
		return nil, err
	}

	p, err := s.players.FindPlayerByName(ctx, current)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, p.ID, func(p *domain.Player) (*domain.Player, error) {
		// Renamed by someone else since the lookup.
		if p.Name != current {
			return nil, domain.ErrPlayerNotFound
		}
		if p.Name == next {
			return nil, nil
		}
		p.Name = next
		return p, nil
	})
}

// TradeHistory returns the player's trades, oldest first.
func (s *PlayerService) TradeHistory(ctx context.Context, id string) ([]domain.Trade, error) {
	p, err := s.players.FindPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Trades, nil
}

// PortfolioValue returns cash plus every holding at its current price.
// A holding without a price fails the valuation.
func (s *PlayerService) PortfolioValue(ctx context.Context, id string) (decimal.Decimal, error) {
	p, err := s.players.FindPlayer(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	prices := s.prices.GetPrices(ctx, p.HeldSymbols())
	return engine.Value(p, engine.SnapshotLookup(prices))
}

// AddToWatchlist appends symbol to the player's watchlist and returns it.
func (s *PlayerService) AddToWatchlist(ctx context.Context, id, symbol string) ([]string, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	p, err := s.mutate(ctx, id, func(p *domain.Player) (*domain.Player, error) {
		if err := p.AddToWatchlist(sym); err != nil {
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return p.Watchlist, nil
}

// RemoveFromWatchlist removes symbol from the player's watchlist and
// returns it. Removing a symbol that is not watched changes nothing.
func (s *PlayerService) RemoveFromWatchlist(ctx context.Context, id, symbol string) ([]string, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	p, err := s.mutate(ctx, id, func(p *domain.Player) (*domain.Player, error) {
		if !p.RemoveFromWatchlist(sym) {
			return nil, nil
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return p.Watchlist, nil
}

// WatchlistPrices returns the current price of every watched symbol. A
// symbol whose price is unavailable maps to nil instead of failing.
func (s *PlayerService) WatchlistPrices(ctx context.Context, id string) (map[string]*decimal.Decimal, error) {
	p, err := s.players.FindPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(p.Watchlist) == 0 {
		return map[string]*decimal.Decimal{}, nil
	}
	return s.prices.GetPrices(ctx, p.Watchlist), nil
}

// SubmitFeedback stores a free-form feedback message.
func (s *PlayerService) SubmitFeedback(ctx context.Context, content string) (*domain.Feedback, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &domain.ValidationError{Message: "content is required"}
	}
	if utf8.RuneCountInString(content) > maxFeedbackLength {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("content must be at most %d characters", maxFeedbackLength),
		}
	}

	f := &domain.Feedback{
		ID:        uuid.New().String(),
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.feedback.CreateFeedback(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func validateName(field, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", &domain.ValidationError{Message: field + " is required"}
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", &domain.ValidationError{
			Message: fmt.Sprintf("%s must be at most %d characters", field, maxNameLength),
		}
	}
	return name, nil
}
