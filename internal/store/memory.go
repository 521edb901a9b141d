package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/efreitasn/stockgame/internal/domain"
)

// MemoryStore is a thread-safe in-memory implementation of
// domain.Repository. It hands out deep copies, so callers never share
// state with the store or with each other.
type MemoryStore struct {
	mu          sync.RWMutex
	players     map[string]*domain.Player
	playerOrder []string          // registration order
	names       map[string]string // name → player ID
	games       map[string]*domain.Game
	gameOrder   []string
	feedback    []*domain.Feedback
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players: make(map[string]*domain.Player),
		names:   make(map[string]string),
		games:   make(map[string]*domain.Game),
	}
}

// CreatePlayer adds a new player with version 1. It returns
// domain.ErrPlayerNameTaken if the name is in use.
func (s *MemoryStore) CreatePlayer(_ context.Context, p *domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[p.ID]; exists {
		return fmt.Errorf("player %s already exists", p.ID)
	}
	if _, taken := s.names[p.Name]; taken {
		return domain.ErrPlayerNameTaken
	}
	p.Version = 1
	s.players[p.ID] = p.Clone()
	s.playerOrder = append(s.playerOrder, p.ID)
	s.names[p.Name] = p.ID
	return nil
}

// FindPlayer returns a copy of the player with the given ID.
func (s *MemoryStore) FindPlayer(_ context.Context, id string) (*domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return p.Clone(), nil
}

// FindPlayerByName returns a copy of the player with the given name.
func (s *MemoryStore) FindPlayerByName(_ context.Context, name string) (*domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[name]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return s.players[id].Clone(), nil
}

// SavePlayer replaces the stored player if its version matches p.Version,
// then bumps p.Version. Renames are checked against the name index.
func (s *MemoryStore) SavePlayer(_ context.Context, p *domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.players[p.ID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if stored.Version != p.Version {
		return domain.ErrVersionConflict
	}
	if stored.Name != p.Name {
		if _, taken := s.names[p.Name]; taken {
			return domain.ErrPlayerNameTaken
		}
		delete(s.names, stored.Name)
		s.names[p.Name] = p.ID
	}

	p.Version++
	s.players[p.ID] = p.Clone()
	return nil
}

// ListPlayers returns copies of all players in registration order.
func (s *MemoryStore) ListPlayers(_ context.Context) ([]*domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Player, 0, len(s.playerOrder))
	for _, id := range s.playerOrder {
		out = append(out, s.players[id].Clone())
	}
	return out, nil
}

// CreateGame adds a new game with version 1.
func (s *MemoryStore) CreateGame(_ context.Context, g *domain.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[g.ID]; exists {
		return fmt.Errorf("game %s already exists", g.ID)
	}
	g.Version = 1
	s.games[g.ID] = g.Clone()
	s.gameOrder = append(s.gameOrder, g.ID)
	return nil
}

// FindGame returns a copy of the game with the given ID.
func (s *MemoryStore) FindGame(_ context.Context, id string) (*domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return g.Clone(), nil
}

// SaveGame replaces the stored game if its version matches g.Version, then
// bumps g.Version.
func (s *MemoryStore) SaveGame(_ context.Context, g *domain.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.games[g.ID]
	if !ok {
		return domain.ErrGameNotFound
	}
	if stored.Version != g.Version {
		return domain.ErrVersionConflict
	}
	g.Version++
	s.games[g.ID] = g.Clone()
	return nil
}

// ListGames returns copies of all games in creation order.
func (s *MemoryStore) ListGames(_ context.Context) ([]*domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Game, 0, len(s.gameOrder))
	for _, id := range s.gameOrder {
		out = append(out, s.games[id].Clone())
	}
	return out, nil
}

// CreateFeedback appends a feedback entry.
func (s *MemoryStore) CreateFeedback(_ context.Context, f *domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *f
	s.feedback = append(s.feedback, &c)
	return nil
}

// FeedbackCount returns the number of stored feedback entries. Useful for
// testing.
func (s *MemoryStore) FeedbackCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.feedback)
}
