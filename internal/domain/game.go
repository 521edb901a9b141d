package domain

import (
	"slices"
	"time"
)

// GameStatus represents the lifecycle state of a game.
type GameStatus string

const (
	GameStatusPending   GameStatus = "pending"
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed"
)

// Game is a bounded competition between a set of players. It references
// participants by ID only.
type Game struct {
	ID          string
	Name        string
	PlayerIDs   []string // join order, used for tie-breaks
	StartTime   time.Time
	EndTime     time.Time
	Status      GameStatus
	WinnerID    *string
	ActivatedAt *time.Time
	CompletedAt *time.Time
	Version     int64
	CreatedAt   time.Time
}

// NewGame creates a pending game.
func NewGame(id, name string, start, end time.Time, playerIDs []string, now time.Time) *Game {
	ids := make([]string, 0, len(playerIDs))
	for _, pid := range playerIDs {
		if !slices.Contains(ids, pid) {
			ids = append(ids, pid)
		}
	}
	return &Game{
		ID:        id,
		Name:      name,
		PlayerIDs: ids,
		StartTime: start,
		EndTime:   end,
		Status:    GameStatusPending,
		CreatedAt: now,
	}
}

// CanTransition reports whether a game may move from one status to another.
// The lifecycle is linear: pending → active → completed.
func CanTransition(from, to GameStatus) bool {
	switch from {
	case GameStatusPending:
		return to == GameStatusActive
	case GameStatusActive:
		return to == GameStatusCompleted
	}
	return false
}

// Activate moves a pending game to active.
func (g *Game) Activate(now time.Time) error {
	if !CanTransition(g.Status, GameStatusActive) {
		return ErrInvalidTransition
	}
	g.Status = GameStatusActive
	g.ActivatedAt = &now
	return nil
}

// Complete marks the game completed with the given winner. An empty winnerID
// records a game without a winner. A pending game passes through active
// first so that the lifecycle stays linear.
func (g *Game) Complete(winnerID string, now time.Time) error {
	if g.Status == GameStatusCompleted {
		return ErrGameCompleted
	}
	if g.Status == GameStatusPending {
		if err := g.Activate(now); err != nil {
			return err
		}
	}
	if !CanTransition(g.Status, GameStatusCompleted) {
		return ErrInvalidTransition
	}
	g.Status = GameStatusCompleted
	g.CompletedAt = &now
	if winnerID != "" {
		g.WinnerID = &winnerID
	}
	return nil
}

// AddPlayer appends playerID to the participants. It reports false if the
// player was already participating.
func (g *Game) AddPlayer(playerID string) bool {
	if slices.Contains(g.PlayerIDs, playerID) {
		return false
	}
	g.PlayerIDs = append(g.PlayerIDs, playerID)
	return true
}

// ShouldActivate reports whether a pending game's start time has passed.
func (g *Game) ShouldActivate(now time.Time) bool {
	return g.Status == GameStatusPending && !g.StartTime.After(now)
}

// ShouldComplete reports whether an active game's end time has passed.
func (g *Game) ShouldComplete(now time.Time) bool {
	return g.Status == GameStatusActive && !g.EndTime.After(now)
}

// Clone returns a deep copy of the game.
func (g *Game) Clone() *Game {
	c := *g
	c.PlayerIDs = slices.Clone(g.PlayerIDs)
	if c.PlayerIDs == nil {
		c.PlayerIDs = []string{}
	}
	if g.WinnerID != nil {
		w := *g.WinnerID
		c.WinnerID = &w
	}
	if g.ActivatedAt != nil {
		a := *g.ActivatedAt
		c.ActivatedAt = &a
	}
	if g.CompletedAt != nil {
		d := *g.CompletedAt
		c.CompletedAt = &d
	}
	return &c
}
