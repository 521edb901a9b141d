package domain

import "context"

// PlayerRepository persists players. SavePlayer is a conditional write:
// it succeeds only when the stored version equals p.Version, then bumps
// p.Version. A stale write returns ErrVersionConflict.
type PlayerRepository interface {
	CreatePlayer(ctx context.Context, p *Player) error
	FindPlayer(ctx context.Context, id string) (*Player, error)
	FindPlayerByName(ctx context.Context, name string) (*Player, error)
	SavePlayer(ctx context.Context, p *Player) error
	ListPlayers(ctx context.Context) ([]*Player, error)
}

// GameRepository persists games with the same versioning rules as
// PlayerRepository.
type GameRepository interface {
	CreateGame(ctx context.Context, g *Game) error
	FindGame(ctx context.Context, id string) (*Game, error)
	SaveGame(ctx context.Context, g *Game) error
	ListGames(ctx context.Context) ([]*Game, error)
}

// FeedbackRepository stores user feedback.
type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, f *Feedback) error
}

// Repository bundles every store the services depend on.
type Repository interface {
	PlayerRepository
	GameRepository
	FeedbackRepository
}
