package domain

import "time"

// Event types published to realtime subscribers and webhook sinks.
const (
	EventPlayerRegistered = "player.registered"
	EventTradeExecuted    = "trade.executed"
	EventGameActivated    = "game.activated"
	EventGameCompleted    = "game.completed"
)

// Event is a notification about a state change in the game.
type Event struct {
	Type      string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
