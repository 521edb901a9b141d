package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// TradeAction distinguishes buys from sells.
type TradeAction string

const (
	TradeActionBuy  TradeAction = "buy"
	TradeActionSell TradeAction = "sell"
)

// WelcomeChallenge is granted, already completed, to every new player.
const WelcomeChallenge = "Welcome Aboard"

// Holding is a player's position in a single stock symbol.
// Quantity is always positive; empty holdings are removed.
type Holding struct {
	Symbol   string
	Quantity int64
}

// Trade is an immutable record of one executed buy or sell.
type Trade struct {
	ID       string
	Symbol   string
	Quantity int64
	Price    decimal.Decimal // per share
	Action   TradeAction
	Date     time.Time
}

// Total returns price × quantity.
func (t Trade) Total() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// DailyChallenge is a simple achievement shown to the player.
type DailyChallenge struct {
	Title     string
	Completed bool
}

// Player is a registered participant of the game. Holdings, trades and
// the watchlist are owned by the player and have no lifecycle of their own.
type Player struct {
	ID              string
	Name            string
	Cash            decimal.Decimal
	Holdings        []Holding
	Trades          []Trade
	Watchlist       []string
	DailyChallenges []DailyChallenge
	Version         int64 // bumped by the repository on every successful save
	CreatedAt       time.Time
}

// NewPlayer creates a player with the given starting cash and the welcome
// challenge completed.
func NewPlayer(id, name string, cash decimal.Decimal, now time.Time) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Cash:      cash,
		Holdings:  []Holding{},
		Trades:    []Trade{},
		Watchlist: []string{},
		DailyChallenges: []DailyChallenge{
			{Title: WelcomeChallenge, Completed: true},
		},
		CreatedAt: now,
	}
}

// Clone returns a deep copy of the player. Mutating the copy never affects
// the original.
func (p *Player) Clone() *Player {
	c := *p
	c.Holdings = slices.Clone(p.Holdings)
	c.Trades = slices.Clone(p.Trades)
	c.Watchlist = slices.Clone(p.Watchlist)
	c.DailyChallenges = slices.Clone(p.DailyChallenges)
	if c.Holdings == nil {
		c.Holdings = []Holding{}
	}
	if c.Trades == nil {
		c.Trades = []Trade{}
	}
	if c.Watchlist == nil {
		c.Watchlist = []string{}
	}
	return &c
}

// HoldingQuantity returns the quantity held for symbol, or 0.
func (p *Player) HoldingQuantity(symbol string) int64 {
	if i := p.holdingIndex(symbol); i >= 0 {
		return p.Holdings[i].Quantity
	}
	return 0
}

// AddShares increments the holding for symbol, creating it when absent.
func (p *Player) AddShares(symbol string, qty int64) {
	if i := p.holdingIndex(symbol); i >= 0 {
		p.Holdings[i].Quantity += qty
		return
	}
	p.Holdings = append(p.Holdings, Holding{Symbol: symbol, Quantity: qty})
}

// RemoveShares decrements the holding for symbol and prunes it at zero.
func (p *Player) RemoveShares(symbol string, qty int64) error {
	i := p.holdingIndex(symbol)
	if i < 0 || p.Holdings[i].Quantity < qty {
		return ErrInsufficientHoldings
	}
	p.Holdings[i].Quantity -= qty
	if p.Holdings[i].Quantity == 0 {
		p.Holdings = slices.Delete(p.Holdings, i, i+1)
	}
	return nil
}

// HeldSymbols returns the symbols of all holdings in holding order.
func (p *Player) HeldSymbols() []string {
	syms := make([]string, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		syms = append(syms, h.Symbol)
	}
	return syms
}

// AddToWatchlist appends symbol to the watchlist. It returns
// ErrWatchlistDuplicate if the symbol is already watched.
func (p *Player) AddToWatchlist(symbol string) error {
	if slices.Contains(p.Watchlist, symbol) {
		return ErrWatchlistDuplicate
	}
	p.Watchlist = append(p.Watchlist, symbol)
	return nil
}

// RemoveFromWatchlist removes symbol from the watchlist and reports whether
// it was present. Removing an absent symbol is a no-op.
func (p *Player) RemoveFromWatchlist(symbol string) bool {
	i := slices.Index(p.Watchlist, symbol)
	if i < 0 {
		return false
	}
	p.Watchlist = slices.Delete(p.Watchlist, i, i+1)
	return true
}

func (p *Player) holdingIndex(symbol string) int {
	for i, h := range p.Holdings {
		if h.Symbol == symbol {
			return i
		}
	}
	return -1
}
