package engine

import (
	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// Standing is one player's position on a leaderboard.
type Standing struct {
	Rank       int // 1-based position
	PlayerID   string
	Name       string
	TotalValue decimal.Decimal
	seq        int // insertion order, the tie-breaker
}

// standingLess orders by total value descending, then insertion order
// ascending. Min() is the leader; equal values keep their input order.
func standingLess(a, b Standing) bool {
	if c := a.TotalValue.Cmp(b.TotalValue); c != 0 {
		return c > 0
	}
	return a.seq < b.seq
}

// Ranking keeps standings sorted in a B-tree. It is not safe for
// concurrent use.
type Ranking struct {
	tree *btree.BTreeG[Standing]
	next int
}

// NewRanking creates an empty Ranking.
func NewRanking() *Ranking {
	const degree = 32
	return &Ranking{tree: btree.NewG[Standing](degree, standingLess)}
}

// Add inserts a player. Players added earlier win ties.
func (r *Ranking) Add(playerID, name string, value decimal.Decimal) {
	r.tree.ReplaceOrInsert(Standing{
		PlayerID:   playerID,
		Name:       name,
		TotalValue: value,
		seq:        r.next,
	})
	r.next++
}

// Len returns the number of ranked players.
func (r *Ranking) Len() int {
	return r.tree.Len()
}

// Top returns the leader.
func (r *Ranking) Top() (Standing, bool) {
	s, ok := r.tree.Min()
	if ok {
		s.Rank = 1
	}
	return s, ok
}

// Standings returns every standing in rank order with Rank filled in.
func (r *Ranking) Standings() []Standing {
	out := make([]Standing, 0, r.tree.Len())
	r.tree.Ascend(func(s Standing) bool {
		s.Rank = len(out) + 1
		out = append(out, s)
		return true
	})
	return out
}

// BuildLeaderboard values every player with the same price lookup and
// returns them ranked by total value descending, ties in input order.
// The first valuation failure fails the whole leaderboard.
func BuildLeaderboard(players []*domain.Player, lookup PriceLookup) ([]Standing, error) {
	r := NewRanking()
	for _, p := range players {
		v, err := Value(p, lookup)
		if err != nil {
			return nil, err
		}
		r.Add(p.ID, p.Name, v)
	}
	return r.Standings(), nil
}
