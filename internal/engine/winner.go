package engine

import "github.com/efreitasn/stockgame/internal/domain"

// DecideWinner returns the participant with the greatest portfolio value.
// The running maximum starts at the first participant, so a winner exists
// even when every value is zero or negative. On ties the participant that
// comes first keeps the lead. No participants yields a nil winner.
func DecideWinner(participants []*domain.Player, lookup PriceLookup) (*Standing, error) {
	var best *Standing
	for _, p := range participants {
		v, err := Value(p, lookup)
		if err != nil {
			return nil, err
		}
		if best == nil || v.GreaterThan(best.TotalValue) {
			best = &Standing{
				Rank:       1,
				PlayerID:   p.ID,
				Name:       p.Name,
				TotalValue: v,
			}
		}
	}
	return best, nil
}
