package handler

import (
	"time"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/efreitasn/stockgame/internal/engine"
	"github.com/shopspring/decimal"
)

const timeFormat = time.RFC3339

type holdingResponse struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

type tradeResponse struct {
	ID       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
	Action   string  `json:"action"`
	Date     string  `json:"date"`
}

type challengeResponse struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type playerResponse struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Cash            float64             `json:"cash"`
	Holdings        []holdingResponse   `json:"holdings"`
	Trades          []tradeResponse     `json:"trades"`
	Watchlist       []string            `json:"watchlist"`
	DailyChallenges []challengeResponse `json:"dailyChallenges"`
	CreatedAt       string              `json:"createdAt"`
}

type standingResponse struct {
	Rank                int     `json:"rank"`
	PlayerID            string  `json:"playerId"`
	Name                string  `json:"name"`
	TotalPortfolioValue float64 `json:"totalPortfolioValue"`
}

type gameResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Players     []string `json:"players"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Status      string   `json:"status"`
	Winner      *string  `json:"winner"`
	ActivatedAt *string  `json:"activatedAt"`
	CompletedAt *string  `json:"completedAt"`
	CreatedAt   string   `json:"createdAt"`
}

func buildTradeResponse(t domain.Trade) tradeResponse {
	return tradeResponse{
		ID:       t.ID,
		Symbol:   t.Symbol,
		Quantity: t.Quantity,
		Price:    domain.ToFloat(t.Price),
		Total:    domain.ToFloat(t.Total()),
		Action:   string(t.Action),
		Date:     t.Date.UTC().Format(timeFormat),
	}
}

func buildTradeResponses(trades []domain.Trade) []tradeResponse {
	out := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, buildTradeResponse(t))
	}
	return out
}

func buildPlayerResponse(p *domain.Player) playerResponse {
	holdings := make([]holdingResponse, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		holdings = append(holdings, holdingResponse{Symbol: h.Symbol, Quantity: h.Quantity})
	}
	challenges := make([]challengeResponse, 0, len(p.DailyChallenges))
	for _, c := range p.DailyChallenges {
		challenges = append(challenges, challengeResponse{Title: c.Title, Completed: c.Completed})
	}
	watchlist := p.Watchlist
	if watchlist == nil {
		watchlist = []string{}
	}

	return playerResponse{
		ID:              p.ID,
		Name:            p.Name,
		Cash:            domain.ToFloat(p.Cash),
		Holdings:        holdings,
		Trades:          buildTradeResponses(p.Trades),
		Watchlist:       watchlist,
		DailyChallenges: challenges,
		CreatedAt:       p.CreatedAt.UTC().Format(timeFormat),
	}
}

func buildStandingResponse(s engine.Standing) standingResponse {
	return standingResponse{
		Rank:                s.Rank,
		PlayerID:            s.PlayerID,
		Name:                s.Name,
		TotalPortfolioValue: domain.ToFloat(s.TotalValue),
	}
}

func buildGameResponse(g *domain.Game) gameResponse {
	players := g.PlayerIDs
	if players == nil {
		players = []string{}
	}
	return gameResponse{
		ID:          g.ID,
		Name:        g.Name,
		Players:     players,
		StartTime:   g.StartTime.UTC().Format(timeFormat),
		EndTime:     g.EndTime.UTC().Format(timeFormat),
		Status:      string(g.Status),
		Winner:      g.WinnerID,
		ActivatedAt: formatTimePtr(g.ActivatedAt),
		CompletedAt: formatTimePtr(g.CompletedAt),
		CreatedAt:   g.CreatedAt.UTC().Format(timeFormat),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeFormat)
	return &s
}

// priceOrNil converts an optional price to an optional JSON number.
func priceOrNil(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := domain.ToFloat(*d)
	return &f
}
