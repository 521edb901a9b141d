package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/efreitasn/stockgame/internal/engine"
	"github.com/efreitasn/stockgame/internal/pricing"
	"github.com/efreitasn/stockgame/internal/realtime"
	"github.com/efreitasn/stockgame/internal/service"
	"github.com/efreitasn/stockgame/internal/store"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// testEnv bundles all dependencies for handler integration tests.
type testEnv struct {
	router http.Handler
	store  *store.MemoryStore
	hub    *realtime.Hub
}

// quoteSource is the price source behind the test router.
type quoteSource interface {
	pricing.PriceSource
	pricing.TrendSource
}

// unavailableSource fails every lookup for the listed symbols and quotes
// 100 for everything else.
type unavailableSource struct {
	down map[string]bool
}

func (s unavailableSource) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	if s.down[symbol] {
		return decimal.Zero, &domain.PriceError{Symbol: symbol, Err: errors.New("upstream timeout")}
	}
	return decimal.NewFromInt(100), nil
}

func (s unavailableSource) GetPrices(ctx context.Context, symbols []string) map[string]*decimal.Decimal {
	out := make(map[string]*decimal.Decimal, len(symbols))
	for _, sym := range symbols {
		if p, err := s.GetPrice(ctx, sym); err == nil {
			out[sym] = &p
		} else {
			out[sym] = nil
		}
	}
	return out
}

func (s unavailableSource) Trend(ctx context.Context, symbol string) (pricing.Trend, error) {
	p, err := s.GetPrice(ctx, symbol)
	if err != nil {
		return pricing.Trend{}, err
	}
	return pricing.NewTrend(symbol, p, p), nil
}

// brokenStore fails player listing with an infrastructure error.
type brokenStore struct {
	*store.MemoryStore
}

func (brokenStore) ListPlayers(context.Context) ([]*domain.Player, error) {
	return nil, errors.New("connection reset by peer")
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, pricing.NewFixedPriceSource(decimal.NewFromInt(100), nil), nil)
}

func newTestEnvWith(t *testing.T, prices quoteSource, repo domain.Repository) *testEnv {
	t.Helper()
	ms := store.NewMemoryStore()
	if repo == nil {
		repo = ms
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	locks := service.NewLocker()
	svc := Services{
		Players:     service.NewPlayerService(repo, repo, prices, hub, locks, decimal.NewFromInt(10000), 3),
		Trades:      service.NewTradeService(repo, prices, engine.NewExecutor(nil), hub, locks, 3),
		Leaderboard: service.NewLeaderboardService(repo, prices),
		Games:       service.NewGameService(repo, repo, prices, hub, locks, 3, logger),
		Market:      service.NewMarketService(prices, prices, 2, logger),
	}

	return &testEnv{
		router: NewRouter(svc, hub.ServeWS, logger),
		store:  ms,
		hub:    hub,
	}
}

// doJSON sends a JSON request and returns the recorder.
func (env *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// doRaw sends a raw request with optional content-type override.
func (env *testEnv) doRaw(t *testing.T, method, path, contentType, rawBody string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(rawBody))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// decodeJSON decodes the response body into v.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d: %s", rr.Code, want, rr.Body.String())
	}
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rr, status)
	var resp errorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error != code {
		t.Errorf("error = %q, want %q (message %q)", resp.Error, code, resp.Message)
	}
}

// registerPlayer is a helper that registers a player via the API and
// returns its ID.
func (env *testEnv) registerPlayer(t *testing.T, name string, cash *float64) string {
	t.Helper()
	body := map[string]any{"name": name}
	if cash != nil {
		body["startingCash"] = *cash
	}
	rr := env.doJSON(t, "POST", "/players", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register player %s: expected 201, got %d: %s", name, rr.Code, rr.Body.String())
	}
	var p playerResponse
	decodeJSON(t, rr, &p)
	return p.ID
}

func cash(v float64) *float64 {
	return &v
}

func (env *testEnv) trade(t *testing.T, playerID, action, symbol string, qty int64) *httptest.ResponseRecorder {
	t.Helper()
	return env.doJSON(t, "POST", "/players/"+playerID+"/"+action, map[string]any{
		"symbol":   symbol,
		"quantity": qty,
	})
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, "GET", "/healthz", nil)
	expectStatus(t, rr, http.StatusOK)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q", resp["status"])
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
	}
}

func TestRegisterPlayer(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "POST", "/players", map[string]any{"name": "alice"})
	expectStatus(t, rr, http.StatusCreated)

	var p playerResponse
	decodeJSON(t, rr, &p)
	if p.Name != "alice" || p.Cash != 10000 {
		t.Errorf("player = %+v", p)
	}
	if len(p.DailyChallenges) != 1 || p.DailyChallenges[0].Title != domain.WelcomeChallenge || !p.DailyChallenges[0].Completed {
		t.Errorf("dailyChallenges = %+v", p.DailyChallenges)
	}
	if p.Holdings == nil || p.Trades == nil || p.Watchlist == nil {
		t.Errorf("collections must encode as empty arrays: %s", rr.Body.String())
	}
}

func TestRegisterPlayer_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.registerPlayer(t, "alice", nil)

	t.Run("missing name", func(t *testing.T) {
		expectError(t, env.doJSON(t, "POST", "/players", map[string]any{}), http.StatusBadRequest, "validation_error")
	})
	t.Run("negative cash", func(t *testing.T) {
		rr := env.doJSON(t, "POST", "/players", map[string]any{"name": "bob", "startingCash": -5})
		expectError(t, rr, http.StatusBadRequest, "validation_error")
	})
	t.Run("name taken", func(t *testing.T) {
		expectError(t, env.doJSON(t, "POST", "/players", map[string]any{"name": "alice"}), http.StatusConflict, "player_name_taken")
	})
	t.Run("wrong content type", func(t *testing.T) {
		expectError(t, env.doRaw(t, "POST", "/players", "text/plain", `{"name":"x"}`), http.StatusBadRequest, "invalid_request")
	})
	t.Run("unknown field", func(t *testing.T) {
		rr := env.doRaw(t, "POST", "/players", "application/json", `{"name":"x","admin":true}`)
		expectError(t, rr, http.StatusBadRequest, "invalid_request")
	})
	t.Run("malformed json", func(t *testing.T) {
		expectError(t, env.doRaw(t, "POST", "/players", "application/json", `{"name":`), http.StatusBadRequest, "invalid_request")
	})
}

func TestListAndGetPlayer(t *testing.T) {
	env := newTestEnv(t)
	id := env.registerPlayer(t, "alice", nil)
	env.registerPlayer(t, "bob", nil)

	rr := env.doJSON(t, "GET", "/players", nil)
	expectStatus(t, rr, http.StatusOK)
	var list []playerResponse
	decodeJSON(t, rr, &list)
	if len(list) != 2 || list[0].Name != "alice" || list[1].Name != "bob" {
		t.Errorf("list = %+v", list)
	}

	rr = env.doJSON(t, "GET", "/players/"+id, nil)
	expectStatus(t, rr, http.StatusOK)
	var p playerResponse
	decodeJSON(t, rr, &p)
	if p.ID != id {
		t.Errorf("id = %q, want %q", p.ID, id)
	}

	expectError(t, env.doJSON(t, "GET", "/players/nope", nil), http.StatusNotFound, "player_not_found")
}

func TestRenamePlayer(t *testing.T) {
	env := newTestEnv(t)
	id := env.registerPlayer(t, "alice", nil)
	env.registerPlayer(t, "bob", nil)

	rr := env.doJSON(t, "POST", "/players/rename", map[string]any{"currentName": "alice", "newName": "alicia"})
	expectStatus(t, rr, http.StatusOK)
	var p playerResponse
	decodeJSON(t, rr, &p)
	if p.ID != id || p.Name != "alicia" {
		t.Errorf("renamed = %+v", p)
	}

	rr = env.doJSON(t, "POST", "/players/rename", map[string]any{"currentName": "alicia", "newName": "bob"})
	expectError(t, rr, http.StatusConflict, "player_name_taken")

	rr = env.doJSON(t, "POST", "/players/rename", map[string]any{"currentName": "zed", "newName": "zoe"})
	expectError(t, rr, http.StatusNotFound, "player_not_found")

	rr = env.doJSON(t, "POST", "/players/rename", map[string]any{"currentName": "alicia"})
	expectError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestBuySellFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.registerPlayer(t, "alice", nil)

	rr := env.trade(t, id, "buy", "aapl", 3)
	expectStatus(t, rr, http.StatusOK)
	var bought tradeResultResponse
	decodeJSON(t, rr, &bought)
	if bought.Player.Cash != 9700 {
		t.Errorf("cash after buy = %v, want 9700", bought.Player.Cash)
	}
	if bought.Trade.Symbol != "AAPL" || bought.Trade.Action != "buy" || bought.Trade.Price != 100 || bought.Trade.Total != 300 {
		t.Errorf("trade = %+v", bought.Trade)
	}

	rr = env.trade(t, id, "sell", "AAPL", 2)
	expectStatus(t, rr, http.StatusOK)
	var sold tradeResultResponse
	decodeJSON(t, rr, &sold)
	if sold.Player.Cash != 9900 {
		t.Errorf("cash after sell = %v, want 9900", sold.Player.Cash)
	}
	if len(sold.Player.Holdings) != 1 || sold.Player.Holdings[0].Quantity != 1 {
		t.Errorf("holdings = %+v", sold.Player.Holdings)
	}

	rr = env.doJSON(t, "GET", "/players/"+id+"/trade-history", nil)
	expectStatus(t, rr, http.StatusOK)
	var history []tradeResponse
	decodeJSON(t, rr, &history)
	if len(history) != 2 || history[0].Action != "buy" || history[1].Action != "sell" {
		t.Errorf("history = %+v", history)
	}

	rr = env.doJSON(t, "GET", "/players/"+id+"/portfolio/value", nil)
	expectStatus(t, rr, http.StatusOK)
	var value portfolioValueResponse
	decodeJSON(t, rr, &value)
	if value.PlayerID != id || value.TotalPortfolioValue != 10000 {
		t.Errorf("value = %+v", value)
	}
}

func TestTradeErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.registerPlayer(t, "alice", cash(150))

	tests := []struct {
		name   string
		action string
		symbol string
		qty    int64
		status int
		code   string
	}{
		{"zero quantity", "buy", "AAPL", 0, http.StatusBadRequest, "invalid_quantity"},
		{"negative quantity", "sell", "AAPL", -1, http.StatusBadRequest, "invalid_quantity"},
		{"insufficient funds", "buy", "AAPL", 2, http.StatusBadRequest, "insufficient_funds"},
		{"oversell", "sell", "AAPL", 1, http.StatusBadRequest, "insufficient_holdings"},
		{"bad symbol", "buy", "no way", 1, http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, env.trade(t, id, tt.action, tt.symbol, tt.qty), tt.status, tt.code)
		})
	}

	expectError(t, env.trade(t, "nope", "buy", "AAPL", 1), http.StatusNotFound, "player_not_found")

	rr := env.doRaw(t, "POST", "/players/"+id+"/buy", "application/json", `{"symbol":"AAPL","quantity":1.5}`)
	expectError(t, rr, http.StatusBadRequest, "invalid_request")
}

func TestPriceUnavailable(t *testing.T) {
	env := newTestEnvWith(t, unavailableSource{down: map[string]bool{"DOWN": true}}, nil)
	id := env.registerPlayer(t, "alice", nil)

	rr := env.trade(t, id, "buy", "DOWN", 1)
	expectError(t, rr, http.StatusBadGateway, "price_unavailable")

	expectError(t, env.doJSON(t, "GET", "/stocks/DOWN/price", nil), http.StatusBadGateway, "price_unavailable")

	// The failed buy left the player untouched.
	rr = env.doJSON(t, "GET", "/players/"+id, nil)
	var p playerResponse
	decodeJSON(t, rr, &p)
	if p.Cash != 10000 || len(p.Trades) != 0 {
		t.Errorf("player changed after failed buy: %+v", p)
	}
}

func TestLeaderboardAndTopPlayer(t *testing.T) {
	env := newTestEnv(t)

	expectError(t, env.doJSON(t, "GET", "/players/top-player", nil), http.StatusNotFound, "no_players")

	rr := env.doJSON(t, "GET", "/players/leaderboard", nil)
	expectStatus(t, rr, http.StatusOK)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("empty leaderboard body = %s", rr.Body.String())
	}

	env.registerPlayer(t, "alice", nil)
	bob := env.registerPlayer(t, "bob", cash(10200))
	env.registerPlayer(t, "carol", nil)

	rr = env.doJSON(t, "GET", "/players/leaderboard", nil)
	expectStatus(t, rr, http.StatusOK)
	var board []standingResponse
	decodeJSON(t, rr, &board)
	if len(board) != 3 {
		t.Fatalf("board = %+v", board)
	}
	if board[0].PlayerID != bob || board[0].Rank != 1 || board[0].TotalPortfolioValue != 10200 {
		t.Errorf("leader = %+v", board[0])
	}
	if board[1].Name != "alice" || board[2].Name != "carol" || board[2].Rank != 3 {
		t.Errorf("tie order = %+v", board)
	}

	rr = env.doJSON(t, "GET", "/players/top-player", nil)
	expectStatus(t, rr, http.StatusOK)
	var top topPlayerResponse
	decodeJSON(t, rr, &top)
	if top.TopPlayerName != "bob" || top.TotalPortfolioValue != 10200 {
		t.Errorf("top = %+v", top)
	}
}

func TestLeaderboard_PriceFailure(t *testing.T) {
	down := map[string]bool{}
	env := newTestEnvWith(t, unavailableSource{down: down}, nil)
	id := env.registerPlayer(t, "alice", nil)
	env.registerPlayer(t, "bob", nil)
	expectStatus(t, env.trade(t, id, "buy", "FLAKY", 1), http.StatusOK)

	// The quote service stops answering for a held symbol.
	down["FLAKY"] = true

	expectError(t, env.doJSON(t, "GET", "/players/leaderboard", nil), http.StatusBadGateway, "price_unavailable")
	expectError(t, env.doJSON(t, "GET", "/players/top-player", nil), http.StatusBadGateway, "price_unavailable")
	expectError(t, env.doJSON(t, "GET", "/players/"+id+"/portfolio/value", nil), http.StatusBadGateway, "price_unavailable")
}

func TestWatchlist(t *testing.T) {
	env := newTestEnvWith(t, unavailableSource{down: map[string]bool{"DOWN": true}}, nil)
	id := env.registerPlayer(t, "alice", nil)

	rr := env.doJSON(t, "POST", "/players/"+id+"/watchlistadd", map[string]any{"symbol": "aapl"})
	expectStatus(t, rr, http.StatusOK)
	var wl watchlistResponse
	decodeJSON(t, rr, &wl)
	if len(wl.Watchlist) != 1 || wl.Watchlist[0] != "AAPL" {
		t.Errorf("watchlist = %v", wl.Watchlist)
	}

	rr = env.doJSON(t, "POST", "/players/"+id+"/watchlistadd", map[string]any{"symbol": "AAPL"})
	expectError(t, rr, http.StatusBadRequest, "watchlist_duplicate")

	expectStatus(t, env.doJSON(t, "POST", "/players/"+id+"/watchlistadd", map[string]any{"symbol": "DOWN"}), http.StatusOK)

	rr = env.doJSON(t, "GET", "/players/"+id+"/prices", nil)
	expectStatus(t, rr, http.StatusOK)
	var prices struct {
		Prices map[string]*float64 `json:"prices"`
	}
	decodeJSON(t, rr, &prices)
	if prices.Prices["AAPL"] == nil || *prices.Prices["AAPL"] != 100 {
		t.Errorf("AAPL price = %v", prices.Prices["AAPL"])
	}
	if v, ok := prices.Prices["DOWN"]; !ok || v != nil {
		t.Errorf("DOWN price = %v (present %v), want null", v, ok)
	}

	rr = env.doJSON(t, "POST", "/players/"+id+"/watchlistremove", map[string]any{"symbol": "MSFT"})
	expectStatus(t, rr, http.StatusOK)
	decodeJSON(t, rr, &wl)
	if len(wl.Watchlist) != 2 {
		t.Errorf("absent remove changed watchlist: %v", wl.Watchlist)
	}

	rr = env.doJSON(t, "POST", "/players/"+id+"/watchlistremove", map[string]any{"symbol": "AAPL"})
	expectStatus(t, rr, http.StatusOK)
	decodeJSON(t, rr, &wl)
	if len(wl.Watchlist) != 1 || wl.Watchlist[0] != "DOWN" {
		t.Errorf("watchlist = %v", wl.Watchlist)
	}

	expectError(t, env.doJSON(t, "GET", "/players/nope/prices", nil), http.StatusNotFound, "player_not_found")
}

func TestMarketTrendsAndPrice(t *testing.T) {
	env := newTestEnvWith(t, unavailableSource{down: map[string]bool{"MSFT": true}}, nil)

	rr := env.doJSON(t, "GET", "/players/market-trends", nil)
	expectStatus(t, rr, http.StatusOK)
	var trends []trendResponse
	decodeJSON(t, rr, &trends)
	if len(trends) != 2 || trends[0].Symbol != "AAPL" || trends[1].Symbol != "GOOGL" {
		t.Errorf("default trends = %+v", trends)
	}
	if trends[0].Direction != "flat" {
		t.Errorf("direction = %q", trends[0].Direction)
	}

	rr = env.doJSON(t, "GET", "/players/market-trends?symbols=tsla,%20nvda", nil)
	expectStatus(t, rr, http.StatusOK)
	decodeJSON(t, rr, &trends)
	if len(trends) != 2 || trends[0].Symbol != "TSLA" || trends[1].Symbol != "NVDA" {
		t.Errorf("requested trends = %+v", trends)
	}

	rr = env.doJSON(t, "GET", "/stocks/aapl/price", nil)
	expectStatus(t, rr, http.StatusOK)
	var price priceResponse
	decodeJSON(t, rr, &price)
	if price.Symbol != "AAPL" || price.Price != 100 {
		t.Errorf("price = %+v", price)
	}

	expectError(t, env.doJSON(t, "GET", "/stocks/-bad-/price", nil), http.StatusBadRequest, "validation_error")
}

func TestFeedback(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "POST", "/feedback", map[string]any{"content": "love it"})
	expectStatus(t, rr, http.StatusCreated)
	var resp feedbackResponse
	decodeJSON(t, rr, &resp)
	if !resp.Success || resp.ID == "" {
		t.Errorf("feedback = %+v", resp)
	}
	if env.store.FeedbackCount() != 1 {
		t.Errorf("FeedbackCount = %d", env.store.FeedbackCount())
	}

	expectError(t, env.doJSON(t, "POST", "/feedback", map[string]any{"content": ""}), http.StatusBadRequest, "validation_error")
}

func TestGames(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registerPlayer(t, "alice", nil)
	bob := env.registerPlayer(t, "bob", cash(10200))
	start := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)

	rr := env.doJSON(t, "POST", "/admin/games", map[string]any{
		"name": "cup", "startTime": start, "endTime": end, "playerIds": []string{alice},
	})
	expectStatus(t, rr, http.StatusCreated)
	var created createGameResponse
	decodeJSON(t, rr, &created)
	if !created.Success || created.GameID == "" || created.Game.Status != "pending" || created.Game.Winner != nil {
		t.Fatalf("created = %+v", created)
	}
	gameID := created.GameID

	rr = env.doJSON(t, "POST", "/admin/games/"+gameID+"/players", map[string]any{"playerId": bob})
	expectStatus(t, rr, http.StatusOK)
	var g gameResponse
	decodeJSON(t, rr, &g)
	if len(g.Players) != 2 {
		t.Errorf("players = %v", g.Players)
	}

	rr = env.doJSON(t, "GET", "/admin/games", nil)
	expectStatus(t, rr, http.StatusOK)
	var games []gameResponse
	decodeJSON(t, rr, &games)
	if len(games) != 1 {
		t.Errorf("games = %+v", games)
	}

	rr = env.doJSON(t, "POST", "/admin/games/"+gameID+"/declare-winner", nil)
	expectStatus(t, rr, http.StatusOK)
	var declared declareWinnerResponse
	decodeJSON(t, rr, &declared)
	if declared.Winner == nil || declared.Winner.PlayerID != bob || declared.Winner.TotalPortfolioValue != 10200 {
		t.Errorf("winner = %+v", declared.Winner)
	}
	if declared.Participants != 2 || declared.Game.Status != "completed" || declared.Game.CompletedAt == nil {
		t.Errorf("declared = %+v", declared)
	}

	rr = env.doJSON(t, "GET", "/admin/games/"+gameID, nil)
	expectStatus(t, rr, http.StatusOK)
	decodeJSON(t, rr, &g)
	if g.Winner == nil || *g.Winner != bob {
		t.Errorf("stored winner = %v", g.Winner)
	}

	expectError(t, env.doJSON(t, "POST", "/admin/games/"+gameID+"/declare-winner", nil), http.StatusConflict, "game_completed")
	expectError(t, env.doJSON(t, "POST", "/admin/games/"+gameID+"/players", map[string]any{"playerId": alice}),
		http.StatusConflict, "game_completed")
}

func TestGames_EmptyGameWinnerIsNull(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, "POST", "/admin/games", map[string]any{
		"name": "empty", "startTime": "2025-01-01T00:00:00Z", "endTime": "2025-01-02T00:00:00Z",
	})
	expectStatus(t, rr, http.StatusCreated)
	var created createGameResponse
	decodeJSON(t, rr, &created)

	rr = env.doJSON(t, "POST", "/admin/games/"+created.GameID+"/declare-winner", nil)
	expectStatus(t, rr, http.StatusOK)

	var raw map[string]any
	decodeJSON(t, rr, &raw)
	if w, ok := raw["winner"]; !ok || w != nil {
		t.Errorf("winner = %v (present %v), want null", w, ok)
	}
	if raw["participants"] != 0.0 {
		t.Errorf("participants = %v, want 0", raw["participants"])
	}
}

func TestGames_Errors(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "POST", "/admin/games", map[string]any{
		"name": "bad", "startTime": "2025-01-02T00:00:00Z", "endTime": "2025-01-01T00:00:00Z",
	})
	expectError(t, rr, http.StatusBadRequest, "validation_error")

	rr = env.doJSON(t, "POST", "/admin/games", map[string]any{
		"name": "ghosts", "startTime": "2025-01-01T00:00:00Z", "endTime": "2025-01-02T00:00:00Z", "playerIds": []string{"ghost"},
	})
	expectError(t, rr, http.StatusNotFound, "player_not_found")

	rr = env.doRaw(t, "POST", "/admin/games", "application/json", `{"name":"x","startTime":"tomorrow"}`)
	expectError(t, rr, http.StatusBadRequest, "invalid_request")

	expectError(t, env.doJSON(t, "GET", "/admin/games/nope", nil), http.StatusNotFound, "game_not_found")
	expectError(t, env.doJSON(t, "POST", "/admin/games/nope/declare-winner", nil), http.StatusNotFound, "game_not_found")
}

func TestInternalErrorIsGeneric(t *testing.T) {
	env := newTestEnvWith(t, pricing.NewFixedPriceSource(decimal.NewFromInt(100), nil), brokenStore{store.NewMemoryStore()})

	rr := env.doJSON(t, "GET", "/players", nil)
	expectError(t, rr, http.StatusInternalServerError, "internal_error")
	if strings.Contains(rr.Body.String(), "connection reset") {
		t.Errorf("internal error leaked: %s", rr.Body.String())
	}
}

func TestWebsocketReceivesEvents(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial through router: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	env.registerPlayer(t, "alice", nil)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Event != domain.EventPlayerRegistered || msg.Data["name"] != "alice" {
		t.Errorf("message = %+v", msg)
	}
}
