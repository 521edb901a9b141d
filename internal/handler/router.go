package handler

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/stockgame/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services bundles the services the router dispatches to.
type Services struct {
	Players     *service.PlayerService
	Trades      *service.TradeService
	Leaderboard *service.LeaderboardService
	Games       *service.GameService
	Market      *service.MarketService
}

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware. ws serves /ws when non-nil.
func NewRouter(svc Services, ws http.HandlerFunc, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogging(logger))
	r.Use(middleware.Recoverer)
	r.Use(contentTypeJSON)

	// Create handlers.
	playerH := NewPlayerHandler(svc.Players, svc.Leaderboard, logger)
	tradeH := NewTradeHandler(svc.Trades, logger)
	marketH := NewMarketHandler(svc.Market, logger)
	gameH := NewGameHandler(svc.Games, logger)
	feedbackH := NewFeedbackHandler(svc.Players, logger)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Player routes. Static segments take precedence over {id}.
	r.Route("/players", func(r chi.Router) {
		r.Post("/", playerH.Register)
		r.Get("/", playerH.List)
		r.Post("/rename", playerH.Rename)
		r.Get("/leaderboard", playerH.Leaderboard)
		r.Get("/top-player", playerH.TopPlayer)
		r.Get("/market-trends", marketH.Trends)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", playerH.Get)
			r.Post("/buy", tradeH.Buy)
			r.Post("/sell", tradeH.Sell)
			r.Get("/trade-history", playerH.TradeHistory)
			r.Get("/portfolio/value", playerH.PortfolioValue)
			r.Post("/watchlistadd", playerH.WatchlistAdd)
			r.Post("/watchlistremove", playerH.WatchlistRemove)
			r.Get("/prices", playerH.WatchlistPrices)
		})
	})

	// Stock routes.
	r.Get("/stocks/{symbol}/price", marketH.Price)

	// Feedback.
	r.Post("/feedback", feedbackH.Submit)

	// Admin game routes.
	r.Route("/admin/games", func(r chi.Router) {
		r.Post("/", gameH.Create)
		r.Get("/", gameH.List)
		r.Get("/{id}", gameH.Get)
		r.Post("/{id}/players", gameH.AddParticipant)
		r.Post("/{id}/declare-winner", gameH.DeclareWinner)
	})

	// Realtime events.
	if ws != nil {
		r.Get("/ws", ws)
	}

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, duration and request ID using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if !w.wroteHeader {
		w.status = http.StatusSwitchingProtocols
		w.wroteHeader = true
	}
	return hj.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests that carry a body. If the Content-Type header doesn't start
// with "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if r.ContentLength != 0 && (ct == "" || !strings.HasPrefix(ct, "application/json")) {
				writeError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
