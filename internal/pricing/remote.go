package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	errUnknownSymbol     = errors.New("unknown symbol")
	errRateLimited       = errors.New("rate limited by quote API")
	errMalformedResponse = errors.New("malformed quote response")
)

// statusError is returned for non-200 responses.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("quote API returned status %d", e.code)
}

// RemoteConfig configures a RemotePriceSource.
type RemoteConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration // per attempt
	Retries     int           // extra attempts after the first
	RetryDelay  RetryDelay
	Concurrency int // max lookups in flight for GetPrices
}

// RemotePriceSource fetches quotes from an Alpha Vantage compatible API.
// Each attempt runs under its own timeout; transient failures are retried
// after a RetryDelay wait. Every failure surfaces as a *domain.PriceError.
type RemotePriceSource struct {
	cfg    RemoteConfig
	client *http.Client
	logger *slog.Logger
}

// NewRemotePriceSource creates a RemotePriceSource. A nil client uses a
// fresh http.Client; timeouts are enforced per attempt through contexts.
func NewRemotePriceSource(cfg RemoteConfig, client *http.Client, logger *slog.Logger) *RemotePriceSource {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &RemotePriceSource{cfg: cfg, client: client, logger: logger}
}

// GetPrice fetches the latest GLOBAL_QUOTE price for symbol.
func (s *RemotePriceSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return decimal.Zero, &domain.PriceError{Symbol: symbol, Err: err}
	}

	var price decimal.Decimal
	err = s.withRetry(ctx, sym, func(ctx context.Context) error {
		p, err := s.fetchQuote(ctx, sym)
		if err != nil {
			return err
		}
		price = p
		return nil
	})
	if err != nil {
		return decimal.Zero, &domain.PriceError{Symbol: sym, Err: err}
	}
	return price, nil
}

// GetPrices fetches symbols in parallel, bounded by the configured
// concurrency. Failed symbols map to nil.
func (s *RemotePriceSource) GetPrices(ctx context.Context, symbols []string) map[string]*decimal.Decimal {
	return fetchAll(ctx, symbols, s.cfg.Concurrency, s.GetPrice)
}

// Trend compares the two most recent daily closes of symbol.
func (s *RemotePriceSource) Trend(ctx context.Context, symbol string) (Trend, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return Trend{}, &domain.PriceError{Symbol: symbol, Err: err}
	}

	var trend Trend
	err = s.withRetry(ctx, sym, func(ctx context.Context) error {
		t, err := s.fetchTrend(ctx, sym)
		if err != nil {
			return err
		}
		trend = t
		return nil
	})
	if err != nil {
		return Trend{}, &domain.PriceError{Symbol: sym, Err: err}
	}
	return trend, nil
}

// withRetry runs op with a per-attempt timeout, retrying transient
// failures up to cfg.Retries times.
func (s *RemotePriceSource) withRetry(ctx context.Context, sym string, op func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		err := op(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt > s.cfg.Retries || !isRetryable(err) || ctx.Err() != nil {
			return err
		}

		wait := s.cfg.RetryDelay.For(attempt)
		s.logger.Warn("quote fetch failed, retrying",
			slog.String("symbol", sym),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, errUnknownSymbol) || errors.Is(err, errMalformedResponse) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

func (s *RemotePriceSource) fetchQuote(ctx context.Context, sym string) (decimal.Decimal, error) {
	raw, err := s.query(ctx, url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {sym}})
	if err != nil {
		return decimal.Zero, err
	}

	if len(raw["Global Quote"]) == 0 {
		return decimal.Zero, errUnknownSymbol
	}
	var quote map[string]string
	if err := json.Unmarshal(raw["Global Quote"], &quote); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	if quote["05. price"] == "" {
		return decimal.Zero, errUnknownSymbol
	}
	price, err := domain.ParsePrice(quote["05. price"])
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	return price, nil
}

func (s *RemotePriceSource) fetchTrend(ctx context.Context, sym string) (Trend, error) {
	raw, err := s.query(ctx, url.Values{"function": {"TIME_SERIES_DAILY"}, "symbol": {sym}})
	if err != nil {
		return Trend{}, err
	}

	if len(raw["Time Series (Daily)"]) == 0 {
		return Trend{}, errUnknownSymbol
	}
	var series map[string]map[string]string
	if err := json.Unmarshal(raw["Time Series (Daily)"], &series); err != nil {
		return Trend{}, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	if len(series) < 2 {
		return Trend{}, errUnknownSymbol
	}

	// Dates are ISO formatted, so lexical order is chronological.
	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	latest, err := domain.ParsePrice(series[dates[0]]["4. close"])
	if err != nil {
		return Trend{}, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	previous, err := domain.ParsePrice(series[dates[1]]["4. close"])
	if err != nil {
		return Trend{}, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	return NewTrend(sym, latest, previous), nil
}

// query performs one GET against the quote API and decodes the top-level
// object. API-level error bodies are translated to sentinel errors.
func (s *RemotePriceSource) query(ctx context.Context, params url.Values) (map[string]json.RawMessage, error) {
	params.Set("apikey", s.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// url.Error carries the request URL, which includes the API key.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&raw); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("quote request: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	if _, ok := raw["Note"]; ok {
		return nil, errRateLimited
	}
	if _, ok := raw["Information"]; ok {
		return nil, errRateLimited
	}
	if _, ok := raw["Error Message"]; ok {
		return nil, errUnknownSymbol
	}
	return raw, nil
}
