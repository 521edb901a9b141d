package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/shopspring/decimal"
)

// Price modes.
const (
	PriceModeFixed  = "fixed"
	PriceModeRemote = "remote"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config holds all runtime configuration for the stock game server.
type Config struct {
	Port     int
	LogLevel string

	PriceMode             string
	FixedPrice            decimal.Decimal
	FixedPrices           map[string]decimal.Decimal
	QuoteAPIURL           string
	QuoteAPIKey           string
	PriceFetchTimeout     time.Duration
	PriceFetchRetries     int
	PriceRetryBackoff     time.Duration
	PriceFetchConcurrency int

	StartingCash decimal.Decimal
	TradeRetries int

	Store         string
	MongoURI      string
	MongoDatabase string

	GameTickInterval time.Duration
	WebhookURLs      []string
	WebhookTimeout   time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d, must be between 1 and 65535", port)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	priceMode := getStr("PRICE_MODE", PriceModeFixed)
	if priceMode != PriceModeFixed && priceMode != PriceModeRemote {
		return nil, fmt.Errorf("invalid PRICE_MODE: %q, must be one of: fixed, remote", priceMode)
	}

	fixedPrice, err := domain.ParsePrice(getStr("FIXED_PRICE", "179.5"))
	if err != nil {
		return nil, fmt.Errorf("invalid FIXED_PRICE: %w", err)
	}

	fixedPrices, err := parsePriceOverrides(os.Getenv("FIXED_PRICES"))
	if err != nil {
		return nil, fmt.Errorf("invalid FIXED_PRICES: %w", err)
	}

	quoteURL := getStr("QUOTE_API_URL", "https://www.alphavantage.co/query")
	if u, err := url.Parse(quoteURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid QUOTE_API_URL: %q, must be an absolute URL", quoteURL)
	}

	quoteKey := os.Getenv("QUOTE_API_KEY")
	if priceMode == PriceModeRemote && quoteKey == "" {
		return nil, fmt.Errorf("invalid QUOTE_API_KEY: required when PRICE_MODE is remote")
	}

	fetchTimeout, err := getPositiveDuration("PRICE_FETCH_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_FETCH_TIMEOUT: %w", err)
	}

	fetchRetries, err := getInt("PRICE_FETCH_RETRIES", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_FETCH_RETRIES: %w", err)
	}
	if fetchRetries < 0 || fetchRetries > 10 {
		return nil, fmt.Errorf("invalid PRICE_FETCH_RETRIES: %d, must be between 0 and 10", fetchRetries)
	}

	retryBackoff, err := getPositiveDuration("PRICE_RETRY_BACKOFF", 250*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_RETRY_BACKOFF: %w", err)
	}

	concurrency, err := getInt("PRICE_FETCH_CONCURRENCY", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_FETCH_CONCURRENCY: %w", err)
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("invalid PRICE_FETCH_CONCURRENCY: %d, must be at least 1", concurrency)
	}

	startingCash, err := decimal.NewFromString(getStr("STARTING_CASH", "10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_CASH: %w", err)
	}
	if startingCash.IsNegative() || startingCash.GreaterThan(domain.MaxStartingCash) {
		return nil, fmt.Errorf("invalid STARTING_CASH: %s, must be between 0 and %s", startingCash, domain.MaxStartingCash)
	}

	tradeRetries, err := getInt("TRADE_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid TRADE_RETRIES: %w", err)
	}
	if tradeRetries < 0 {
		return nil, fmt.Errorf("invalid TRADE_RETRIES: %d, must not be negative", tradeRetries)
	}

	storeKind := getStr("STORE", StoreMemory)
	if storeKind != StoreMemory && storeKind != StoreMongo {
		return nil, fmt.Errorf("invalid STORE: %q, must be one of: memory, mongo", storeKind)
	}

	mongoURI := os.Getenv("MONGODB_URI")
	if storeKind == StoreMongo && mongoURI == "" {
		return nil, fmt.Errorf("invalid MONGODB_URI: required when STORE is mongo")
	}

	tick, err := getPositiveDuration("GAME_TICK_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid GAME_TICK_INTERVAL: %w", err)
	}

	webhookURLs, err := parseURLList(os.Getenv("WEBHOOK_URLS"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_URLS: %w", err)
	}

	webhookTimeout, err := getDuration("WEBHOOK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                  port,
		LogLevel:              logLevel,
		PriceMode:             priceMode,
		FixedPrice:            fixedPrice,
		FixedPrices:           fixedPrices,
		QuoteAPIURL:           quoteURL,
		QuoteAPIKey:           quoteKey,
		PriceFetchTimeout:     fetchTimeout,
		PriceFetchRetries:     fetchRetries,
		PriceRetryBackoff:     retryBackoff,
		PriceFetchConcurrency: concurrency,
		StartingCash:          startingCash,
		TradeRetries:          tradeRetries,
		Store:                 storeKind,
		MongoURI:              mongoURI,
		MongoDatabase:         getStr("MONGODB_DATABASE", "stockgame"),
		GameTickInterval:      tick,
		WebhookURLs:           webhookURLs,
		WebhookTimeout:        webhookTimeout,
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		IdleTimeout:           idleTimeout,
		ShutdownTimeout:       shutdownTimeout,
	}, nil
}

// parsePriceOverrides parses "AAPL=150.25,MSFT=300". Symbols are
// normalized; a symbol listed twice is an error.
func parsePriceOverrides(raw string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		symRaw, priceRaw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%q is not SYMBOL=PRICE", pair)
		}
		sym, err := domain.NormalizeSymbol(symRaw)
		if err != nil {
			return nil, err
		}
		if _, dup := out[sym]; dup {
			return nil, fmt.Errorf("symbol %s listed twice", sym)
		}
		price, err := domain.ParsePrice(priceRaw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sym, err)
		}
		out[sym] = price
	}
	return out, nil
}

func parseURLList(raw string) ([]string, error) {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%q must be an http or https URL", s)
		}
		out = append(out, s)
	}
	return out, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getDuration(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s, must be positive", d)
	}
	return d, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
