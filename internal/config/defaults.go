package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerPort      = 8080
	DefaultShutdownTimeout = 10 * time.Second

	DefaultDataURL         = "https://data.alpaca.markets/v2"
	DefaultNewsURL         = "https://data.alpaca.markets/v1beta1/news"
	DefaultStockStreamURL  = "wss://stream.data.alpaca.markets/v2/iex"
	DefaultCryptoStreamURL = "wss://stream.data.alpaca.markets/v1beta3/crypto/us"
	DefaultAlpacaTimeout   = 10 * time.Second
	DefaultMaxRetries      = 3

	DefaultGeminiModel   = "gemini-2.0-flash"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiTimeout = 20 * time.Second

	DefaultSpeed          = 1.0
	DefaultReferenceIndex = "SPY"

	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMaxConns      = 10
	DefaultMinConns      = 2
	DefaultBatchSize     = 100
	DefaultFlushInterval = 1 * time.Second
	DefaultBufferSize    = 1000
)

var (
	defaultStockSymbols  = []string{"NVDA", "TSLA", "GOOG"}
	defaultCryptoSymbols = []string{"BTC/USD", "ETH/USD", "SOL/USD", "LINK/USD", "AVAX/USD"}
)

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Alpaca defaults
	if c.Alpaca.DataURL == "" {
		c.Alpaca.DataURL = DefaultDataURL
	}
	if c.Alpaca.NewsURL == "" {
		c.Alpaca.NewsURL = DefaultNewsURL
	}
	if c.Alpaca.StockStreamURL == "" {
		c.Alpaca.StockStreamURL = DefaultStockStreamURL
	}
	if c.Alpaca.CryptoStreamURL == "" {
		c.Alpaca.CryptoStreamURL = DefaultCryptoStreamURL
	}
	if c.Alpaca.Timeout == 0 {
		c.Alpaca.Timeout = DefaultAlpacaTimeout
	}
	if c.Alpaca.MaxRetries == 0 {
		c.Alpaca.MaxRetries = DefaultMaxRetries
	}

	// Gemini defaults
	if c.Gemini.Model == "" {
		c.Gemini.Model = DefaultGeminiModel
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = DefaultGeminiBaseURL
	}
	if c.Gemini.Timeout == 0 {
		c.Gemini.Timeout = DefaultGeminiTimeout
	}

	// Game defaults
	if c.Game.Speed == 0 {
		c.Game.Speed = DefaultSpeed
	}
	if len(c.Game.StockSymbols) == 0 {
		c.Game.StockSymbols = append([]string(nil), defaultStockSymbols...)
	}
	if len(c.Game.CryptoSymbols) == 0 {
		c.Game.CryptoSymbols = append([]string(nil), defaultCryptoSymbols...)
	}
	if c.Game.ReferenceIndex == "" {
		c.Game.ReferenceIndex = DefaultReferenceIndex
	}

	// Recorder defaults
	if c.Recorder.Database.Port == 0 {
		c.Recorder.Database.Port = DefaultDBPort
	}
	if c.Recorder.Database.SSLMode == "" {
		c.Recorder.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Recorder.Database.MaxConns == 0 {
		c.Recorder.Database.MaxConns = DefaultMaxConns
	}
	if c.Recorder.Database.MinConns == 0 {
		c.Recorder.Database.MinConns = DefaultMinConns
	}
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}
}
