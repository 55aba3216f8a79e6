package config

import "time"

// Config is the root configuration for an engine instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Server   ServerConfig   `yaml:"server"`
	Alpaca   AlpacaConfig   `yaml:"alpaca"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Game     GameConfig     `yaml:"game"`
	Recorder RecorderConfig `yaml:"recorder"`
}

// InstanceConfig identifies this engine instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds the UI gateway settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AlpacaConfig holds market-data credentials and endpoints.
//
// The sentinel pair key="demo", secret="demo" selects the fully synthetic
// demo mode: no connections are made to the stream, news, or bars APIs.
type AlpacaConfig struct {
	Key    string `yaml:"key"`
	Secret string `yaml:"secret"`

	DataURL         string `yaml:"data_url"`          // REST bars endpoint
	NewsURL         string `yaml:"news_url"`          // REST news endpoint
	StockStreamURL  string `yaml:"stock_stream_url"`  // stocks WebSocket
	CryptoStreamURL string `yaml:"crypto_stream_url"` // crypto WebSocket

	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// Demo reports whether the sentinel demo credentials are configured.
func (a AlpacaConfig) Demo() bool {
	return a.Key == "demo" && a.Secret == "demo"
}

// GeminiConfig holds the text-generation service settings. An empty APIKey
// disables generation; every call site falls back to canned content.
type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// GameConfig holds gameplay settings.
type GameConfig struct {
	Speed          float64  `yaml:"speed"`
	StockSymbols   []string `yaml:"stock_symbols"`
	CryptoSymbols  []string `yaml:"crypto_symbols"` // pair form, e.g. "BTC/USD"
	ReferenceIndex string   `yaml:"reference_index"`
}

// Symbols returns the union of the stock and crypto symbol namespaces.
func (g GameConfig) Symbols() []string {
	out := make([]string, 0, len(g.StockSymbols)+len(g.CryptoSymbols))
	out = append(out, g.StockSymbols...)
	out = append(out, g.CryptoSymbols...)
	return out
}

// RecorderConfig holds the optional session-archive settings. The recorder
// is disabled when Database.Host is empty.
type RecorderConfig struct {
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// Enabled reports whether a database is configured.
func (r RecorderConfig) Enabled() bool {
	return r.Database.Host != ""
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
