package feed

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrAuthFailed      = errors.New("authentication failed")
)

// Trade is one executed-trade tick from the stream.
type Trade struct {
	Symbol     string
	Price      float64
	Size       float64
	ReceivedAt time.Time
}

// tradeRecord is the wire form of a trade record. Inbound frames are arrays
// of tagged records; records whose tag is not "t" are ignored.
type tradeRecord struct {
	Type   string  `json:"T"`
	Symbol string  `json:"S"`
	Price  float64 `json:"p"`
	Size   float64 `json:"s"`
	Msg    string  `json:"msg"`
}

// authMessage authenticates the connection after dialing.
type authMessage struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

// subscribeMessage subscribes to trade channels for a symbol list.
type subscribeMessage struct {
	Action string   `json:"action"`
	Trades []string `json:"trades"`
}

// ClientConfig configures a single stream connection.
type ClientConfig struct {
	URL          string        // WebSocket URL for one namespace (stocks or crypto)
	Key          string        // API key
	Secret       string        // API secret
	Symbols      []string      // Trade channels to subscribe
	PingTimeout  time.Duration // Max time without ping before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Trade channel buffer size
}

// Config configures the Feed.
type Config struct {
	StockURL      string
	CryptoURL     string
	Key           string
	Secret        string
	StockSymbols  []string // includes the reference index
	CryptoSymbols []string
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	BufferSize    int
}

// DefaultConfig returns sensible defaults for everything but URLs,
// credentials, and symbols.
func DefaultConfig() Config {
	return Config{
		ReconnectBase: 1 * time.Second,
		ReconnectMax:  60 * time.Second,
		BufferSize:    1000,
	}
}
