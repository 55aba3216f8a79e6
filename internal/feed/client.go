package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a single WebSocket connection to one Alpaca stream namespace.
// It authenticates and subscribes on connect, then forwards trade records
// until closed or the connection goes stale.
type Client interface {
	// Connect dials, authenticates, and subscribes.
	Connect(ctx context.Context) error

	// Close gracefully closes the connection.
	Close() error

	// Trades returns the channel of parsed trade records.
	Trades() <-chan Trade

	// Errors returns a channel of connection errors.
	Errors() <-chan error

	// IsConnected returns current connection state.
	IsConnected() bool
}

// client implements the Client interface.
type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	trades chan Trade
	errors chan error
	done   chan struct{}

	writeMu sync.Mutex

	mu         sync.RWMutex
	connected  bool
	lastPingAt time.Time
	closed     bool
}

// NewClient creates a new stream client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &client{
		cfg:    cfg,
		logger: logger,
		trades: make(chan Trade, cfg.BufferSize),
		errors: make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Connect dials the stream, authenticates, and subscribes to the configured
// trade channels.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	conn.SetPingHandler(func(data string) error {
		c.mu.Lock()
		c.lastPingAt = time.Now()
		c.mu.Unlock()

		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	conn.SetPongHandler(func(data string) error {
		c.mu.Lock()
		c.lastPingAt = time.Now()
		c.mu.Unlock()
		return nil
	})

	if err := c.authenticate(); err != nil {
		conn.Close()
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		return err
	}

	if err := c.subscribe(); err != nil {
		conn.Close()
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		return err
	}

	go c.readLoop()
	go c.heartbeatLoop()

	c.logger.Debug("stream connected", "url", c.cfg.URL, "symbols", len(c.cfg.Symbols))

	return nil
}

// authenticate sends the key/secret pair.
func (c *client) authenticate() error {
	return c.send(authMessage{
		Action: "auth",
		Key:    c.cfg.Key,
		Secret: c.cfg.Secret,
	})
}

// subscribe subscribes to trade channels for the configured symbols.
func (c *client) subscribe() error {
	if len(c.cfg.Symbols) == 0 {
		return nil
	}
	return c.send(subscribeMessage{
		Action: "subscribe",
		Trades: c.cfg.Symbols,
	})
}

// send marshals and writes a single message.
func (c *client) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close gracefully closes the connection.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	c.mu.Unlock()

	close(c.done)

	if c.conn != nil {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return c.conn.Close()
	}

	return nil
}

// Trades returns the trades channel.
func (c *client) Trades() <-chan Trade {
	return c.trades
}

// Errors returns the errors channel.
func (c *client) Errors() <-chan error {
	return c.errors
}

// IsConnected returns the current connection state.
func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// readLoop reads frames, parses trade records, and forwards them.
func (c *client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			select {
			case <-c.done:
				return
			default:
				select {
				case c.errors <- err:
				default:
				}
				return
			}
		}

		// Frames are arrays of tagged records. Records other than trades
		// ("t") are ignored; auth errors surface as connection errors.
		var records []tradeRecord
		if err := json.Unmarshal(data, &records); err != nil {
			c.logger.Debug("unparseable frame, skipping", "error", err)
			continue
		}

		for _, rec := range records {
			switch rec.Type {
			case "t":
				trade := Trade{
					Symbol:     rec.Symbol,
					Price:      rec.Price,
					Size:       rec.Size,
					ReceivedAt: receivedAt,
				}
				select {
				case c.trades <- trade:
				case <-c.done:
					return
				default:
					c.logger.Warn("trade buffer full, dropping tick", "symbol", rec.Symbol)
				}

			case "error":
				c.logger.Warn("stream error record", "msg", rec.Msg)
				if rec.Msg == "auth failed" || rec.Msg == "auth timeout" {
					select {
					case c.errors <- ErrAuthFailed:
					default:
					}
					return
				}

			default:
				// success/subscription acks and anything unrecognized
			}
		}
	}
}

// heartbeatLoop monitors for stale connections.
func (c *client) heartbeatLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()

			if conn != nil {
				deadline := time.Now().Add(c.cfg.WriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
					c.logger.Debug("failed to send ping", "error", err)
				}
			}

			c.mu.RLock()
			lastPing := c.lastPingAt
			c.mu.RUnlock()

			if time.Since(lastPing) > c.cfg.PingTimeout {
				c.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", c.cfg.PingTimeout,
				)
				select {
				case c.errors <- ErrStaleConnection:
				default:
				}
				return
			}
		}
	}
}
