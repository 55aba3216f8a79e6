// Package feed maintains the live Alpaca market-data stream: one WebSocket
// connection per symbol namespace (stocks, crypto), authenticated and
// subscribed to trade channels, merged into a single channel of ticks.
// Dropped connections reconnect with exponential backoff and resubscribe.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lanerush/engine/internal/metrics"
)

// Feed merges the per-namespace stream connections into one trade channel.
type Feed interface {
	// Start dials all configured connections.
	Start(ctx context.Context) error

	// Stop closes all connections and the output channel.
	Stop(ctx context.Context) error

	// Trades returns the merged channel of ticks from all connections.
	Trades() <-chan Trade
}

// connState tracks one namespace connection.
type connState struct {
	client  Client
	url     string
	symbols []string
}

// feedImpl implements the Feed interface.
type feedImpl struct {
	cfg    Config
	logger *slog.Logger

	out chan Trade

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	conns []*connState
}

// New creates a Feed. Namespaces with no symbols get no connection.
func New(cfg Config, logger *slog.Logger) Feed {
	if logger == nil {
		logger = slog.Default()
	}

	f := &feedImpl{
		cfg:    cfg,
		logger: logger,
		out:    make(chan Trade, cfg.BufferSize),
	}

	if len(cfg.StockSymbols) > 0 {
		f.conns = append(f.conns, &connState{url: cfg.StockURL, symbols: cfg.StockSymbols})
	}
	if len(cfg.CryptoSymbols) > 0 {
		f.conns = append(f.conns, &connState{url: cfg.CryptoURL, symbols: cfg.CryptoSymbols})
	}

	return f
}

// Start dials every configured connection and starts its pump. A connection
// that fails to dial is retried by the reconnect loop rather than failing
// startup.
func (f *feedImpl) Start(ctx context.Context) error {
	f.ctx, f.cancel = context.WithCancel(ctx)

	for _, cs := range f.conns {
		cs.client = f.newClient(cs)
		if err := cs.client.Connect(f.ctx); err != nil {
			f.logger.Warn("initial stream connect failed, will retry", "url", cs.url, "error", err)
			f.wg.Add(1)
			go f.reconnect(cs)
			continue
		}

		f.wg.Add(1)
		go f.pump(cs)
	}

	f.logger.Info("feed started", "connections", len(f.conns))
	return nil
}

// Stop closes all connections and waits for pumps to drain.
func (f *feedImpl) Stop(ctx context.Context) error {
	f.logger.Info("stopping feed")

	if f.cancel != nil {
		f.cancel()
	}

	for _, cs := range f.conns {
		if cs.client != nil {
			cs.client.Close()
		}
	}

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		f.logger.Info("feed stopped")
	case <-ctx.Done():
		f.logger.Warn("feed stop timed out")
	}

	close(f.out)
	return nil
}

// Trades returns the merged output channel.
func (f *feedImpl) Trades() <-chan Trade {
	return f.out
}

// newClient builds a client for a connection slot.
func (f *feedImpl) newClient(cs *connState) Client {
	return NewClient(ClientConfig{
		URL:          cs.url,
		Key:          f.cfg.Key,
		Secret:       f.cfg.Secret,
		Symbols:      cs.symbols,
		PingTimeout:  90 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   f.cfg.BufferSize,
	}, f.logger.With("stream", cs.url))
}

// pump forwards ticks from one connection to the merged channel until the
// connection errors, then hands off to the reconnect loop.
func (f *feedImpl) pump(cs *connState) {
	defer f.wg.Done()

	for {
		select {
		case <-f.ctx.Done():
			return

		case err := <-cs.client.Errors():
			f.logger.Warn("stream connection error", "url", cs.url, "error", err)
			f.wg.Add(1)
			go f.reconnect(cs)
			return

		case trade, ok := <-cs.client.Trades():
			if !ok {
				return
			}
			select {
			case f.out <- trade:
			default:
				f.logger.Warn("feed buffer full, dropping tick", "symbol", trade.Symbol)
			}
		}
	}
}

// reconnect re-dials a connection with exponential backoff; on success the
// new connection re-authenticates and resubscribes, and the pump restarts.
func (f *feedImpl) reconnect(cs *connState) {
	defer f.wg.Done()

	wait := f.cfg.ReconnectBase
	maxWait := f.cfg.ReconnectMax

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-time.After(wait):
		}

		f.logger.Info("attempting stream reconnection", "url", cs.url)
		metrics.FeedReconnects.Inc()

		if cs.client != nil {
			cs.client.Close()
		}
		cs.client = f.newClient(cs)

		if err := cs.client.Connect(f.ctx); err != nil {
			f.logger.Warn("stream reconnection failed", "url", cs.url, "error", err)

			wait *= 2
			if wait > maxWait {
				wait = maxWait
			}
			continue
		}

		f.logger.Info("stream reconnected", "url", cs.url)

		f.wg.Add(1)
		go f.pump(cs)
		return
	}
}
