package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Alpaca.Key == "" || c.Alpaca.Secret == "" {
		return errors.New("alpaca.key and alpaca.secret are required (use \"demo\"/\"demo\" for demo mode)")
	}

	if c.Game.Speed <= 0 {
		return fmt.Errorf("game.speed must be > 0, got %v", c.Game.Speed)
	}
	if len(c.Game.StockSymbols)+len(c.Game.CryptoSymbols) == 0 {
		return errors.New("game requires at least one symbol")
	}
	for _, s := range c.Game.CryptoSymbols {
		if !strings.Contains(s, "/") {
			return fmt.Errorf("game.crypto_symbols entry %q must be a pair like BTC/USD", s)
		}
	}

	if c.Recorder.Enabled() {
		if err := c.Recorder.Database.validate("recorder.database"); err != nil {
			return err
		}
		if c.Recorder.BatchSize < 1 {
			return errors.New("recorder.batch_size must be >= 1")
		}
		if c.Recorder.BufferSize < 1 {
			return errors.New("recorder.buffer_size must be >= 1")
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
