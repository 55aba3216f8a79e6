// Package alpaca provides the REST lookups backing event enrichment: the
// most recent news headline for a symbol and a short closing-price history.
//
// Both lookups absorb their own failures: news degrades to a generic
// headline and price history to an empty series. Nothing propagates upward
// as an error, matching the rest of the engine's degrade-not-fail policy.
package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client provides access to the Alpaca market-data REST API.
type Client struct {
	dataURL      string
	newsURL      string
	key          string
	secret       string
	httpClient   *http.Client
	logger       *slog.Logger
	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST client.
func NewClient(dataURL, newsURL, key, secret string, opts ...ClientOption) *Client {
	c := &Client{
		dataURL: dataURL,
		newsURL: newsURL,
		key:     key,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: 500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxRetries sets how many times a retryable failure is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryBackoff sets the initial retry backoff.
func WithRetryBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryBackoff = d
	}
}

// apiError carries the HTTP status for retry classification.
type apiError struct {
	statusCode int
}

func (e *apiError) Error() string {
	return fmt.Sprintf("alpaca api error %d: %s", e.statusCode, http.StatusText(e.statusCode))
}

// retryable reports whether the status is worth another attempt.
func (e *apiError) retryable() bool {
	return e.statusCode >= 500 || e.statusCode == http.StatusTooManyRequests
}

// doRequest performs a single authenticated GET.
func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("APCA-API-KEY-ID", c.key)
	req.Header.Set("APCA-API-SECRET-KEY", c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &apiError{statusCode: resp.StatusCode}
	}

	return body, nil
}

// doWithRetry retries retryable failures with exponential backoff.
func (c *Client) doWithRetry(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"url", fullURL,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := c.doRequest(ctx, fullURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var ae *apiError
		if !errors.As(err, &ae) || !ae.retryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs an authenticated GET with retries and unmarshals the JSON
// response.
func (c *Client) get(ctx context.Context, fullURL string, query url.Values, result any) error {
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	body, err := c.doWithRetry(ctx, fullURL)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// isCrypto reports whether a symbol is in the crypto namespace. Crypto
// symbols carry a "/" pair separator (e.g. "BTC/USD").
func isCrypto(symbol string) bool {
	return strings.Contains(symbol, "/")
}

// baseSymbol strips the pair quote for endpoints that want just the base.
func baseSymbol(symbol string) string {
	if i := strings.Index(symbol, "/"); i >= 0 {
		return symbol[:i]
	}
	return symbol
}
