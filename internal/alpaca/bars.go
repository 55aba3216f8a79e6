package alpaca

import (
	"context"
	"fmt"
	"net/url"

	"github.com/lanerush/engine/internal/model"
)

// barsResponse is the subset of the bars endpoint response we consume.
type barsResponse struct {
	Bars []struct {
		Close float64 `json:"c"`
	} `json:"bars"`
}

// PriceHistory returns the last 15 one-minute closing prices for a symbol as
// an ordered (index, close) series. On any failure it returns an empty
// series, never an error.
func (c *Client) PriceHistory(ctx context.Context, symbol string) []model.PricePoint {
	endpoint := "stocks"
	if isCrypto(symbol) {
		endpoint = "crypto"
	}
	fullURL := fmt.Sprintf("%s/%s/%s/bars", c.dataURL, endpoint, symbol)

	query := url.Values{}
	query.Set("timeframe", "1Min")
	query.Set("limit", "15")

	var resp barsResponse
	if err := c.get(ctx, fullURL, query, &resp); err != nil {
		c.logger.Warn("price history lookup failed", "symbol", symbol, "error", err)
		return nil
	}

	points := make([]model.PricePoint, 0, len(resp.Bars))
	for i, bar := range resp.Bars {
		points = append(points, model.PricePoint{Time: i, Price: bar.Close})
	}
	return points
}
