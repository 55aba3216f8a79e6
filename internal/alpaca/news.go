package alpaca

import (
	"context"
	"net/url"

	"github.com/lanerush/engine/internal/model"
)

// newsResponse is the subset of the news endpoint response we consume.
type newsResponse struct {
	News []struct {
		Headline string `json:"headline"`
		Source   string `json:"source"`
		URL      string `json:"url"`
	} `json:"news"`
}

// genericNews is returned when the lookup fails or comes back empty.
func genericNews(symbol string) model.News {
	return model.News{
		Headline: "Market data is showing movement for " + symbol + ".",
		Source:   "Generic Feed",
	}
}

// RecentNews returns the most recent headline for a symbol, or a generic
// fallback when the API fails or has nothing. It never returns an error.
func (c *Client) RecentNews(ctx context.Context, symbol string) model.News {
	query := url.Values{}
	query.Set("symbols", baseSymbol(symbol))
	query.Set("limit", "1")

	var resp newsResponse
	if err := c.get(ctx, c.newsURL, query, &resp); err != nil {
		c.logger.Warn("news lookup failed", "symbol", symbol, "error", err)
		return genericNews(symbol)
	}

	if len(resp.News) == 0 {
		return genericNews(symbol)
	}

	article := resp.News[0]
	return model.News{
		Headline: article.Headline,
		Source:   article.Source,
		URL:      article.URL,
	}
}
