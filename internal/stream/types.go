package stream

import (
	"context"
	"time"

	"github.com/lanerush/engine/internal/gemini"
	"github.com/lanerush/engine/internal/model"
)

// Policy constants. These are fixed gameplay policy, not configuration: the
// weights decide what a generation tick produces, the baselines shape event
// values, and the base intervals are divided by the session speed.
const (
	// maxEvents bounds the event window; the oldest entry by insertion is
	// evicted when a push would exceed it.
	maxEvents = 15

	// baseTick is the shared generation interval at speed 1.0.
	baseTick = 15 * time.Second

	// baseForecastDelay is the pending-to-resolved delay at speed 1.0.
	baseForecastDelay = 8 * time.Second

	// baseGlobalTick is the global-modifier roll interval at speed 1.0.
	baseGlobalTick = 90 * time.Second

	// baseGlobalDuration is how long a raised modifier stays active at
	// speed 1.0.
	baseGlobalDuration = 30 * time.Second

	// Weighted outcome split for a generation tick: market event, forecast,
	// then quiz/recommendation at 50/50 of the remainder.
	marketWeight   = 0.50
	forecastWeight = 0.25

	// globalChance is the probability a global-modifier roll raises one.
	globalChance = 0.2

	// mandatoryQuizInterval makes every Nth quiz draw mandatory.
	mandatoryQuizInterval = 4

	// valueBaseline is added to every market event's |percent change * 10|.
	valueBaseline = 5.0
)

// NewsSource looks up the most recent headline for a symbol. It absorbs its
// own failures and always returns a usable value.
type NewsSource interface {
	RecentNews(ctx context.Context, symbol string) model.News
}

// HistorySource looks up a short closing-price series for a symbol,
// returning an empty series on failure.
type HistorySource interface {
	PriceHistory(ctx context.Context, symbol string) []model.PricePoint
}

// TextGenerator produces the AI narrative fields for events. Errors are
// absorbed by the controller, which substitutes canned fallbacks.
type TextGenerator interface {
	MarketNarrative(ctx context.Context, symbol string, percentChange float64, headline string) (gemini.Narrative, error)
	ForecastHeadlines(ctx context.Context, symbol string) (gemini.ForecastHeadlines, error)
}

// Sources bundles the external collaborators of the controller. News and
// History are ignored in demo mode; a nil Text generator means every
// narrative degrades to its fallback.
type Sources struct {
	News    NewsSource
	History HistorySource
	Text    TextGenerator
}

// Config configures a Controller.
type Config struct {
	Speed          float64  // > 0; divides every base interval
	Demo           bool     // synthetic prices and canned headlines, no live lookups
	StockSymbols   []string // live namespace without pair separators
	CryptoSymbols  []string // pair form, e.g. "BTC/USD"
	ReferenceIndex string   // symbol backing the market pulse
	Seed           uint64   // deterministic randomness when non-zero (tests)
}

// symbols returns the union pool events are drawn from.
func (c Config) symbols() []string {
	out := make([]string, 0, len(c.StockSymbols)+len(c.CryptoSymbols))
	out = append(out, c.StockSymbols...)
	out = append(out, c.CryptoSymbols...)
	return out
}

// PatchFields is a partial update applied to an event by id. Nil pointers
// leave the corresponding field untouched.
type PatchFields struct {
	Title              *string
	Explanation        *string
	News               *model.News
	PriceHistory       []model.PricePoint
	Faded              *bool
	Value              *float64
	Status             *model.ForecastStatus
	InitialHeadline    *string
	ResolutionHeadline *string
	Outcome            *model.ForecastOutcome
	Prediction         *model.ForecastOutcome
	Reward             *float64
	Active             *bool
}

// apply merges the set fields into an event.
func (f PatchFields) apply(e *model.GameEvent) {
	if f.Title != nil {
		e.Title = *f.Title
	}
	if f.Explanation != nil {
		e.Explanation = *f.Explanation
	}
	if f.News != nil {
		e.News = *f.News
	}
	if f.PriceHistory != nil {
		e.PriceHistory = f.PriceHistory
	}
	if f.Faded != nil {
		e.Faded = *f.Faded
	}
	if f.Value != nil {
		e.Value = *f.Value
	}
	if f.Status != nil {
		e.Status = *f.Status
	}
	if f.InitialHeadline != nil {
		e.InitialHeadline = *f.InitialHeadline
	}
	if f.ResolutionHeadline != nil {
		e.ResolutionHeadline = *f.ResolutionHeadline
	}
	if f.Outcome != nil {
		e.Outcome = *f.Outcome
	}
	if f.Prediction != nil {
		e.Prediction = *f.Prediction
	}
	if f.Reward != nil {
		e.Reward = *f.Reward
	}
	if f.Active != nil {
		e.Active = *f.Active
	}
}

func ptr[T any](v T) *T { return &v }
