package stream

import (
	"context"
	"time"

	"github.com/lanerush/engine/internal/gemini"
	"github.com/lanerush/engine/internal/metrics"
	"github.com/lanerush/engine/internal/model"
)

func observeEnrichment(d time.Duration) {
	metrics.EnrichmentLatency.Observe(d.Seconds())
}

// generate runs one weighted generation tick: ~50% market event, ~25%
// forecast, ~25% quiz or recommendation split evenly.
func (c *controller) generate() {
	r := c.rng.Float64()
	switch {
	case r < marketWeight:
		c.generateMarketEvent()
	case r < marketWeight+forecastWeight:
		c.generateForecast()
	default:
		if c.rng.Float64() < 0.5 {
			c.generateQuiz()
		} else {
			c.generateRecommendation()
		}
	}

	// Without a reference feed the pulse is a random walk.
	if c.cfg.Demo {
		c.mu.Lock()
		c.pulse = c.rng.IntN(3) - 1
		c.mu.Unlock()
	}
}

// generateMarketEvent synthesizes an opportunity or trap for a random
// symbol and spawns its enrichment task.
func (c *controller) generateMarketEvent() {
	pool := c.cfg.symbols()
	if len(pool) == 0 {
		return
	}
	symbol := pool[c.rng.IntN(len(pool))]

	var pct float64
	if c.cfg.Demo {
		// Skewed slightly positive, roughly -2.25% to +2.75%.
		pct = (c.rng.Float64() - 0.45) * 5
	} else {
		c.mu.Lock()
		last, haveLast := c.lastPrice[symbol]
		creation, haveCreation := c.eventCreationPrice[symbol]
		if haveLast {
			c.eventCreationPrice[symbol] = last
		}
		c.mu.Unlock()

		if !haveLast {
			// The feed has not delivered a tick for this symbol yet.
			// Not an error; just skip the cycle.
			c.logger.Debug("no price yet, skipping cycle", "symbol", symbol)
			return
		}
		if !haveCreation || creation == 0 {
			// First observation establishes the baseline.
			return
		}
		pct = (last - creation) / creation * 100
	}

	typ := model.EventTrap
	if pct > 0 {
		typ = model.EventOpportunity
	}

	// An active global modifier biases the feed, not just the decoration:
	// shock kills opportunities, streak kills traps.
	if g, ok := c.GlobalEvent(); ok {
		if g.Type == model.EventShock && typ == model.EventOpportunity {
			metrics.EventsSuppressed.WithLabelValues(string(g.Type)).Inc()
			return
		}
		if g.Type == model.EventStreak && typ == model.EventTrap {
			metrics.EventsSuppressed.WithLabelValues(string(g.Type)).Inc()
			return
		}
	}

	magnitude := abs(pct*10) + valueBaseline
	lane := c.rng.IntN(3)

	c.mu.Lock()
	id := c.newIDLocked()
	ev := model.NewMarketEvent(id, symbol, typ, magnitude, lane)
	ev.Title = provisionalTitle
	ev.Explanation = provisionalExplanation

	var headline string
	if c.cfg.Demo {
		ev.News = cannedNews(symbol, c.rng.IntN(len(newsTemplates)))
		ev.PriceHistory = c.syntheticHistory(typ == model.EventOpportunity)
		headline = ev.News.Headline
	}

	c.pushLocked(ev)
	c.mu.Unlock()

	metrics.EventsGenerated.WithLabelValues(string(typ)).Inc()
	c.notify()

	c.spawnMarketEnrichment(id, symbol, pct, headline)
}

// spawnMarketEnrichment starts the background task that fills in news,
// price history, and the generated narrative, then patches the event. Any
// failing piece degrades to its fallback; nothing is retried.
func (c *controller) spawnMarketEnrichment(id, symbol string, pct float64, demoHeadline string) {
	ctx := c.ctx
	startedAt := time.Now()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		fields := PatchFields{}
		headline := demoHeadline

		if !c.cfg.Demo {
			if c.src.News != nil {
				news := c.src.News.RecentNews(ctx, symbol)
				fields.News = &news
				headline = news.Headline
			}
			if c.src.History != nil {
				if hist := c.src.History.PriceHistory(ctx, symbol); len(hist) > 0 {
					fields.PriceHistory = hist
				}
			}
		}

		narrative, err := c.narrative(ctx, symbol, pct, headline)
		if err != nil {
			metrics.EnrichmentFailures.WithLabelValues("narrative").Inc()
			c.logger.Warn("narrative generation failed", "id", id, "error", err)
			narrative = gemini.FallbackNarrative()
		}
		fields.Title = ptr(narrative.Title)
		fields.Explanation = ptr(narrative.Explanation)

		select {
		case c.enrichCh <- patchRequest{id: id, fields: fields, startedAt: startedAt}:
		case <-ctx.Done():
		}
	}()
}

func (c *controller) narrative(ctx context.Context, symbol string, pct float64, headline string) (gemini.Narrative, error) {
	if c.src.Text == nil {
		return gemini.Narrative{}, gemini.ErrDisabled
	}
	return c.src.Text.MarketNarrative(ctx, symbol, pct, headline)
}

// generateForecast publishes a pending forecast and schedules its
// unconditional auto-resolution.
func (c *controller) generateForecast() {
	pool := c.cfg.symbols()
	if len(pool) == 0 {
		return
	}
	symbol := pool[c.rng.IntN(len(pool))]
	reward := 5 + c.rng.Float64()*10

	c.mu.Lock()
	id := c.newIDLocked()
	ev := model.GameEvent{
		ID:              id,
		Type:            model.EventForecast,
		Lane:            model.LaneNone,
		Symbol:          symbol,
		Status:          model.ForecastPending,
		InitialHeadline: gemini.FallbackForecastHeadlines(symbol).Initial,
		Reward:          reward,
	}
	c.forecasts[id] = &forecastMeta{
		symbol:        symbol,
		creationPrice: c.lastPrice[symbol],
	}
	c.pushLocked(ev)
	c.mu.Unlock()

	metrics.EventsGenerated.WithLabelValues(string(model.EventForecast)).Inc()
	c.notify()

	c.spawnForecastHeadlines(id, symbol)
	c.scheduleResolve(id)
}

// spawnForecastHeadlines generates the forecast's headline set and patches
// the teaser in once it arrives.
func (c *controller) spawnForecastHeadlines(id, symbol string) {
	ctx := c.ctx

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		var headlines gemini.ForecastHeadlines
		var err error
		if c.src.Text == nil {
			err = gemini.ErrDisabled
		} else {
			headlines, err = c.src.Text.ForecastHeadlines(ctx, symbol)
		}
		if err != nil {
			metrics.EnrichmentFailures.WithLabelValues("forecast_headlines").Inc()
			c.logger.Warn("forecast headline generation failed", "id", id, "error", err)
			headlines = gemini.FallbackForecastHeadlines(symbol)
		}

		req := patchRequest{
			id:        id,
			fields:    PatchFields{InitialHeadline: ptr(headlines.Initial)},
			headlines: &headlines,
		}
		select {
		case c.enrichCh <- req:
		case <-ctx.Done():
		}
	}()
}

// scheduleResolve fires the forecast's resolution after the fixed delay.
// The timer is unconditional: it resolves the forecast whether or not the
// player ever locked in a prediction.
func (c *controller) scheduleResolve(id string) {
	ctx := c.ctx
	delay := c.scaled(baseForecastDelay)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		t := time.NewTimer(delay)
		defer t.Stop()

		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}

		select {
		case c.resolveCh <- id:
		case <-ctx.Done():
		}
	}()
}

// resolveForecast flips a forecast to resolved with an outcome derived from
// the price move since creation (random in demo mode).
func (c *controller) resolveForecast(id string) {
	c.mu.Lock()
	meta, ok := c.forecasts[id]
	if !ok {
		// Already evicted from the window.
		c.mu.Unlock()
		return
	}
	delete(c.forecasts, id)

	var outcome model.ForecastOutcome
	if c.cfg.Demo || meta.creationPrice == 0 {
		if c.rng.IntN(2) == 0 {
			outcome = model.OutcomeBullish
		} else {
			outcome = model.OutcomeBearish
		}
	} else {
		if c.lastPrice[meta.symbol] >= meta.creationPrice {
			outcome = model.OutcomeBullish
		} else {
			outcome = model.OutcomeBearish
		}
	}

	headlines := meta.headlines
	if !meta.haveHeadlines {
		headlines = gemini.FallbackForecastHeadlines(meta.symbol)
	}
	resolution := headlines.Bullish
	if outcome == model.OutcomeBearish {
		resolution = headlines.Bearish
	}

	patched := c.patchLocked(id, PatchFields{
		Status:             ptr(model.ForecastResolved),
		Outcome:            ptr(outcome),
		ResolutionHeadline: ptr(resolution),
	})
	c.mu.Unlock()

	if patched {
		c.notify()
	}
}

// generateQuiz pushes a quiz event from the static pool. Every fourth quiz
// draw is mandatory.
func (c *controller) generateQuiz() {
	c.mu.Lock()
	c.quizDraws++
	typ := model.EventQuiz
	if c.quizDraws%mandatoryQuizInterval == 0 {
		typ = model.EventMandatoryQuiz
	}

	q := quizPool[c.rng.IntN(len(quizPool))]
	id := c.newIDLocked()
	c.pushLocked(model.GameEvent{
		ID:       id,
		Type:     typ,
		Lane:     model.LaneNone,
		Question: &q,
	})
	c.mu.Unlock()

	metrics.EventsGenerated.WithLabelValues(string(typ)).Inc()
	c.notify()
}

// generateRecommendation pushes a canned gameplay tip.
func (c *controller) generateRecommendation() {
	c.mu.Lock()
	id := c.newIDLocked()
	c.pushLocked(model.GameEvent{
		ID:   id,
		Type: model.EventRecommendation,
		Lane: model.LaneNone,
		Text: recommendations[c.rng.IntN(len(recommendations))],
	})
	c.mu.Unlock()

	metrics.EventsGenerated.WithLabelValues(string(model.EventRecommendation)).Inc()
	c.notify()
}

// rollGlobalEvent occasionally raises a session-wide shock or streak
// modifier that biases subsequent market-event synthesis until it expires.
func (c *controller) rollGlobalEvent() {
	if _, active := c.GlobalEvent(); active {
		return
	}
	if c.rng.Float64() >= globalChance {
		return
	}

	typ := model.EventShock
	title := "Market Shock"
	desc := "A sudden shock is rattling the market. Opportunities are drying up."
	if c.rng.IntN(2) == 0 {
		typ = model.EventStreak
		title = "Hot Streak"
		desc = "Momentum is carrying the whole market. Traps are rare."
	}

	duration := c.scaled(baseGlobalDuration)

	c.mu.Lock()
	id := c.newIDLocked()
	ev := model.GameEvent{
		ID:          id,
		Type:        typ,
		Lane:        model.LaneNone,
		Title:       title,
		Description: desc,
		Duration:    duration,
		Active:      true,
	}
	g := ev
	c.activeGlobal = &g
	c.pushLocked(ev)
	c.mu.Unlock()

	metrics.EventsGenerated.WithLabelValues(string(typ)).Inc()
	c.notify()

	c.scheduleGlobalExpiry(id, duration)
}

// scheduleGlobalExpiry deactivates a global modifier after its duration.
func (c *controller) scheduleGlobalExpiry(id string, duration time.Duration) {
	ctx := c.ctx

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		t := time.NewTimer(duration)
		defer t.Stop()

		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}

		c.mu.Lock()
		c.patchLocked(id, PatchFields{Active: ptr(false)})
		if c.activeGlobal != nil && c.activeGlobal.ID == id {
			c.activeGlobal = nil
		}
		c.mu.Unlock()
		c.notify()
	}()
}

// syntheticHistory fabricates a 15-point trend-skewed price series for demo
// mode. Caller must hold c.mu (it draws from the shared rng).
func (c *controller) syntheticHistory(isOpportunity bool) []model.PricePoint {
	trend := -1.0
	if isOpportunity {
		trend = 1.0
	}

	history := make([]model.PricePoint, 0, 15)
	price := 100.0
	for i := 0; i < 15; i++ {
		history = append(history, model.PricePoint{Time: i, Price: price})
		volatility := (c.rng.Float64() - 0.4) * 5
		drift := c.rng.Float64() * 2 * trend
		price += drift + volatility
		if price < 10 {
			price = 10
		}
	}
	return history
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
