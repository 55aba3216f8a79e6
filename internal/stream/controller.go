package stream

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/lanerush/engine/internal/feed"
	"github.com/lanerush/engine/internal/gemini"
	"github.com/lanerush/engine/internal/model"
)

// Controller owns the bounded event window and the price-tracking maps, and
// merges the generation timer, the live feed, and enrichment completions
// into them.
type Controller interface {
	// Start begins the run loop and producers.
	Start(ctx context.Context) error

	// Stop shuts down the run loop and cancels in-flight enrichment.
	Stop(ctx context.Context) error

	// SetPlaying suspends or resumes the producers. The existing window is
	// kept either way; in-flight enrichment still lands while suspended.
	SetPlaying(playing bool)

	// Events returns an insertion-ordered snapshot, length <= 15.
	Events() []model.GameEvent

	// Patch merges fields into the event with the given id. A missing id is
	// a silent no-op: the event already scrolled out of the window.
	Patch(id string, fields PatchFields)

	// Predict records a player's forecast prediction. It reports false when
	// the id is not a pending forecast in the window.
	Predict(id string, outcome model.ForecastOutcome) bool

	// MarketPulse returns -1, 0, or 1 from the reference-index price delta.
	MarketPulse() int

	// GlobalEvent returns the active session-wide modifier, if any.
	GlobalEvent() (model.GameEvent, bool)

	// Updates returns a coalescing change-notification channel: one receive
	// means the window or pulse changed at least once since the last.
	Updates() <-chan struct{}
}

// forecastMeta is controller-internal bookkeeping for a live forecast.
type forecastMeta struct {
	symbol        string
	headlines     gemini.ForecastHeadlines
	haveHeadlines bool
	creationPrice float64 // 0 in demo mode
}

// patchRequest is an enrichment completion delivered back to the run loop.
type patchRequest struct {
	id        string
	fields    PatchFields
	headlines *gemini.ForecastHeadlines // forecast headline pair to stash
	startedAt time.Time
}

// controller implements Controller.
type controller struct {
	cfg    Config
	src    Sources
	logger *slog.Logger
	trades <-chan feed.Trade // nil in demo mode

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	enrichCh  chan patchRequest
	resolveCh chan string
	updateCh  chan struct{}

	// rng is used only by the run loop and the tests that drive generation
	// directly; it is not safe for concurrent use.
	rng *rand.Rand

	mu                 sync.Mutex
	events             []model.GameEvent
	lastPrice          map[string]float64
	eventCreationPrice map[string]float64
	forecasts          map[string]*forecastMeta
	activeGlobal       *model.GameEvent
	pulse              int
	refLast            float64
	playing            bool
	nextID             int
	quizDraws          int
}

// New creates a Controller. The trades channel may be nil (demo mode).
func New(cfg Config, src Sources, trades <-chan feed.Trade, logger *slog.Logger) Controller {
	if logger == nil {
		logger = slog.Default()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &controller{
		cfg:                cfg,
		src:                src,
		logger:             logger,
		trades:             trades,
		ctx:                ctx,
		cancel:             cancel,
		enrichCh:           make(chan patchRequest, 64),
		resolveCh:          make(chan string, 16),
		updateCh:           make(chan struct{}, 1),
		rng:                rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		lastPrice:          make(map[string]float64),
		eventCreationPrice: make(map[string]float64),
		forecasts:          make(map[string]*forecastMeta),
		playing:            true,
	}
}

// Start begins the run loop.
func (c *controller) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.run()

	c.logger.Info("stream controller started",
		"demo", c.cfg.Demo,
		"speed", c.cfg.Speed,
		"symbols", len(c.cfg.symbols()),
	)
	return nil
}

// Stop cancels the run loop and all in-flight enrichment tasks.
func (c *controller) Stop(ctx context.Context) error {
	c.logger.Info("stopping stream controller")

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("stream controller stopped")
	case <-ctx.Done():
		c.logger.Warn("stream controller stop timed out")
	}

	return nil
}

// SetPlaying suspends or resumes the producers.
func (c *controller) SetPlaying(playing bool) {
	c.mu.Lock()
	c.playing = playing
	c.mu.Unlock()
}

// Events returns an insertion-ordered snapshot of the window.
func (c *controller) Events() []model.GameEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.GameEvent, len(c.events))
	copy(out, c.events)
	return out
}

// Patch merges fields into the event with the given id, silently ignoring
// ids that already left the window.
func (c *controller) Patch(id string, fields PatchFields) {
	c.mu.Lock()
	patched := c.patchLocked(id, fields)
	c.mu.Unlock()

	if patched {
		c.notify()
	}
}

func (c *controller) patchLocked(id string, fields PatchFields) bool {
	for i := range c.events {
		if c.events[i].ID == id {
			fields.apply(&c.events[i])
			return true
		}
	}
	if c.activeGlobal != nil && c.activeGlobal.ID == id {
		fields.apply(c.activeGlobal)
		return true
	}
	return false
}

// Predict records a forecast prediction, moving it pending -> predicted.
func (c *controller) Predict(id string, outcome model.ForecastOutcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.events {
		e := &c.events[i]
		if e.ID == id && e.Type == model.EventForecast && e.Status == model.ForecastPending {
			e.Status = model.ForecastPredicted
			e.Prediction = outcome
			return true
		}
	}
	return false
}

// MarketPulse returns the current reference-index sentiment.
func (c *controller) MarketPulse() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pulse
}

// GlobalEvent returns the active global modifier, if any.
func (c *controller) GlobalEvent() (model.GameEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeGlobal == nil || !c.activeGlobal.Active {
		return model.GameEvent{}, false
	}
	return *c.activeGlobal, true
}

// Updates returns the change-notification channel.
func (c *controller) Updates() <-chan struct{} {
	return c.updateCh
}

// notify signals consumers that the window changed. Coalescing: a pending
// signal swallows new ones.
func (c *controller) notify() {
	select {
	case c.updateCh <- struct{}{}:
	default:
	}
}

// scaled divides a base duration by the session speed.
func (c *controller) scaled(d time.Duration) time.Duration {
	return time.Duration(float64(d) / c.cfg.Speed)
}

// run is the controller's single consumer loop: generation ticks, feed
// ticks, enrichment completions, and forecast resolutions all land here.
func (c *controller) run() {
	defer c.wg.Done()

	tick := time.NewTicker(c.scaled(baseTick))
	defer tick.Stop()

	globalTick := time.NewTicker(c.scaled(baseGlobalTick))
	defer globalTick.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return

		case <-tick.C:
			if c.isPlaying() {
				c.generate()
			}

		case <-globalTick.C:
			if c.isPlaying() {
				c.rollGlobalEvent()
			}

		case trade, ok := <-c.trades:
			if !ok {
				c.trades = nil
				continue
			}
			c.handleTrade(trade)

		case req := <-c.enrichCh:
			c.applyEnrichment(req)

		case id := <-c.resolveCh:
			c.resolveForecast(id)
		}
	}
}

func (c *controller) isPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// handleTrade records a live tick and refreshes the market pulse when the
// reference index moves.
func (c *controller) handleTrade(t feed.Trade) {
	c.mu.Lock()
	c.lastPrice[t.Symbol] = t.Price

	if t.Symbol == c.cfg.ReferenceIndex {
		switch {
		case c.refLast == 0 || t.Price == c.refLast:
			c.pulse = 0
		case t.Price > c.refLast:
			c.pulse = 1
		default:
			c.pulse = -1
		}
		c.refLast = t.Price
	}
	c.mu.Unlock()
}

// push appends an event to the window, evicting the oldest entry by
// insertion when the bound is exceeded. Caller must hold c.mu.
func (c *controller) pushLocked(e model.GameEvent) {
	c.events = append(c.events, e)
	if len(c.events) > maxEvents {
		evicted := c.events[0]
		c.events = c.events[1:]
		delete(c.forecasts, evicted.ID)
	}
}

// newID assigns the next process-unique event id. Caller must hold c.mu.
func (c *controller) newIDLocked() string {
	id := fmt.Sprintf("event-%d", c.nextID)
	c.nextID++
	return id
}

// applyEnrichment lands an enrichment completion in the window. The id may
// already be gone; that race is accepted.
func (c *controller) applyEnrichment(req patchRequest) {
	c.mu.Lock()
	if req.headlines != nil {
		if meta, ok := c.forecasts[req.id]; ok {
			meta.headlines = *req.headlines
			meta.haveHeadlines = true
		}
	}
	patched := c.patchLocked(req.id, req.fields)
	c.mu.Unlock()

	if patched {
		if !req.startedAt.IsZero() {
			observeEnrichment(time.Since(req.startedAt))
		}
		c.notify()
	}
}
