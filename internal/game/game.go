package game

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lanerush/engine/internal/gemini"
	"github.com/lanerush/engine/internal/metrics"
	"github.com/lanerush/engine/internal/model"
	"github.com/lanerush/engine/internal/stream"
)

// actionQuizTopic seeds the generated action-center quiz question.
const actionQuizTopic = "a fundamental investing or trading concept"

// Game is the session orchestrator consumed by the gateway.
type Game interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// Snapshot returns the full client-visible session state.
	Snapshot() Snapshot

	// Updates returns a coalescing change-notification channel.
	Updates() <-chan struct{}

	OpenDetail(ctx context.Context, eventID string) (DetailView, error)
	CloseDetail(didExecute bool) error

	OpenQuiz(eventID string) (QuizView, error)
	OpenActionQuiz(ctx context.Context) (QuizView, error)
	CloseQuiz(correct bool) error

	OpenInfo(ctx context.Context, topic string) (model.InfoCard, error)
	CloseInfo() error

	Predict(eventID string, outcome model.ForecastOutcome) error
	DismissTakeaway(id string)
}

type orchestrator struct {
	ctrl   stream.Controller
	text   TextGenerator // nil means every modal degrades to its fallback
	rec    ActionRecorder
	logger *slog.Logger

	sessionID string

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	updateCh chan struct{}

	mu               sync.Mutex
	state            State
	stats            model.PlayerStats
	completedQuizIDs map[string]bool
	handledForecasts map[string]bool
	takeaways        []model.KeyTakeaway
	activeDetail     *DetailView
	activeQuiz       *QuizView
	activeInfo       *model.InfoCard
	pendingMandatory *model.GameEvent
}

// New creates a Game over a stream controller. text and rec may be nil.
func New(ctrl stream.Controller, text TextGenerator, rec ActionRecorder, logger *slog.Logger) Game {
	if logger == nil {
		logger = slog.Default()
	}
	return &orchestrator{
		ctrl:             ctrl,
		text:             text,
		rec:              rec,
		logger:           logger,
		sessionID:        uuid.NewString(),
		updateCh:         make(chan struct{}, 1),
		state:            StateRunning,
		stats:            model.NewPlayerStats(),
		completedQuizIDs: make(map[string]bool),
		handledForecasts: make(map[string]bool),
	}
}

// Start begins watching the stream for mandatory quizzes and forecast
// resolutions.
func (g *orchestrator) Start(ctx context.Context) error {
	g.ctx, g.cancel = context.WithCancel(ctx)

	g.wg.Add(1)
	go g.watch()

	g.logger.Info("game orchestrator started", "session_id", g.sessionID)
	return nil
}

// Stop cancels the watch loop and waits for background tasks.
func (g *orchestrator) Stop(ctx context.Context) error {
	if g.cancel != nil {
		g.cancel()
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.logger.Info("game orchestrator stopped", "session_id", g.sessionID)
	case <-ctx.Done():
		g.logger.Warn("game orchestrator stop timed out")
	}
	return nil
}

// watch reacts to stream changes: forcing mandatory quizzes, paying out
// resolved forecasts, and forwarding change notifications to the gateway.
func (g *orchestrator) watch() {
	defer g.wg.Done()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-g.ctrl.Updates():
			g.scanWindow()
			g.notify()
		}
	}
}

// scanWindow applies the window-driven transitions that do not come from a
// player operation.
func (g *orchestrator) scanWindow() {
	events := g.ctrl.Events()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.settleForecastsLocked(events)
	g.checkMandatoryLocked(events)
}

// settleForecastsLocked pays out resolved forecasts exactly once. A correct
// prediction pays the forecast's reward into gemin; a wrong or absent
// prediction pays nothing.
func (g *orchestrator) settleForecastsLocked(events []model.GameEvent) {
	for _, e := range events {
		if e.Type != model.EventForecast || e.Status != model.ForecastResolved {
			continue
		}
		if g.handledForecasts[e.ID] {
			continue
		}
		g.handledForecasts[e.ID] = true

		if e.Prediction == "" {
			continue
		}
		correct := e.Prediction == e.Outcome
		if correct {
			g.stats.Gemin += int(math.Round(e.Reward))
		}
		g.record(model.PlayerAction{
			Kind:      model.ActionForecast,
			EventID:   e.ID,
			EventType: e.Type,
			Symbol:    e.Symbol,
			Value:     e.Reward,
			Correct:   correct,
		})
		g.logger.Info("forecast settled",
			"event_id", e.ID,
			"prediction", e.Prediction,
			"outcome", e.Outcome,
			"correct", correct,
		)
	}
}

// checkMandatoryLocked forces the quiz modal for an unanswered mandatory
// quiz, or queues it while a detail modal is open.
func (g *orchestrator) checkMandatoryLocked(events []model.GameEvent) {
	for i := range events {
		e := events[i]
		if e.Type != model.EventMandatoryQuiz || g.completedQuizIDs[e.ID] {
			continue
		}

		switch g.state {
		case StateRunning:
			g.openQuizLocked(e)
		case StatePausedForDetail:
			if g.pendingMandatory == nil {
				g.pendingMandatory = &e
				g.logger.Info("mandatory quiz queued behind detail modal", "event_id", e.ID)
			}
		case StatePausedForQuiz:
			// Already quizzing; the next scan picks this one up.
		}
		return
	}
}

// openQuizLocked enters PausedForQuiz for a window quiz event.
func (g *orchestrator) openQuizLocked(e model.GameEvent) {
	q := gemini.FallbackQuizQuestion()
	if e.Question != nil {
		q = *e.Question
	}
	g.activeQuiz = &QuizView{
		EventID:   e.ID,
		Question:  q,
		Mandatory: e.Type == model.EventMandatoryQuiz,
	}
	g.state = StatePausedForQuiz
	g.pendingMandatory = nil
	g.ctrl.SetPlaying(false)
	g.logger.Info("quiz opened", "event_id", e.ID, "mandatory", g.activeQuiz.Mandatory)
}

// OpenDetail pauses the session and fetches the chart commentary for a lane
// event. The commentary is fetched once, on entry.
func (g *orchestrator) OpenDetail(ctx context.Context, eventID string) (DetailView, error) {
	g.mu.Lock()
	if g.state != StateRunning {
		g.mu.Unlock()
		return DetailView{}, ErrNotRunning
	}

	var target *model.GameEvent
	for _, e := range g.ctrl.Events() {
		if e.ID == eventID && e.IsLaneEvent() {
			ev := e
			target = &ev
			break
		}
	}
	if target == nil {
		g.mu.Unlock()
		return DetailView{}, ErrEventNotFound
	}

	g.state = StatePausedForDetail
	g.ctrl.SetPlaying(false)
	g.mu.Unlock()

	analysis, err := g.chartAnalysis(ctx, *target)
	if err != nil {
		g.logger.Warn("chart analysis failed", "event_id", eventID, "error", err)
		analysis = gemini.FallbackChartAnalysis()
	}

	view := DetailView{Event: *target, Analysis: analysis}

	g.mu.Lock()
	g.activeDetail = &view
	g.mu.Unlock()

	g.notify()
	return view, nil
}

func (g *orchestrator) chartAnalysis(ctx context.Context, ev model.GameEvent) (model.ChartAnalysis, error) {
	if g.text == nil {
		return model.ChartAnalysis{}, gemini.ErrDisabled
	}
	return g.text.ChartAnalysis(ctx, ev)
}

// CloseDetail resolves the detail modal. Executing folds the event's value
// into PnL: an opportunity extends the streak and earns a gem, a trap resets
// the streak. A queued mandatory quiz fires instead of resuming.
func (g *orchestrator) CloseDetail(didExecute bool) error {
	g.mu.Lock()
	if g.state != StatePausedForDetail || g.activeDetail == nil {
		g.mu.Unlock()
		return ErrNoModal
	}

	ev := g.activeDetail.Event
	g.activeDetail = nil

	if didExecute {
		g.stats.PnL += ev.Value
		if ev.Type == model.EventOpportunity {
			g.stats.Streak++
			g.stats.Gemin++
		} else {
			g.stats.Streak = 0
		}
		metrics.TradesExecuted.WithLabelValues(string(ev.Type)).Inc()
		g.record(model.PlayerAction{
			Kind:      model.ActionTrade,
			EventID:   ev.ID,
			EventType: ev.Type,
			Symbol:    ev.Symbol,
			Value:     ev.Value,
		})
		g.logger.Info("trade executed",
			"event_id", ev.ID,
			"type", ev.Type,
			"value", ev.Value,
			"pnl", g.stats.PnL,
		)
	}

	if g.pendingMandatory != nil {
		pending := *g.pendingMandatory
		g.state = StateRunning
		g.openQuizLocked(pending)
		g.mu.Unlock()
	} else {
		g.state = StateRunning
		g.ctrl.SetPlaying(true)
		g.mu.Unlock()
	}

	if didExecute {
		faded := true
		g.ctrl.Patch(ev.ID, stream.PatchFields{Faded: &faded})
	}

	g.notify()
	return nil
}

// OpenQuiz pauses the session for a quiz event already in the window.
func (g *orchestrator) OpenQuiz(eventID string) (QuizView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateRunning {
		return QuizView{}, ErrNotRunning
	}
	for _, e := range g.ctrl.Events() {
		if e.ID == eventID && e.IsQuizEvent() && !g.completedQuizIDs[e.ID] {
			g.openQuizLocked(e)
			return *g.activeQuiz, nil
		}
	}
	return QuizView{}, ErrEventNotFound
}

// OpenActionQuiz pauses the session for a freshly generated question. A
// generation failure degrades to the hardcoded fallback question.
func (g *orchestrator) OpenActionQuiz(ctx context.Context) (QuizView, error) {
	g.mu.Lock()
	if g.state != StateRunning {
		g.mu.Unlock()
		return QuizView{}, ErrNotRunning
	}
	g.state = StatePausedForQuiz
	g.ctrl.SetPlaying(false)
	g.mu.Unlock()

	q := gemini.FallbackQuizQuestion()
	if g.text != nil {
		generated, err := g.text.QuizQuestion(ctx, actionQuizTopic)
		if err != nil {
			g.logger.Warn("quiz generation failed, using fallback", "error", err)
		} else {
			q = generated
		}
	}

	view := QuizView{Question: q}

	g.mu.Lock()
	g.activeQuiz = &view
	g.mu.Unlock()

	g.notify()
	return view, nil
}

// CloseQuiz resolves the quiz modal: a correct answer pays 10 gems and
// extends the streak, a wrong one resets it. The triggering window event, if
// any, is marked completed, and a key takeaway is generated in the
// background.
func (g *orchestrator) CloseQuiz(correct bool) error {
	g.mu.Lock()
	if g.state != StatePausedForQuiz || g.activeQuiz == nil {
		g.mu.Unlock()
		return ErrNoModal
	}

	quiz := *g.activeQuiz
	g.activeQuiz = nil

	if quiz.EventID != "" {
		g.completedQuizIDs[quiz.EventID] = true
	}
	if correct {
		g.stats.Gemin += 10
		g.stats.Streak++
	} else {
		g.stats.Streak = 0
	}

	quizType := model.EventQuiz
	if quiz.Mandatory {
		quizType = model.EventMandatoryQuiz
	}
	g.record(model.PlayerAction{
		Kind:      model.ActionQuiz,
		EventID:   quiz.EventID,
		EventType: quizType,
		Correct:   correct,
	})

	g.state = StateRunning
	g.ctrl.SetPlaying(true)
	g.mu.Unlock()

	outcome := "wrong"
	if correct {
		outcome = "correct"
	}
	metrics.QuizOutcomes.WithLabelValues(outcome).Inc()
	g.logger.Info("quiz closed", "event_id", quiz.EventID, "correct", correct)

	g.spawnTakeaway(quiz.Question)
	g.notify()
	return nil
}

// spawnTakeaway generates the post-quiz lesson in the background. Failures
// drop the takeaway silently; there is no fallback lesson.
func (g *orchestrator) spawnTakeaway(q model.QuizQuestion) {
	if g.text == nil || g.ctx == nil {
		return
	}
	ctx := g.ctx

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		text, err := g.text.KeyTakeaway(ctx, q)
		if err != nil {
			g.logger.Debug("takeaway generation failed", "error", err)
			return
		}

		g.mu.Lock()
		g.takeaways = append(g.takeaways, model.KeyTakeaway{
			ID:   uuid.NewString(),
			Text: text,
		})
		g.mu.Unlock()
		g.notify()
	}()
}

// OpenInfo fetches an educational info card. Info cards do not pause the
// session.
func (g *orchestrator) OpenInfo(ctx context.Context, topic string) (model.InfoCard, error) {
	card := gemini.FallbackInfoCard()
	if g.text != nil {
		generated, err := g.text.InfoCard(ctx, topic)
		if err != nil {
			g.logger.Warn("info card generation failed, using fallback", "topic", topic, "error", err)
		} else {
			card = generated
		}
	}

	g.mu.Lock()
	g.activeInfo = &card
	g.mu.Unlock()

	g.notify()
	return card, nil
}

// CloseInfo dismisses the info card and awards the reading bonus.
func (g *orchestrator) CloseInfo() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.activeInfo == nil {
		return ErrNoModal
	}
	g.activeInfo = nil
	g.stats.Gemin += 2
	g.notifyLocked()
	return nil
}

// Predict records a forecast prediction through the stream controller.
func (g *orchestrator) Predict(eventID string, outcome model.ForecastOutcome) error {
	if !g.ctrl.Predict(eventID, outcome) {
		return ErrEventNotFound
	}
	g.notify()
	return nil
}

// DismissTakeaway removes a takeaway from the notification list.
func (g *orchestrator) DismissTakeaway(id string) {
	g.mu.Lock()
	for i, t := range g.takeaways {
		if t.ID == id {
			g.takeaways = append(g.takeaways[:i], g.takeaways[i+1:]...)
			break
		}
	}
	g.mu.Unlock()
	g.notify()
}

// Snapshot assembles the full client-visible session state.
func (g *orchestrator) Snapshot() Snapshot {
	events := g.ctrl.Events()
	pulse := g.ctrl.MarketPulse()

	var global *model.GameEvent
	if ge, ok := g.ctrl.GlobalEvent(); ok {
		global = &ge
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	completed := make([]string, 0, len(g.completedQuizIDs))
	for id := range g.completedQuizIDs {
		completed = append(completed, id)
	}

	takeaways := make([]model.KeyTakeaway, len(g.takeaways))
	copy(takeaways, g.takeaways)

	return Snapshot{
		SessionID:        g.sessionID,
		State:            g.state.String(),
		Events:           events,
		Stats:            g.stats,
		MarketPulse:      pulse,
		GlobalEvent:      global,
		ActiveDetail:     g.activeDetail,
		ActiveQuiz:       g.activeQuiz,
		ActiveInfo:       g.activeInfo,
		Takeaways:        takeaways,
		CompletedQuizIDs: completed,
	}
}

// Updates returns the change-notification channel.
func (g *orchestrator) Updates() <-chan struct{} {
	return g.updateCh
}

func (g *orchestrator) notify() {
	select {
	case g.updateCh <- struct{}{}:
	default:
	}
}

// notifyLocked is notify for callers already holding g.mu. The channel send
// never blocks, so holding the mutex is safe.
func (g *orchestrator) notifyLocked() {
	select {
	case g.updateCh <- struct{}{}:
	default:
	}
}

// record hands an action to the recorder, filling the envelope fields.
func (g *orchestrator) record(a model.PlayerAction) {
	if g.rec == nil {
		return
	}
	a.ID = uuid.NewString()
	a.SessionID = g.sessionID
	a.OccurredAt = time.Now().UTC()
	g.rec.RecordAction(a)
}
