package game

import (
	"context"
	"sync"
	"testing"

	"github.com/lanerush/engine/internal/model"
	"github.com/lanerush/engine/internal/stream"
)

// stubController is an in-memory stream.Controller for orchestrator tests.
type stubController struct {
	mu      sync.Mutex
	events  []model.GameEvent
	playing bool
	updates chan struct{}
}

func newStubController(events ...model.GameEvent) *stubController {
	return &stubController{
		events:  events,
		playing: true,
		updates: make(chan struct{}, 1),
	}
}

func (s *stubController) Start(context.Context) error { return nil }
func (s *stubController) Stop(context.Context) error  { return nil }

func (s *stubController) SetPlaying(playing bool) {
	s.mu.Lock()
	s.playing = playing
	s.mu.Unlock()
}

func (s *stubController) isPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *stubController) Events() []model.GameEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.GameEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *stubController) Patch(id string, fields stream.PatchFields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			if fields.Faded != nil {
				s.events[i].Faded = *fields.Faded
			}
			return
		}
	}
}

func (s *stubController) Predict(id string, outcome model.ForecastOutcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		e := &s.events[i]
		if e.ID == id && e.Type == model.EventForecast && e.Status == model.ForecastPending {
			e.Status = model.ForecastPredicted
			e.Prediction = outcome
			return true
		}
	}
	return false
}

func (s *stubController) MarketPulse() int { return 0 }

func (s *stubController) GlobalEvent() (model.GameEvent, bool) { return model.GameEvent{}, false }

func (s *stubController) Updates() <-chan struct{} { return s.updates }

func newTestGame(ctrl *stubController) *orchestrator {
	return New(ctrl, nil, nil, nil).(*orchestrator)
}

func TestCloseDetailExecuteOpportunity(t *testing.T) {
	ctrl := newStubController(model.NewMarketEvent("event-0", "NVDA", model.EventOpportunity, 12.5, 1))
	g := newTestGame(ctrl)

	if _, err := g.OpenDetail(context.Background(), "event-0"); err != nil {
		t.Fatalf("OpenDetail: %v", err)
	}
	if ctrl.isPlaying() {
		t.Error("stream still playing with detail open")
	}

	if err := g.CloseDetail(true); err != nil {
		t.Fatalf("CloseDetail: %v", err)
	}

	snap := g.Snapshot()
	if snap.Stats.PnL != 12.5 {
		t.Errorf("PnL = %v, want 12.5", snap.Stats.PnL)
	}
	if snap.Stats.Streak != 1 {
		t.Errorf("Streak = %d, want 1", snap.Stats.Streak)
	}
	if snap.Stats.Gemin != 11 {
		t.Errorf("Gemin = %d, want 11", snap.Stats.Gemin)
	}
	if snap.State != "running" {
		t.Errorf("state = %s", snap.State)
	}
	if !ctrl.isPlaying() {
		t.Error("stream not resumed after close")
	}
	if !ctrl.Events()[0].Faded {
		t.Error("executed event not faded")
	}
}

func TestCloseDetailExecuteTrap(t *testing.T) {
	ctrl := newStubController(model.NewMarketEvent("event-0", "TSLA", model.EventTrap, 8.0, 0))
	g := newTestGame(ctrl)
	g.stats.Streak = 3

	if _, err := g.OpenDetail(context.Background(), "event-0"); err != nil {
		t.Fatalf("OpenDetail: %v", err)
	}
	if err := g.CloseDetail(true); err != nil {
		t.Fatalf("CloseDetail: %v", err)
	}

	snap := g.Snapshot()
	if snap.Stats.PnL != -8.0 {
		t.Errorf("PnL = %v, want -8.0", snap.Stats.PnL)
	}
	if snap.Stats.Streak != 0 {
		t.Errorf("Streak = %d, want 0 after trap", snap.Stats.Streak)
	}
	if snap.Stats.Gemin != 10 {
		t.Errorf("Gemin = %d, want unchanged", snap.Stats.Gemin)
	}
}

func TestCloseDetailDismissLeavesStats(t *testing.T) {
	ctrl := newStubController(model.NewMarketEvent("event-0", "NVDA", model.EventOpportunity, 12.5, 1))
	g := newTestGame(ctrl)

	if _, err := g.OpenDetail(context.Background(), "event-0"); err != nil {
		t.Fatalf("OpenDetail: %v", err)
	}
	if err := g.CloseDetail(false); err != nil {
		t.Fatalf("CloseDetail: %v", err)
	}

	snap := g.Snapshot()
	if snap.Stats.PnL != 0 || snap.Stats.Streak != 0 || snap.Stats.Gemin != 10 {
		t.Errorf("stats changed on dismiss: %+v", snap.Stats)
	}
	if ctrl.Events()[0].Faded {
		t.Error("dismissed event was faded")
	}
}

func TestOpenDetailRejectsWrongTargets(t *testing.T) {
	ctrl := newStubController(
		model.GameEvent{ID: "event-0", Type: model.EventRecommendation},
	)
	g := newTestGame(ctrl)

	if _, err := g.OpenDetail(context.Background(), "event-0"); err != ErrEventNotFound {
		t.Errorf("non-lane event: err = %v, want ErrEventNotFound", err)
	}
	if _, err := g.OpenDetail(context.Background(), "event-99"); err != ErrEventNotFound {
		t.Errorf("missing event: err = %v, want ErrEventNotFound", err)
	}
	if err := g.CloseDetail(true); err != ErrNoModal {
		t.Errorf("close with nothing open: err = %v, want ErrNoModal", err)
	}
}

func TestQuizRewards(t *testing.T) {
	q := model.QuizQuestion{Question: "q", Options: []string{"a", "b"}, CorrectAnswerIndex: 0}

	t.Run("correct", func(t *testing.T) {
		ctrl := newStubController(model.GameEvent{ID: "event-0", Type: model.EventQuiz, Question: &q})
		g := newTestGame(ctrl)

		if _, err := g.OpenQuiz("event-0"); err != nil {
			t.Fatalf("OpenQuiz: %v", err)
		}
		if ctrl.isPlaying() {
			t.Error("stream still playing during quiz")
		}
		if err := g.CloseQuiz(true); err != nil {
			t.Fatalf("CloseQuiz: %v", err)
		}

		snap := g.Snapshot()
		if snap.Stats.Gemin != 20 {
			t.Errorf("Gemin = %d, want 20", snap.Stats.Gemin)
		}
		if snap.Stats.Streak != 1 {
			t.Errorf("Streak = %d, want 1", snap.Stats.Streak)
		}
		if len(snap.CompletedQuizIDs) != 1 || snap.CompletedQuizIDs[0] != "event-0" {
			t.Errorf("CompletedQuizIDs = %v", snap.CompletedQuizIDs)
		}
	})

	t.Run("wrong", func(t *testing.T) {
		ctrl := newStubController(model.GameEvent{ID: "event-0", Type: model.EventQuiz, Question: &q})
		g := newTestGame(ctrl)
		g.stats.Streak = 5

		if _, err := g.OpenQuiz("event-0"); err != nil {
			t.Fatalf("OpenQuiz: %v", err)
		}
		if err := g.CloseQuiz(false); err != nil {
			t.Fatalf("CloseQuiz: %v", err)
		}

		snap := g.Snapshot()
		if snap.Stats.Gemin != 10 {
			t.Errorf("Gemin = %d, want unchanged", snap.Stats.Gemin)
		}
		if snap.Stats.Streak != 0 {
			t.Errorf("Streak = %d, want 0", snap.Stats.Streak)
		}
	})
}

func TestCompletedQuizCannotReopen(t *testing.T) {
	q := model.QuizQuestion{Question: "q", Options: []string{"a", "b"}, CorrectAnswerIndex: 0}
	ctrl := newStubController(model.GameEvent{ID: "event-0", Type: model.EventQuiz, Question: &q})
	g := newTestGame(ctrl)

	if _, err := g.OpenQuiz("event-0"); err != nil {
		t.Fatalf("OpenQuiz: %v", err)
	}
	if err := g.CloseQuiz(true); err != nil {
		t.Fatalf("CloseQuiz: %v", err)
	}
	if _, err := g.OpenQuiz("event-0"); err != ErrEventNotFound {
		t.Errorf("reopened completed quiz: err = %v", err)
	}
}

func TestActionQuizFallsBack(t *testing.T) {
	ctrl := newStubController()
	g := newTestGame(ctrl) // nil text generator

	view, err := g.OpenActionQuiz(context.Background())
	if err != nil {
		t.Fatalf("OpenActionQuiz: %v", err)
	}
	if view.Question.Question == "" || len(view.Question.Options) == 0 {
		t.Errorf("fallback question empty: %+v", view.Question)
	}
	if view.EventID != "" {
		t.Errorf("action quiz has event id %q", view.EventID)
	}
	if err := g.CloseQuiz(true); err != nil {
		t.Fatalf("CloseQuiz: %v", err)
	}
	if len(g.Snapshot().CompletedQuizIDs) != 0 {
		t.Error("action quiz recorded a completed event id")
	}
}

func TestMandatoryQuizForcesPause(t *testing.T) {
	q := model.QuizQuestion{Question: "q", Options: []string{"a", "b"}, CorrectAnswerIndex: 0}
	ctrl := newStubController(model.GameEvent{ID: "event-0", Type: model.EventMandatoryQuiz, Question: &q})
	g := newTestGame(ctrl)

	g.scanWindow()

	snap := g.Snapshot()
	if snap.State != "paused_for_quiz" {
		t.Fatalf("state = %s, want paused_for_quiz", snap.State)
	}
	if snap.ActiveQuiz == nil || !snap.ActiveQuiz.Mandatory {
		t.Fatalf("active quiz = %+v", snap.ActiveQuiz)
	}
	if ctrl.isPlaying() {
		t.Error("stream still playing under mandatory quiz")
	}

	// Answering it clears the forced state and does not re-fire.
	if err := g.CloseQuiz(true); err != nil {
		t.Fatalf("CloseQuiz: %v", err)
	}
	g.scanWindow()
	if got := g.Snapshot().State; got != "running" {
		t.Errorf("state after answer = %s", got)
	}
}

func TestMandatoryQuizQueuedBehindDetail(t *testing.T) {
	q := model.QuizQuestion{Question: "q", Options: []string{"a", "b"}, CorrectAnswerIndex: 0}
	ctrl := newStubController(model.NewMarketEvent("event-0", "NVDA", model.EventOpportunity, 10, 1))
	g := newTestGame(ctrl)

	if _, err := g.OpenDetail(context.Background(), "event-0"); err != nil {
		t.Fatalf("OpenDetail: %v", err)
	}

	// The mandatory quiz arrives while the detail modal is open.
	ctrl.mu.Lock()
	ctrl.events = append(ctrl.events, model.GameEvent{ID: "event-1", Type: model.EventMandatoryQuiz, Question: &q})
	ctrl.mu.Unlock()
	g.scanWindow()

	if got := g.Snapshot().State; got != "paused_for_detail" {
		t.Fatalf("mandatory quiz preempted open detail: state = %s", got)
	}

	// Closing the detail fires the queued quiz instead of resuming.
	if err := g.CloseDetail(false); err != nil {
		t.Fatalf("CloseDetail: %v", err)
	}
	snap := g.Snapshot()
	if snap.State != "paused_for_quiz" {
		t.Fatalf("state after detail close = %s, want paused_for_quiz", snap.State)
	}
	if snap.ActiveQuiz == nil || snap.ActiveQuiz.EventID != "event-1" {
		t.Errorf("active quiz = %+v", snap.ActiveQuiz)
	}
	if ctrl.isPlaying() {
		t.Error("stream resumed with queued quiz pending")
	}
}

func TestForecastSettlement(t *testing.T) {
	tests := []struct {
		name       string
		prediction model.ForecastOutcome
		outcome    model.ForecastOutcome
		wantGemin  int
	}{
		{name: "correct prediction pays reward", prediction: model.OutcomeBullish, outcome: model.OutcomeBullish, wantGemin: 17},
		{name: "wrong prediction pays nothing", prediction: model.OutcomeBearish, outcome: model.OutcomeBullish, wantGemin: 10},
		{name: "no prediction pays nothing", prediction: "", outcome: model.OutcomeBearish, wantGemin: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := newStubController(model.GameEvent{
				ID:         "event-0",
				Type:       model.EventForecast,
				Status:     model.ForecastResolved,
				Prediction: tt.prediction,
				Outcome:    tt.outcome,
				Reward:     7,
			})
			g := newTestGame(ctrl)

			g.scanWindow()
			g.scanWindow() // settles once

			if got := g.Snapshot().Stats.Gemin; got != tt.wantGemin {
				t.Errorf("Gemin = %d, want %d", got, tt.wantGemin)
			}
		})
	}
}

func TestInfoCardBonus(t *testing.T) {
	g := newTestGame(newStubController())

	card, err := g.OpenInfo(context.Background(), "diversification")
	if err != nil {
		t.Fatalf("OpenInfo: %v", err)
	}
	if card.Title == "" {
		t.Error("fallback info card empty")
	}

	if err := g.CloseInfo(); err != nil {
		t.Fatalf("CloseInfo: %v", err)
	}
	if got := g.Snapshot().Stats.Gemin; got != 12 {
		t.Errorf("Gemin = %d, want 12", got)
	}
	if err := g.CloseInfo(); err != ErrNoModal {
		t.Errorf("double close: err = %v", err)
	}
}

func TestPredictDelegates(t *testing.T) {
	ctrl := newStubController(model.GameEvent{ID: "event-0", Type: model.EventForecast, Status: model.ForecastPending})
	g := newTestGame(ctrl)

	if err := g.Predict("event-0", model.OutcomeBullish); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if err := g.Predict("event-0", model.OutcomeBullish); err != ErrEventNotFound {
		t.Errorf("second predict: err = %v", err)
	}
}

func TestDismissTakeaway(t *testing.T) {
	g := newTestGame(newStubController())

	g.mu.Lock()
	g.takeaways = []model.KeyTakeaway{{ID: "t1", Text: "lesson"}, {ID: "t2", Text: "other"}}
	g.mu.Unlock()

	g.DismissTakeaway("t1")

	snap := g.Snapshot()
	if len(snap.Takeaways) != 1 || snap.Takeaways[0].ID != "t2" {
		t.Errorf("takeaways = %+v", snap.Takeaways)
	}
}
