package stream

import (
	"strings"
	"testing"

	"github.com/lanerush/engine/internal/model"
)

func TestDemoGenerationDistribution(t *testing.T) {
	c := newTestController(t, Config{Demo: true, Seed: 7})

	const draws = 1000
	counts := map[model.EventType]int{}
	lastID := -1

	for i := 0; i < draws; i++ {
		c.generate()

		// Every demo draw pushes exactly one event; it is the newest entry.
		c.mu.Lock()
		if c.nextID != lastID+2 && lastID != -1 {
			c.mu.Unlock()
			t.Fatalf("draw %d pushed %d events", i, c.nextID-lastID-1)
		}
		lastID = c.nextID - 1
		newest := c.events[len(c.events)-1]
		c.mu.Unlock()

		counts[newest.Type]++
	}

	market := counts[model.EventOpportunity] + counts[model.EventTrap]
	quizzes := counts[model.EventQuiz] + counts[model.EventMandatoryQuiz]
	forecast := counts[model.EventForecast]
	recs := counts[model.EventRecommendation]

	assertFraction(t, "market", market, draws, 0.50)
	assertFraction(t, "forecast", forecast, draws, 0.25)
	assertFraction(t, "quiz", quizzes, draws, 0.125)
	assertFraction(t, "recommendation", recs, draws, 0.125)
}

func assertFraction(t *testing.T, name string, n, total int, want float64) {
	t.Helper()
	got := float64(n) / float64(total)
	if got < want-0.05 || got > want+0.05 {
		t.Errorf("%s fraction = %.3f, want ~%.3f", name, got, want)
	}
}

func TestMarketEventValueAndSign(t *testing.T) {
	c := newTestController(t, Config{Demo: true, Seed: 3})

	for i := 0; i < 200; i++ {
		c.generateMarketEvent()
	}

	for _, e := range c.Events() {
		if !e.IsLaneEvent() {
			continue
		}
		switch e.Type {
		case model.EventOpportunity:
			if e.Value < valueBaseline {
				t.Errorf("opportunity value %v below baseline", e.Value)
			}
		case model.EventTrap:
			if e.Value > -valueBaseline {
				t.Errorf("trap value %v above negative baseline", e.Value)
			}
		}
		if e.Lane < 0 || e.Lane > 2 {
			t.Errorf("lane out of range: %d", e.Lane)
		}
		if e.Title == "" || e.Explanation == "" {
			t.Error("provisional narrative missing")
		}
	}
}

func TestShockSuppressesOpportunities(t *testing.T) {
	c := newTestController(t, Config{Demo: true, Seed: 11})

	c.mu.Lock()
	c.activeGlobal = &model.GameEvent{ID: "event-g", Type: model.EventShock, Active: true}
	c.mu.Unlock()

	for i := 0; i < 200; i++ {
		c.generateMarketEvent()
	}

	for _, e := range c.Events() {
		if e.Type == model.EventOpportunity {
			t.Fatal("opportunity generated during shock")
		}
	}
}

func TestStreakSuppressesTraps(t *testing.T) {
	c := newTestController(t, Config{Demo: true, Seed: 11})

	c.mu.Lock()
	c.activeGlobal = &model.GameEvent{ID: "event-g", Type: model.EventStreak, Active: true}
	c.mu.Unlock()

	for i := 0; i < 200; i++ {
		c.generateMarketEvent()
	}

	for _, e := range c.Events() {
		if e.Type == model.EventTrap {
			t.Fatal("trap generated during streak")
		}
	}
}

func TestForecastAutoResolvesWithoutPrediction(t *testing.T) {
	c := newTestController(t, Config{Demo: true, Seed: 5})

	c.generateForecast()

	events := c.Events()
	if len(events) != 1 || events[0].Type != model.EventForecast {
		t.Fatalf("expected one forecast, got %+v", events)
	}
	id := events[0].ID
	if events[0].Status != model.ForecastPending {
		t.Fatalf("new forecast status = %s", events[0].Status)
	}
	if events[0].InitialHeadline == "" {
		t.Error("forecast missing provisional headline")
	}
	if events[0].Reward < 5 || events[0].Reward > 15 {
		t.Errorf("reward out of range: %v", events[0].Reward)
	}

	// The player never predicts; resolution still happens.
	c.resolveForecast(id)

	resolved := c.Events()[0]
	if resolved.Status != model.ForecastResolved {
		t.Errorf("status = %s, want resolved", resolved.Status)
	}
	if resolved.Outcome != model.OutcomeBullish && resolved.Outcome != model.OutcomeBearish {
		t.Errorf("outcome = %q", resolved.Outcome)
	}
	if resolved.ResolutionHeadline == "" {
		t.Error("resolution headline missing")
	}

	// Resolving twice is a no-op.
	before := c.Events()[0]
	c.resolveForecast(id)
	after := c.Events()[0]
	if after.Outcome != before.Outcome || after.ResolutionHeadline != before.ResolutionHeadline {
		t.Errorf("second resolve changed the event: %+v", after)
	}
}

func TestMandatoryQuizEveryFourthDraw(t *testing.T) {
	c := newTestController(t, Config{Demo: true, Seed: 9})

	var types []model.EventType
	for i := 0; i < 8; i++ {
		c.generateQuiz()
		c.mu.Lock()
		types = append(types, c.events[len(c.events)-1].Type)
		c.mu.Unlock()
	}

	for i, typ := range types {
		want := model.EventQuiz
		if (i+1)%mandatoryQuizInterval == 0 {
			want = model.EventMandatoryQuiz
		}
		if typ != want {
			t.Errorf("draw %d: type = %s, want %s", i+1, typ, want)
		}
	}
}

func TestRollGlobalEventLifecycle(t *testing.T) {
	c := newTestController(t, Config{Demo: true, Seed: 2})

	// Roll until one fires; the chance is 20% per roll.
	for i := 0; i < 100; i++ {
		c.rollGlobalEvent()
		if _, ok := c.GlobalEvent(); ok {
			break
		}
	}

	g, ok := c.GlobalEvent()
	if !ok {
		t.Fatal("no global event raised in 100 rolls")
	}
	if g.Type != model.EventShock && g.Type != model.EventStreak {
		t.Errorf("global type = %s", g.Type)
	}
	if g.Title == "" || g.Description == "" || g.Duration <= 0 {
		t.Errorf("global event underspecified: %+v", g)
	}

	// A second roll while one is active never stacks.
	for i := 0; i < 50; i++ {
		c.rollGlobalEvent()
	}
	if g2, _ := c.GlobalEvent(); g2.ID != g.ID {
		t.Error("second global event raised while one was active")
	}

	// Expiry deactivates it.
	c.mu.Lock()
	c.patchLocked(g.ID, PatchFields{Active: ptr(false)})
	c.activeGlobal = nil
	c.mu.Unlock()
	if _, ok := c.GlobalEvent(); ok {
		t.Error("global event active after expiry")
	}
}

func TestSyntheticHistoryShape(t *testing.T) {
	c := newTestController(t, Config{Demo: true, Seed: 13})

	c.mu.Lock()
	hist := c.syntheticHistory(true)
	c.mu.Unlock()

	if len(hist) != 15 {
		t.Fatalf("history length = %d, want 15", len(hist))
	}
	if hist[0].Price != 100 {
		t.Errorf("start price = %v, want 100", hist[0].Price)
	}
	for i, p := range hist {
		if p.Time != i {
			t.Errorf("point %d has time %d", i, p.Time)
		}
		if p.Price < 10 {
			t.Errorf("price %v below floor", p.Price)
		}
	}
}

func TestCannedNewsSubstitutesSymbol(t *testing.T) {
	for i := range newsTemplates {
		n := cannedNews("TSLA", i)
		if strings.Contains(n.Headline, "{symbol}") {
			t.Errorf("template %d left placeholder: %q", i, n.Headline)
		}
		if n.Source == "" {
			t.Errorf("template %d has no source", i)
		}
	}
}
