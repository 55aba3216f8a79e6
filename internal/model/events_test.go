package model

import "testing"

func TestNewMarketEventSign(t *testing.T) {
	tests := []struct {
		name      string
		typ       EventType
		magnitude float64
		want      float64
	}{
		{name: "opportunity positive magnitude", typ: EventOpportunity, magnitude: 12.5, want: 12.5},
		{name: "opportunity negative magnitude forced positive", typ: EventOpportunity, magnitude: -12.5, want: 12.5},
		{name: "trap positive magnitude forced negative", typ: EventTrap, magnitude: 8.0, want: -8.0},
		{name: "trap negative magnitude", typ: EventTrap, magnitude: -8.0, want: -8.0},
		{name: "zero magnitude opportunity", typ: EventOpportunity, magnitude: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewMarketEvent("event-1", "NVDA", tt.typ, tt.magnitude, 1)
			if ev.Value != tt.want {
				t.Errorf("Value = %v, want %v", ev.Value, tt.want)
			}
		})
	}
}

func TestEventKindHelpers(t *testing.T) {
	tests := []struct {
		typ    EventType
		isLane bool
		isQuiz bool
		global bool
	}{
		{EventOpportunity, true, false, false},
		{EventTrap, true, false, false},
		{EventQuiz, false, true, false},
		{EventMandatoryQuiz, false, true, false},
		{EventRecommendation, false, false, false},
		{EventForecast, false, false, false},
		{EventShock, false, false, true},
		{EventStreak, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			e := GameEvent{Type: tt.typ}
			if got := e.IsLaneEvent(); got != tt.isLane {
				t.Errorf("IsLaneEvent() = %v, want %v", got, tt.isLane)
			}
			if got := e.IsQuizEvent(); got != tt.isQuiz {
				t.Errorf("IsQuizEvent() = %v, want %v", got, tt.isQuiz)
			}
			if got := e.IsGlobal(); got != tt.global {
				t.Errorf("IsGlobal() = %v, want %v", got, tt.global)
			}
		})
	}
}

func TestNewPlayerStats(t *testing.T) {
	s := NewPlayerStats()
	if s.PnL != 0 || s.BTC != 0.1 || s.Streak != 0 || s.Gemin != 10 {
		t.Errorf("unexpected initial stats: %+v", s)
	}
}
