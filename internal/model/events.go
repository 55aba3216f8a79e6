package model

import (
	"math"
	"time"
)

// EventType discriminates the GameEvent union.
type EventType string

const (
	EventOpportunity    EventType = "opportunity"
	EventTrap           EventType = "trap"
	EventQuiz           EventType = "quiz"
	EventMandatoryQuiz  EventType = "mandatory_quiz"
	EventRecommendation EventType = "recommendation"
	EventForecast       EventType = "forecast"
	EventShock          EventType = "shock"
	EventStreak         EventType = "streak"
)

// LaneNone marks events that are not placed on a visual track.
const LaneNone = -1

// ForecastStatus tracks a forecast event through its two-phase protocol.
type ForecastStatus string

const (
	ForecastPending   ForecastStatus = "pending"
	ForecastPredicted ForecastStatus = "predicted"
	ForecastResolved  ForecastStatus = "resolved"
)

// ForecastOutcome is the direction a forecast resolved to, or the direction
// a player predicted.
type ForecastOutcome string

const (
	OutcomeBullish ForecastOutcome = "bullish"
	OutcomeBearish ForecastOutcome = "bearish"
)

// PricePoint is one sample of a mini-chart price series.
type PricePoint struct {
	Time  int     `json:"time"`
	Price float64 `json:"price"`
}

// News is the headline attached to a market event.
type News struct {
	Headline string `json:"headline"`
	Source   string `json:"source"`
	URL      string `json:"url"`
}

// QuizQuestion is a multiple-choice question. Options has four entries in
// practice but the length is not enforced.
type QuizQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
}

// GameEvent is the single entity flowing through the system. It is a tagged
// union discriminated by Type; fields outside the common set are only
// meaningful for the variants that document them.
type GameEvent struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`
	Lane int       `json:"lane"`

	// opportunity / trap
	Symbol       string       `json:"symbol,omitempty"`
	Value        float64      `json:"value,omitempty"`
	Title        string       `json:"title,omitempty"`
	Explanation  string       `json:"explanation,omitempty"`
	News         News         `json:"news,omitempty"`
	PriceHistory []PricePoint `json:"priceHistory,omitempty"`
	Faded        bool         `json:"faded,omitempty"`

	// quiz / mandatory_quiz / recommendation
	Question *QuizQuestion `json:"question,omitempty"`
	Text     string        `json:"text,omitempty"`

	// forecast
	Status             ForecastStatus  `json:"status,omitempty"`
	InitialHeadline    string          `json:"initialHeadline,omitempty"`
	ResolutionHeadline string          `json:"resolutionHeadline,omitempty"`
	Outcome            ForecastOutcome `json:"outcome,omitempty"`
	Prediction         ForecastOutcome `json:"prediction,omitempty"`
	Reward             float64         `json:"reward,omitempty"`

	// shock / streak (global market modifiers)
	Description string        `json:"description,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Active      bool          `json:"active,omitempty"`
}

// NewMarketEvent builds an opportunity or trap event. The value's sign is
// forced to match the type here, at construction, and is never re-validated:
// opportunities carry value >= 0, traps value <= 0.
func NewMarketEvent(id, symbol string, typ EventType, magnitude float64, lane int) GameEvent {
	value := math.Abs(magnitude)
	if typ == EventTrap {
		value = -value
	}
	return GameEvent{
		ID:     id,
		Type:   typ,
		Lane:   lane,
		Symbol: symbol,
		Value:  value,
	}
}

// IsLaneEvent reports whether the event is rendered on one of the three
// visual tracks.
func (e GameEvent) IsLaneEvent() bool {
	return e.Type == EventOpportunity || e.Type == EventTrap
}

// IsQuizEvent reports whether the event carries a quiz question.
func (e GameEvent) IsQuizEvent() bool {
	return e.Type == EventQuiz || e.Type == EventMandatoryQuiz
}

// IsGlobal reports whether the event is a session-wide market modifier
// rather than a feed entry the player interacts with directly.
func (e GameEvent) IsGlobal() bool {
	return e.Type == EventShock || e.Type == EventStreak
}

// KeyTakeaway is a dismissible one-line lesson generated after a quiz.
type KeyTakeaway struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ChartAnnotation labels a point of the price history in the detail view.
type ChartAnnotation struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// KeyConcept is the educational sidebar of a chart analysis.
type KeyConcept struct {
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
}

// ChartAnalysis is the generated commentary shown in the detail modal.
type ChartAnalysis struct {
	AnalysisText string            `json:"analysisText"`
	KeyConcept   KeyConcept        `json:"keyConcept"`
	Annotations  []ChartAnnotation `json:"annotations"`
}

// InfoCard is the generated content of the info modal.
type InfoCard struct {
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
}
