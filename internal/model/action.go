package model

import "time"

// ActionKind partitions recorded player actions.
type ActionKind string

const (
	ActionTrade    ActionKind = "trade"
	ActionQuiz     ActionKind = "quiz"
	ActionForecast ActionKind = "forecast"
)

// PlayerAction is one resolved player decision, emitted by the game
// orchestrator and optionally archived by the recorder.
type PlayerAction struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"sessionId"`
	Kind       ActionKind `json:"kind"`
	EventID    string     `json:"eventId"`
	EventType  EventType  `json:"eventType"`
	Symbol     string     `json:"symbol,omitempty"`
	Value      float64    `json:"value,omitempty"`
	Correct    bool       `json:"correct,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}
