package game

import (
	"context"
	"errors"

	"github.com/lanerush/engine/internal/model"
)

// State is the orchestrator's pause state. Exactly one modal can be open at
// a time; Running means none is.
type State int

const (
	StateRunning State = iota
	StatePausedForDetail
	StatePausedForQuiz
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePausedForDetail:
		return "paused_for_detail"
	case StatePausedForQuiz:
		return "paused_for_quiz"
	default:
		return "unknown"
	}
}

var (
	// ErrNotRunning is returned when a modal open is attempted while
	// another modal is already up.
	ErrNotRunning = errors.New("game: session is paused")

	// ErrNoModal is returned when a close is attempted with nothing open.
	ErrNoModal = errors.New("game: no matching modal is open")

	// ErrEventNotFound is returned when the target event is not in the
	// window or is the wrong kind.
	ErrEventNotFound = errors.New("game: event not found")
)

// DetailView is the content of an open detail modal.
type DetailView struct {
	Event    model.GameEvent     `json:"event"`
	Analysis model.ChartAnalysis `json:"analysis"`
}

// QuizView is the content of an open quiz modal.
type QuizView struct {
	EventID   string             `json:"eventId,omitempty"`
	Question  model.QuizQuestion `json:"question"`
	Mandatory bool               `json:"mandatory"`
}

// Snapshot is the full client-visible session state pushed to the UI.
type Snapshot struct {
	SessionID        string              `json:"sessionId"`
	State            string              `json:"state"`
	Events           []model.GameEvent   `json:"events"`
	Stats            model.PlayerStats   `json:"stats"`
	MarketPulse      int                 `json:"marketPulse"`
	GlobalEvent      *model.GameEvent    `json:"globalEvent,omitempty"`
	ActiveDetail     *DetailView         `json:"activeDetail,omitempty"`
	ActiveQuiz       *QuizView           `json:"activeQuiz,omitempty"`
	ActiveInfo       *model.InfoCard     `json:"activeInfo,omitempty"`
	Takeaways        []model.KeyTakeaway `json:"takeaways"`
	CompletedQuizIDs []string            `json:"completedQuizIds"`
}

// TextGenerator is the slice of the generation client the orchestrator uses
// for modal content. All errors degrade to hardcoded fallbacks.
type TextGenerator interface {
	ChartAnalysis(ctx context.Context, ev model.GameEvent) (model.ChartAnalysis, error)
	QuizQuestion(ctx context.Context, topic string) (model.QuizQuestion, error)
	KeyTakeaway(ctx context.Context, q model.QuizQuestion) (string, error)
	InfoCard(ctx context.Context, topic string) (model.InfoCard, error)
}

// ActionRecorder archives resolved player actions. A nil recorder drops
// them.
type ActionRecorder interface {
	RecordAction(a model.PlayerAction)
}
