package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/lanerush/engine/internal/model"
)

// Narrative is the generated title/explanation pair for a market event.
type Narrative struct {
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
}

// ForecastHeadlines is the generated headline set for a forecast event: the
// teaser published at creation plus one resolution headline per outcome.
type ForecastHeadlines struct {
	Initial string `json:"initial"`
	Bullish string `json:"bullish"`
	Bearish string `json:"bearish"`
}

// InfoCard generates educational info-card content for a topic.
func (c *Client) InfoCard(ctx context.Context, topic string) (model.InfoCard, error) {
	prompt := fmt.Sprintf(`You are a friendly trading tutor inside a market simulation game.
Write a short educational info card about %q for a beginner.
Respond with only a JSON object: {"title": string, "explanation": string (2-3 sentences)}.`, topic)

	var card model.InfoCard
	if err := c.generateJSON(ctx, prompt, &card); err != nil {
		return model.InfoCard{}, err
	}
	return card, nil
}

// ChartAnalysis generates narrative commentary, a key concept, and chart
// annotations for a market event's price history.
func (c *Client) ChartAnalysis(ctx context.Context, ev model.GameEvent) (model.ChartAnalysis, error) {
	var prices []string
	for _, p := range ev.PriceHistory {
		prices = append(prices, fmt.Sprintf("%.2f", p.Price))
	}

	prompt := fmt.Sprintf(`You are a market analyst inside a trading game.
Symbol: %s. Event type: %s. Recent prices oldest-to-newest: [%s].
News headline: %q.
Respond with only a JSON object:
{"analysisText": string (3-4 sentences),
 "keyConcept": {"title": string, "explanation": string},
 "annotations": [{"index": int (index into the price list), "text": string}, ... up to 3]}.`,
		ev.Symbol, ev.Type, strings.Join(prices, ", "), ev.News.Headline)

	var analysis model.ChartAnalysis
	if err := c.generateJSON(ctx, prompt, &analysis); err != nil {
		return model.ChartAnalysis{}, err
	}
	return analysis, nil
}

// QuizQuestion generates a multiple-choice quiz question for a topic.
func (c *Client) QuizQuestion(ctx context.Context, topic string) (model.QuizQuestion, error) {
	prompt := fmt.Sprintf(`Write one multiple-choice quiz question about %q for a beginner trader.
Respond with only a JSON object:
{"question": string, "options": [four strings], "correctAnswerIndex": int (0-3)}.`, topic)

	var q model.QuizQuestion
	if err := c.generateJSON(ctx, prompt, &q); err != nil {
		return model.QuizQuestion{}, err
	}
	if q.Question == "" || len(q.Options) == 0 || q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		return model.QuizQuestion{}, fmt.Errorf("generated question is malformed")
	}
	return q, nil
}

// KeyTakeaway generates a one-line lesson from a quiz question.
func (c *Client) KeyTakeaway(ctx context.Context, q model.QuizQuestion) (string, error) {
	prompt := fmt.Sprintf(`A player just answered this quiz question: %q
The correct answer was: %q.
Respond with only a JSON object: {"takeaway": string (one sentence)}.`,
		q.Question, q.Options[q.CorrectAnswerIndex])

	var out struct {
		Takeaway string `json:"takeaway"`
	}
	if err := c.generateJSON(ctx, prompt, &out); err != nil {
		return "", err
	}
	if out.Takeaway == "" {
		return "", fmt.Errorf("generated takeaway is empty")
	}
	return out.Takeaway, nil
}

// MarketNarrative generates the title and explanation for a market event.
func (c *Client) MarketNarrative(ctx context.Context, symbol string, percentChange float64, headline string) (Narrative, error) {
	prompt := fmt.Sprintf(`Inside a market simulation game, %s just moved %.2f%%.
Related headline: %q.
Write a punchy event card. Respond with only a JSON object:
{"title": string (max 5 words), "explanation": string (1-2 sentences)}.`,
		symbol, percentChange, headline)

	var n Narrative
	if err := c.generateJSON(ctx, prompt, &n); err != nil {
		return Narrative{}, err
	}
	return n, nil
}

// ForecastHeadlines generates the headline set for a forecast event.
func (c *Client) ForecastHeadlines(ctx context.Context, symbol string) (ForecastHeadlines, error) {
	prompt := fmt.Sprintf(`Inside a market simulation game, the player is asked to forecast
whether %s will move up (bullish) or down (bearish).
Respond with only a JSON object:
{"initial": string (teaser headline posing the question),
 "bullish": string (headline if it moves up),
 "bearish": string (headline if it moves down)}.`, symbol)

	var h ForecastHeadlines
	if err := c.generateJSON(ctx, prompt, &h); err != nil {
		return ForecastHeadlines{}, err
	}
	return h, nil
}
