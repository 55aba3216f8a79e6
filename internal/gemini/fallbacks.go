package gemini

import "github.com/lanerush/engine/internal/model"

// Canned values substituted by callers when generation fails. Failures never
// reach the player as errors; they degrade to these.

// FallbackNarrative labels a market event whose enrichment failed.
func FallbackNarrative() Narrative {
	return Narrative{
		Title:       "Market Movement",
		Explanation: "Price has changed due to market activity.",
	}
}

// FallbackInfoCard is shown when info-card generation fails.
func FallbackInfoCard() model.InfoCard {
	return model.InfoCard{
		Title:       "Content Unavailable",
		Explanation: "Could not load content right now. Keep playing and try again later.",
	}
}

// FallbackQuizQuestion is offered when quiz generation fails.
func FallbackQuizQuestion() model.QuizQuestion {
	return model.QuizQuestion{
		Question: "What is a common strategy to mitigate risk in a portfolio?",
		Options: []string{
			"Putting all money in one stock",
			"Diversification",
			"Ignoring market news",
			"Frequent short-term trading",
		},
		CorrectAnswerIndex: 1,
	}
}

// FallbackChartAnalysis is shown when chart commentary generation fails.
func FallbackChartAnalysis() model.ChartAnalysis {
	return model.ChartAnalysis{
		AnalysisText: "Analysis is unavailable for this move. The chart still shows the recent price action.",
		KeyConcept: model.KeyConcept{
			Title:       "Volatility",
			Explanation: "Prices move constantly; short-term swings are normal and not always meaningful.",
		},
	}
}

// FallbackForecastHeadlines is used when forecast headline generation fails.
func FallbackForecastHeadlines(symbol string) ForecastHeadlines {
	return ForecastHeadlines{
		Initial: "Which way will " + symbol + " move next?",
		Bullish: symbol + " pushes higher as buyers step in.",
		Bearish: symbol + " slips as sellers take control.",
	}
}
