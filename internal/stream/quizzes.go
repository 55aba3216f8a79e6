package stream

import (
	"strings"

	"github.com/lanerush/engine/internal/model"
)

// Provisional narrative shown on a market event until enrichment lands.
const (
	provisionalTitle       = "Market Movement"
	provisionalExplanation = "Price has changed due to market activity."
)

// quizPool is the static question bank quiz events draw from. The generated
// action-center quizzes come from the text generator instead.
var quizPool = []model.QuizQuestion{
	{
		Question:           "What does 'diversification' mean in investing?",
		Options:            []string{"Buying only one stock", "Spreading investments across different assets", "Selling everything at once", "Borrowing money to invest"},
		CorrectAnswerIndex: 1,
	},
	{
		Question:           "What is a 'bull market'?",
		Options:            []string{"A market where prices are falling", "A market where prices are rising", "A market that is closed", "A market for livestock"},
		CorrectAnswerIndex: 1,
	},
	{
		Question:           "What does P/E ratio measure?",
		Options:            []string{"Price relative to earnings", "Profit relative to expenses", "Portfolio efficiency", "Price of equity"},
		CorrectAnswerIndex: 0,
	},
	{
		Question:           "What is 'dollar-cost averaging'?",
		Options:            []string{"Converting all assets to dollars", "Investing a fixed amount at regular intervals", "Averaging the price of the dollar", "Buying only when prices drop"},
		CorrectAnswerIndex: 1,
	},
	{
		Question:           "What is a 'stop-loss' order?",
		Options:            []string{"An order to buy more when prices fall", "An order that sells automatically at a set price to limit losses", "A request to pause trading", "A government halt on the market"},
		CorrectAnswerIndex: 1,
	},
	{
		Question:           "What does 'volatility' describe?",
		Options:            []string{"How much a price swings over time", "The total value of a company", "The number of shares traded", "The age of a stock"},
		CorrectAnswerIndex: 0,
	},
	{
		Question:           "What is a dividend?",
		Options:            []string{"A fee charged by brokers", "A share of company profits paid to shareholders", "A type of bond", "A stock price prediction"},
		CorrectAnswerIndex: 1,
	},
	{
		Question:           "What does 'FOMO' often cause investors to do?",
		Options:            []string{"Sell at the bottom", "Buy at inflated prices chasing a rally", "Diversify carefully", "Hold cash forever"},
		CorrectAnswerIndex: 1,
	},
}

// recommendations are short canned gameplay tips.
var recommendations = []string{
	"Don't chase every green candle. Wait for your setup.",
	"A streak feels great until it doesn't. Consider taking profits.",
	"Traps cluster when sentiment turns. Check the market pulse.",
	"Small consistent gains beat one big gamble.",
	"If you can't explain why you're buying, don't buy.",
	"Watch the news feed. Headlines move prices before charts do.",
}

// newsTemplates are the canned demo-mode headlines. {symbol} is substituted
// with the event's symbol.
var newsTemplates = []model.News{
	{Headline: "{symbol} sees unusual trading volume as institutional interest grows", Source: "Market Wire"},
	{Headline: "Analysts revise {symbol} price targets after earnings surprise", Source: "Street Digest"},
	{Headline: "{symbol} rallies on sector-wide momentum", Source: "Trading Desk"},
	{Headline: "Options activity spikes in {symbol} ahead of catalyst", Source: "Flow Report"},
	{Headline: "{symbol} under pressure as traders rotate out of the sector", Source: "Market Wire"},
	{Headline: "Retail interest in {symbol} surges on social platforms", Source: "Sentiment Watch"},
}

// cannedNews returns a demo headline for a symbol from the template at idx.
func cannedNews(symbol string, idx int) model.News {
	n := newsTemplates[idx]
	n.Headline = strings.ReplaceAll(n.Headline, "{symbol}", symbol)
	return n
}
