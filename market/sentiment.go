package market

import "math"

const (
	LabelBullish = "Bullish"
	LabelBearish = "Bearish"
	LabelNeutral = "Neutral"
)

const (
	indexThreshold  = 1.0
	sectorThreshold = 0.5
)

// Sentiment is a 0..1 score with its label
type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

var neutral = Sentiment{Score: 0.5, Label: LabelNeutral}

// NormalizeChange maps a percent change onto 0..1, saturating at ±2%
func NormalizeChange(changePct float64) float64 {
	return math.Min(math.Max((changePct+2)/4, 0), 1)
}

// IndexSentiment averages the index changes. Labels flip at ±1%.
// No changes reads as neutral.
func IndexSentiment(changes []float64) Sentiment {
	if len(changes) == 0 {
		return neutral
	}
	avg := mean(changes)
	return Sentiment{Score: NormalizeChange(avg), Label: label(avg, indexThreshold)}
}

// SectorSentiment scores one sector ETF change. Labels flip at ±0.5%.
func SectorSentiment(change *float64) Sentiment {
	if change == nil {
		return neutral
	}
	score := math.Round(NormalizeChange(*change)*100) / 100
	return Sentiment{Score: score, Label: label(*change, sectorThreshold)}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func label(change, threshold float64) string {
	switch {
	case change > threshold:
		return LabelBullish
	case change < -threshold:
		return LabelBearish
	default:
		return LabelNeutral
	}
}

// Article is a headline with a short summary
type Article struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp,omitempty"`
}

// StockSentiment is the per-symbol entry of the sentiment page
type StockSentiment struct {
	Symbol string `json:"symbol"`
	Sentiment
	Articles []Article `json:"articles"`
}

// SentimentPage is the static sentiment overview. No live sentiment feed
// backs it; the figures are fixed sample data.
type SentimentPage struct {
	Market   Sentiment                 `json:"market"`
	Sectors  map[string]Sentiment      `json:"sectors"`
	Trending []StockSentiment          `json:"trending"`
	Stocks   map[string]StockSentiment `json:"stocks"`
	Articles []Article                 `json:"articles"`
}

// SampleSentiment returns the fixed sentiment overview
func SampleSentiment() SentimentPage {
	stocks := map[string]StockSentiment{
		"AAPL": {Symbol: "AAPL", Sentiment: Sentiment{0.85, LabelBullish}, Articles: []Article{
			{Title: "Apple Q3 Earnings Beat Expectations", Summary: "Strong iPhone sales drive record quarterly revenue"},
			{Title: "Apple Announces New AI Features", Summary: "Innovative machine learning capabilities unveiled at developer conference"},
		}},
		"MSFT": {Symbol: "MSFT", Sentiment: Sentiment{0.75, LabelBullish}, Articles: []Article{
			{Title: "Microsoft Cloud Revenue Surges", Summary: "Azure platform shows 30% year-over-year growth"},
			{Title: "Microsoft Acquires AI Startup", Summary: "Strategic acquisition strengthens AI capabilities"},
		}},
		"GOOGL": {Symbol: "GOOGL", Sentiment: Sentiment{0.68, LabelBullish}, Articles: []Article{
			{Title: "Google Search Ad Revenue Increases", Summary: "Strong performance in key advertising segments"},
			{Title: "Google Expands Cloud Services", Summary: "New data centers announced for global expansion"},
		}},
		"AMZN": {Symbol: "AMZN", Sentiment: Sentiment{0.72, LabelBullish}, Articles: []Article{
			{Title: "Amazon Prime Membership Growth", Summary: "Record number of subscribers drives revenue"},
			{Title: "Amazon Expands Logistics Network", Summary: "New fulfillment centers to improve delivery times"},
		}},
		"TSLA": {Symbol: "TSLA", Sentiment: Sentiment{0.78, LabelBullish}, Articles: []Article{
			{Title: "Tesla Announces New Factory", Summary: "Electric vehicle production capacity to expand significantly"},
			{Title: "Tesla Battery Technology Breakthrough", Summary: "New innovation promises longer range vehicles"},
		}},
	}

	trending := make([]StockSentiment, 0, 5)
	for _, sym := range []string{"AAPL", "TSLA", "AMZN", "GOOGL", "MSFT"} {
		trending = append(trending, StockSentiment{Symbol: sym, Sentiment: stocks[sym].Sentiment})
	}

	return SentimentPage{
		Market: Sentiment{Score: 0.65, Label: LabelBullish},
		Sectors: map[string]Sentiment{
			"Technology": {0.75, LabelBullish},
			"Healthcare": {0.45, LabelBearish},
			"Financial":  {0.60, LabelBullish},
			"Energy":     {0.35, LabelBearish},
			"Consumer":   {0.55, LabelNeutral},
		},
		Trending: trending,
		Stocks:   stocks,
		Articles: []Article{
			{Title: "Tech Stocks Rally on Strong Earnings Reports", Summary: "Major technology companies exceeded Q3 earnings expectations, driving a broad market rally. Analysts predict continued growth in the sector."},
			{Title: "Federal Reserve Holds Interest Rates Steady", Summary: "The Federal Reserve maintained current interest rates following their latest policy meeting, citing stable inflation data. Markets responded positively to the decision."},
			{Title: "Oil Prices Drop Amid Supply Concerns", Summary: "Global oil prices fell 3% as supply chain disruptions ease and demand forecasts are revised downward. Energy sector stocks declined accordingly."},
			{Title: "Consumer Spending Remains Strong Despite Inflation", Summary: "Retail sales data shows continued consumer confidence despite ongoing inflationary pressures. Analysts revise GDP growth forecasts upward."},
			{Title: "Cryptocurrency Market Shows Signs of Recovery", Summary: "Bitcoin and other major cryptocurrencies show positive momentum following regulatory clarity from financial authorities."},
		},
	}
}

// SymbolSentiment returns the sample entry for symbol, or a neutral one
func SymbolSentiment(symbol string) StockSentiment {
	if s, ok := SampleSentiment().Stocks[symbol]; ok {
		return s
	}
	return StockSentiment{Symbol: symbol, Sentiment: neutral, Articles: []Article{}}
}
