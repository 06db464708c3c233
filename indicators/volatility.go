package indicators

import (
	"math"
)

const (
	BollingerWindow = 20
	BollingerK      = 2.0

	// TradingDaysPerYear annualizes daily return volatility
	TradingDaysPerYear = 252

	supportFactor    = 0.99
	resistanceFactor = 1.01
)

// Trend is the direction of the series from its first close to its last
type Trend string

const (
	TrendBullish Trend = "Bullish"
	TrendBearish Trend = "Bearish"
	TrendNeutral Trend = "Neutral"
)

// Bollinger returns upper, middle and lower bands using the population
// standard deviation over the same window as the middle SMA.
func Bollinger(closes []float64, window int, k float64) (upper, mid, lower Values) {
	mid = SMA(closes, window)
	upper = newValues(len(closes))
	lower = newValues(len(closes))
	for i, m := range mid {
		if m == nil {
			continue
		}
		width := k * populationStdDev(closes[i-window+1:i+1])
		upper[i] = ptr(*m + width)
		lower[i] = ptr(*m - width)
	}
	return upper, mid, lower
}

// SupportResistance brackets the whole visible series. ok is false on empty input.
func SupportResistance(closes []float64) (support, resistance float64, ok bool) {
	if len(closes) == 0 {
		return 0, 0, false
	}
	lo, hi := closes[0], closes[0]
	for _, c := range closes[1:] {
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	return lo * supportFactor, hi * resistanceFactor, true
}

// Volatility is the sample standard deviation of simple returns, annualized.
// Returns off a zero close are skipped. Fewer than two returns yields 0.
func Volatility(closes []float64) float64 {
	returns := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(returns) < 2 {
		return 0
	}
	return sampleStdDev(returns) * math.Sqrt(TradingDaysPerYear)
}

func TrendDirection(closes []float64) Trend {
	if len(closes) == 0 {
		return TrendNeutral
	}
	first, last := closes[0], closes[len(closes)-1]
	switch {
	case last > first:
		return TrendBullish
	case last < first:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sumSquares(xs []float64) float64 {
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return ss
}

func populationStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return math.Sqrt(sumSquares(xs) / float64(len(xs)))
}

func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return math.Sqrt(sumSquares(xs) / float64(len(xs)-1))
}
