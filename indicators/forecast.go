package indicators

import (
	"math/rand"
)

const (
	DefaultHorizon     = 7
	DefaultDamping     = 0.8
	DefaultNoiseFactor = 0.1

	// momentumLookback is how many trailing close-to-close changes feed the forecast
	momentumLookback = 10
)

// ForecastPoint is a non-authoritative extrapolated price
type ForecastPoint struct {
	Horizon int     `json:"horizon"`
	Price   float64 `json:"price"`
}

// AverageChange is the mean of the last min(10, n-1) successive differences
func AverageChange(closes []float64) float64 {
	n := len(closes)
	if n < 2 {
		return 0
	}
	start := n - momentumLookback - 1
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for i := start + 1; i < n; i++ {
		sum += closes[i] - closes[i-1]
	}
	return sum / float64(n-1-start)
}

// MultiDayForecast extrapolates linearly with damping:
// point i = last + avgChange * i * damping.
func MultiDayForecast(closes []float64, horizon int, damping float64) []ForecastPoint {
	if len(closes) == 0 || horizon <= 0 {
		return nil
	}
	last := closes[len(closes)-1]
	change := AverageChange(closes)

	points := make([]ForecastPoint, horizon)
	for i := 1; i <= horizon; i++ {
		points[i-1] = ForecastPoint{
			Horizon: i,
			Price:   last + change*float64(i)*damping,
		}
	}
	return points
}

// NextBarForecast adds one average change to the last close and perturbs it with
// gaussian noise whose standard deviation is volatility * last * noiseFactor.
// ok is false on empty input.
func NextBarForecast(closes []float64, volatility, noiseFactor float64, rng *rand.Rand) (price float64, ok bool) {
	if len(closes) == 0 {
		return 0, false
	}
	last := closes[len(closes)-1]
	base := last + AverageChange(closes)
	sigma := volatility * last * noiseFactor
	if sigma <= 0 || rng == nil {
		return base, true
	}
	return base + rng.NormFloat64()*sigma, true
}
