package indicators

import (
	"math"
	"testing"
	"time"

	"stock-dashboard/models"
)

const tolerance = 1e-9

func assertClose(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance*math.Max(1, math.Abs(want)) {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

// barsFromCloses builds daily bars with a one-point high/low spread around each close
func barsFromCloses(closes ...float64) Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make(Series, len(closes))
	for i, c := range closes {
		out[i] = models.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return out
}

func ascending(from float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)
	}
	return out
}

func descending(from float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from - float64(i)
	}
	return out
}

// zigzag oscillates around base so every indicator sees both gains and losses
func zigzag(base float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + 5*math.Sin(float64(i)/3) + float64(i%4)
	}
	return out
}
