// Package indicators computes technical indicators over a single price series.
//
// Every stage is a pure function of its input. Values that are not defined for an
// index (a window that has not warmed up, a zero range) are nil, never zero or NaN.
package indicators

import (
	"sort"

	"stock-dashboard/models"
)

// Series is an ordered run of bars with strictly increasing timestamps
type Series []models.Bar

// Normalize sorts bars by timestamp, collapses duplicate timestamps keeping the
// later input element, and drops bars carrying NaN or Inf.
func Normalize(bars []models.Bar) Series {
	byTime := make(map[int64]int, len(bars))
	out := make(Series, 0, len(bars))
	for _, b := range bars {
		if !b.Finite() {
			continue
		}
		key := b.Timestamp.UnixNano()
		if idx, ok := byTime[key]; ok {
			out[idx] = b
			continue
		}
		byTime[key] = len(out)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func (s Series) Closes() []float64 {
	return s.field(func(b models.Bar) float64 { return b.Close })
}

func (s Series) Highs() []float64 {
	return s.field(func(b models.Bar) float64 { return b.High })
}

func (s Series) Lows() []float64 {
	return s.field(func(b models.Bar) float64 { return b.Low })
}

func (s Series) Volumes() []float64 {
	return s.field(func(b models.Bar) float64 { return b.Volume })
}

func (s Series) field(f func(models.Bar) float64) []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = f(b)
	}
	return out
}
