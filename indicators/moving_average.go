package indicators

import (
	talib "github.com/markcheno/go-talib"
)

// SMA is the trailing arithmetic mean over window values. Indices before the
// window fills are absent, and so is every index when window exceeds the input.
func SMA(values []float64, window int) Values {
	out := newValues(len(values))
	if window <= 0 || window > len(values) {
		return out
	}
	// talib indexes past the end on inputs shorter than the window
	sma := talib.Sma(values, window)
	for i := window - 1; i < len(values); i++ {
		out[i] = ptr(sma[i])
	}
	return out
}

// smaOf averages an indicator line. A window containing an absent value is absent.
func smaOf(values Values, window int) Values {
	out := newValues(len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if values[j] == nil {
				ok = false
				break
			}
			sum += *values[j]
		}
		if ok {
			out[i] = ptr(sum / float64(window))
		}
	}
	return out
}

// EMA smooths with alpha = 2/(span+1), seeded with the first value.
// It is defined from index 0.
func EMA(values []float64, span int) Values {
	return fromFloats(ema(values, span))
}

func ema(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}
