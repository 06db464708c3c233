package indicators

import (
	talib "github.com/markcheno/go-talib"
)

const (
	RSIPeriod        = 14
	MACDFast         = 12
	MACDSlow         = 26
	MACDSignalSpan   = 9
	StochasticPeriod = 14
	StochasticSmooth = 3
)

// RSI uses simple averages of gains and losses over the last period deltas.
// The value at i needs period deltas, so indices below period are absent.
// A window with no losses is 100.
func RSI(closes []float64, period int) Values {
	out := newValues(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	for i := period; i < len(closes); i++ {
		var sumGain, sumLoss float64
		for j := i - period + 1; j <= i; j++ {
			sumGain += gains[j]
			sumLoss += losses[j]
		}
		avgGain := sumGain / float64(period)
		avgLoss := sumLoss / float64(period)

		if avgLoss == 0 {
			out[i] = ptr(100)
			continue
		}
		rs := avgGain / avgLoss
		out[i] = ptr(100 - 100/(1+rs))
	}
	return out
}

// MACD returns the MACD line, its signal line and the histogram
func MACD(closes []float64) (macd, signal, hist Values) {
	fast := ema(closes, MACDFast)
	slow := ema(closes, MACDSlow)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	sig := ema(line, MACDSignalSpan)

	h := make([]float64, len(closes))
	for i := range closes {
		h[i] = line[i] - sig[i]
	}
	return fromFloats(line), fromFloats(sig), fromFloats(h)
}

// Stochastic computes %K over period bars and %D as its smooth-bar SMA.
// %K is absent where the window's high equals its low, and is clamped to [0, 100]
// when a close sits outside its own bar's range.
func Stochastic(highs, lows, closes []float64, period, smooth int) (k, d Values) {
	k = newValues(len(closes))
	if period < 2 || len(closes) < period || len(highs) != len(closes) || len(lows) != len(closes) {
		return k, smaOf(k, smooth)
	}

	highest := talib.Max(highs, period)
	lowest := talib.Min(lows, period)
	for i := period - 1; i < len(closes); i++ {
		rng := highest[i] - lowest[i]
		if rng == 0 {
			continue
		}
		k[i] = ptr(clamp(100*(closes[i]-lowest[i])/rng, 0, 100))
	}
	return k, smaOf(k, smooth)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
