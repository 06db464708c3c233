package indicators

import (
	"math/rand"
)

// Canonical frame keys
const (
	KeySMA20      = "sma20"
	KeySMA50      = "sma50"
	KeySMA200     = "sma200"
	KeyEMA12      = "ema12"
	KeyEMA26      = "ema26"
	KeyRSI14      = "rsi14"
	KeyMACD       = "macd"
	KeyMACDSignal = "macd_signal"
	KeyMACDHist   = "macd_hist"
	KeyStochK     = "stoch_k"
	KeyStochD     = "stoch_d"
	KeyBBUpper    = "bb_upper"
	KeyBBMid      = "bb_mid"
	KeyBBLower    = "bb_lower"
	KeyVolumeMA20 = "volume_ma20"
)

// FrameKeys lists every key Compute fills, in display order
var FrameKeys = []string{
	KeySMA20, KeySMA50, KeySMA200, KeyEMA12, KeyEMA26, KeyRSI14,
	KeyMACD, KeyMACDSignal, KeyMACDHist, KeyStochK, KeyStochD,
	KeyBBUpper, KeyBBMid, KeyBBLower, KeyVolumeMA20,
}

// Frame maps indicator names to lines aligned with the series
type Frame map[string]Values

// Summary holds the scalar, whole-series figures
type Summary struct {
	Support    *float64 `json:"support"`
	Resistance *float64 `json:"resistance"`
	Volatility float64  `json:"volatility"`
	Trend      Trend    `json:"trend_direction"`
}

// Result is the outcome of one pipeline run. NoData marks an empty series,
// which is a valid terminal state rather than an error.
type Result struct {
	NoData   bool            `json:"no_data"`
	Series   Series          `json:"-"`
	Frame    Frame           `json:"frame"`
	Summary  Summary         `json:"summary"`
	Signal   Signal          `json:"signal"`
	Forecast []ForecastPoint `json:"forecast"`
}

// Pipeline carries the tunables of the forecast stage
type Pipeline struct {
	Horizon     int
	Damping     float64
	NoiseFactor float64
}

func DefaultPipeline() Pipeline {
	return Pipeline{
		Horizon:     DefaultHorizon,
		Damping:     DefaultDamping,
		NoiseFactor: DefaultNoiseFactor,
	}
}

// Compute runs the default pipeline
func Compute(series Series) Result {
	return DefaultPipeline().Run(series)
}

// Run computes every stage over series. It is deterministic.
func (p Pipeline) Run(series Series) Result {
	closes := series.Closes()
	frame := computeFrame(series, closes)

	if len(series) == 0 {
		return Result{
			NoData:  true,
			Series:  series,
			Frame:   frame,
			Summary: Summary{Trend: TrendNeutral},
			Signal:  noDataSignal(),
		}
	}

	summary := Summary{
		Volatility: Volatility(closes),
		Trend:      TrendDirection(closes),
	}
	if support, resistance, ok := SupportResistance(closes); ok {
		summary.Support = ptr(support)
		summary.Resistance = ptr(resistance)
	}

	res := Result{
		Series:   series,
		Frame:    frame,
		Summary:  summary,
		Forecast: MultiDayForecast(closes, p.Horizon, p.Damping),
	}
	res.Signal = res.SignalAt(len(series) - 1)
	return res
}

// NextBar draws a randomized one-step forecast for the result's series
func (p Pipeline) NextBar(res Result, rng *rand.Rand) (float64, bool) {
	return NextBarForecast(res.Series.Closes(), res.Summary.Volatility, p.NoiseFactor, rng)
}

// SignalAt classifies bar i using the frame's values at that index
func (r Result) SignalAt(i int) Signal {
	if r.NoData || i < 0 || i >= len(r.Series) {
		return noDataSignal()
	}
	c := r.Series[i].Close
	return Classify(&c, r.Frame[KeySMA20].At(i), r.Frame[KeySMA50].At(i), r.Frame[KeyRSI14].At(i))
}

// LastClose returns the final close, or nil for an empty series
func (r Result) LastClose() *float64 {
	if len(r.Series) == 0 {
		return nil
	}
	return ptr(r.Series[len(r.Series)-1].Close)
}

func computeFrame(series Series, closes []float64) Frame {
	macd, signal, hist := MACD(closes)
	k, d := Stochastic(series.Highs(), series.Lows(), closes, StochasticPeriod, StochasticSmooth)
	upper, mid, lower := Bollinger(closes, BollingerWindow, BollingerK)

	return Frame{
		KeySMA20:      SMA(closes, 20),
		KeySMA50:      SMA(closes, 50),
		KeySMA200:     SMA(closes, 200),
		KeyEMA12:      EMA(closes, 12),
		KeyEMA26:      EMA(closes, 26),
		KeyRSI14:      RSI(closes, RSIPeriod),
		KeyMACD:       macd,
		KeyMACDSignal: signal,
		KeyMACDHist:   hist,
		KeyStochK:     k,
		KeyStochD:     d,
		KeyBBUpper:    upper,
		KeyBBMid:      mid,
		KeyBBLower:    lower,
		KeyVolumeMA20: SMA(series.Volumes(), 20),
	}
}
