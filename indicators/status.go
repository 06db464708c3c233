package indicators

const notAvailable = "N/A"

// Statuses are display labels derived from the last bar of a result
type Statuses struct {
	PriceVsSMA20  string `json:"price_vs_sma20"`
	PriceVsSMA50  string `json:"price_vs_sma50"`
	PriceVsSMA200 string `json:"price_vs_sma200"`
	RSI           string `json:"rsi"`
	MACD          string `json:"macd"`
	Stochastic    string `json:"stochastic"`
	Bollinger     string `json:"bollinger"`
	Volume        string `json:"volume"`
}

func StatusesOf(r Result) Statuses {
	s := Statuses{
		PriceVsSMA20:  notAvailable,
		PriceVsSMA50:  notAvailable,
		PriceVsSMA200: notAvailable,
		RSI:           notAvailable,
		MACD:          notAvailable,
		Stochastic:    notAvailable,
		Bollinger:     notAvailable,
		Volume:        notAvailable,
	}
	last := r.LastClose()
	if last == nil {
		return s
	}
	price := *last

	s.PriceVsSMA20 = aboveBelow(price, r.Frame[KeySMA20].Last())
	s.PriceVsSMA50 = aboveBelow(price, r.Frame[KeySMA50].Last())
	s.PriceVsSMA200 = aboveBelow(price, r.Frame[KeySMA200].Last())

	if rsi := r.Frame[KeyRSI14].Last(); rsi != nil {
		s.RSI = band(*rsi, 30, 70)
	}
	if m, sig := r.Frame[KeyMACD].Last(), r.Frame[KeyMACDSignal].Last(); m != nil && sig != nil {
		if *m > *sig {
			s.MACD = "Bullish"
		} else {
			s.MACD = "Bearish"
		}
	}
	if k := r.Frame[KeyStochK].Last(); k != nil {
		s.Stochastic = band(*k, 20, 80)
	}
	if up, lo := r.Frame[KeyBBUpper].Last(), r.Frame[KeyBBLower].Last(); up != nil && lo != nil {
		switch {
		case price > *up:
			s.Bollinger = "Above Upper"
		case price < *lo:
			s.Bollinger = "Below Lower"
		default:
			s.Bollinger = "Within Bands"
		}
	}
	if ma := r.Frame[KeyVolumeMA20].Last(); ma != nil && *ma > 0 {
		vol := r.Series[len(r.Series)-1].Volume
		switch {
		case vol > 1.5**ma:
			s.Volume = "High"
		case vol < 0.5**ma:
			s.Volume = "Low"
		default:
			s.Volume = "Normal"
		}
	}
	return s
}

func aboveBelow(price float64, ref *float64) string {
	if ref == nil {
		return notAvailable
	}
	if price > *ref {
		return "Above"
	}
	return "Below"
}

func band(v, low, high float64) string {
	switch {
	case v > high:
		return "Overbought"
	case v < low:
		return "Oversold"
	default:
		return "Neutral"
	}
}
