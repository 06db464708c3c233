package indicators

import (
	"fmt"
	"time"
)

type Label string

const (
	LabelBuy  Label = "BUY"
	LabelSell Label = "SELL"
	LabelHold Label = "HOLD"
)

const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// Signal is a derived trading label with the values that decided it.
// The values are in provider currency; Rationale renders them as plain
// numbers and Explain renders them through a caller's price formatter.
type Signal struct {
	Label      Label     `json:"label"`
	Rationale  string    `json:"rationale"`
	Caveat     string    `json:"-"`
	Close      *float64  `json:"-"`
	SMA20      *float64  `json:"-"`
	SMA50      *float64  `json:"-"`
	RSI        *float64  `json:"-"`
	ComputedAt time.Time `json:"computed_at"`
}

func noDataSignal() Signal {
	return Signal{Label: LabelHold, Rationale: "no data", ComputedAt: time.Now()}
}

func plainPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Classify labels a bar from its close, SMA20, SMA50 and optional RSI.
// Any missing moving average resolves to HOLD.
func Classify(close, sma20, sma50, rsi *float64) Signal {
	sig := Signal{
		Label:      LabelHold,
		Close:      close,
		SMA20:      sma20,
		SMA50:      sma50,
		RSI:        rsi,
		ComputedAt: time.Now(),
	}
	if close != nil && sma20 != nil && sma50 != nil {
		c, s20, s50 := *close, *sma20, *sma50
		switch {
		case c > s20 && s20 > s50 && (rsi == nil || *rsi < rsiOverbought):
			sig.Label = LabelBuy
		case c < s20 && s20 < s50 && (rsi == nil || *rsi > rsiOversold):
			sig.Label = LabelSell
		}
	}
	sig.Rationale = sig.Explain(nil)
	return sig
}

// WithCaveat returns the signal with a note prefixed to its rationale
func (s Signal) WithCaveat(caveat string) Signal {
	s.Caveat = caveat
	s.Rationale = s.Explain(nil)
	return s
}

// Explain renders the rationale with every price passed through price.
// A nil price prints plain two-decimal numbers. RSI is never converted.
func (s Signal) Explain(price func(float64) string) string {
	if price == nil {
		price = plainPrice
	}
	text := s.explain(price)
	if s.Caveat != "" {
		text = s.Caveat + "; " + text
	}
	return text
}

func (s Signal) explain(price func(float64) string) string {
	switch {
	case s.Close == nil:
		return "no data"
	case s.SMA20 == nil:
		return fmt.Sprintf("close %s, SMA20 unavailable (insufficient history)", price(*s.Close))
	case s.SMA50 == nil:
		return fmt.Sprintf("close %s, SMA20 %s, SMA50 unavailable (insufficient history)", price(*s.Close), price(*s.SMA20))
	}

	c, s20, s50 := *s.Close, *s.SMA20, *s.SMA50
	trend := fmt.Sprintf("close %s, SMA20 %s, SMA50 %s", price(c), price(s20), price(s50))
	rsiText := "RSI unavailable"
	if s.RSI != nil {
		rsiText = fmt.Sprintf("RSI %.2f", *s.RSI)
	}

	switch {
	case s.Label == LabelBuy:
		return fmt.Sprintf("uptrend: close > SMA20 > SMA50 (%s), %s", trend, rsiText)
	case s.Label == LabelSell:
		return fmt.Sprintf("downtrend: close < SMA20 < SMA50 (%s), %s", trend, rsiText)
	case c > s20 && s20 > s50:
		return fmt.Sprintf("uptrend (%s) but %s is overbought", trend, rsiText)
	case c < s20 && s20 < s50:
		return fmt.Sprintf("downtrend (%s) but %s is oversold", trend, rsiText)
	}
	return fmt.Sprintf("no clear trend (%s), %s", trend, rsiText)
}
