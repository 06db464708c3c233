package indicators

import (
	"fmt"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		close        *float64
		sma20, sma50 *float64
		rsi          *float64
		want         Label
		wantContains string
	}{
		{"buy with rsi", ptr(120), ptr(110), ptr(100), ptr(60), LabelBuy, "RSI 60.00"},
		{"buy without rsi", ptr(120), ptr(110), ptr(100), nil, LabelBuy, "RSI unavailable"},
		{"uptrend but overbought", ptr(120), ptr(110), ptr(100), ptr(75), LabelHold, "overbought"},
		{"sell with rsi", ptr(80), ptr(90), ptr(100), ptr(40), LabelSell, "SMA50 100.00"},
		{"downtrend but oversold", ptr(80), ptr(90), ptr(100), ptr(25), LabelHold, "oversold"},
		{"mixed order holds", ptr(105), ptr(110), ptr(100), ptr(50), LabelHold, "no clear trend"},
		{"tie holds", ptr(110), ptr(110), ptr(100), ptr(50), LabelHold, "close 110.00"},
		{"missing sma50 holds", ptr(120), ptr(110), nil, ptr(50), LabelHold, "SMA50 unavailable"},
		{"missing sma20 holds", ptr(120), nil, nil, nil, LabelHold, "SMA20 unavailable"},
		{"missing close holds", nil, nil, nil, nil, LabelHold, "no data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.close, tt.sma20, tt.sma50, tt.rsi)
			if got.Label != tt.want {
				t.Errorf("Label = %v, want %v (%s)", got.Label, tt.want, got.Rationale)
			}
			if !strings.Contains(got.Rationale, tt.wantContains) {
				t.Errorf("Rationale = %q, want it to contain %q", got.Rationale, tt.wantContains)
			}
			if got.ComputedAt.IsZero() {
				t.Error("ComputedAt should be set")
			}
		})
	}
}

func TestClassify_RisingSeriesWithModerateRSI(t *testing.T) {
	res := Compute(barsFromCloses(ascending(100, 60)...))
	last := len(res.Series) - 1

	sig := Classify(res.LastClose(), res.Frame[KeySMA20].At(last), res.Frame[KeySMA50].At(last), ptr(55))
	if sig.Label != LabelBuy {
		t.Errorf("Label = %v, want BUY (%s)", sig.Label, sig.Rationale)
	}

	// the same series unforced has RSI 100 and must not be a buy
	if res.Signal.Label != LabelHold {
		t.Errorf("unforced Label = %v, want HOLD (%s)", res.Signal.Label, res.Signal.Rationale)
	}
}

func TestSignal_Explain(t *testing.T) {
	rupees := func(v float64) string { return fmt.Sprintf("₹%.2f", v*83) }

	tests := []struct {
		name    string
		sig     Signal
		want    []string
		notWant []string
	}{
		{
			name:    "buy converts prices not rsi",
			sig:     Classify(ptr(120), ptr(110), ptr(100), ptr(60)),
			want:    []string{"close ₹9960.00", "SMA20 ₹9130.00", "SMA50 ₹8300.00", "RSI 60.00"},
			notWant: []string{"close 120.00"},
		},
		{
			name: "oversold hold",
			sig:  Classify(ptr(80), ptr(90), ptr(100), ptr(25)),
			want: []string{"oversold", "close ₹6640.00"},
		},
		{
			name: "short history",
			sig:  Classify(ptr(10), nil, nil, nil),
			want: []string{"close ₹830.00, SMA20 unavailable"},
		},
		{
			name: "caveat kept",
			sig:  Classify(ptr(10), nil, nil, nil).WithCaveat("market data unavailable"),
			want: []string{"market data unavailable; close ₹830.00"},
		},
		{
			name: "no data",
			sig:  noDataSignal(),
			want: []string{"no data"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sig.Explain(rupees)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Explain = %q, want it to contain %q", got, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("Explain = %q, should not contain %q", got, w)
				}
			}
		})
	}
}

func TestSignal_WithCaveat(t *testing.T) {
	sig := Classify(ptr(10), nil, nil, nil).WithCaveat("market data unavailable")

	if want := "market data unavailable; close 10.00, SMA20 unavailable (insufficient history)"; sig.Rationale != want {
		t.Errorf("Rationale = %q, want %q", sig.Rationale, want)
	}
}
