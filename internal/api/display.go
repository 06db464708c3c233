package api

import (
	"time"

	"github.com/shopspring/decimal"

	"stock-dashboard/indicators"
	"stock-dashboard/market"
	"stock-dashboard/models"
	"stock-dashboard/portfolio"
	"stock-dashboard/screener"
	"stock-dashboard/services"
)

// priceKeys are the frame lines measured in price units. Oscillators and
// volume stay as computed.
var priceKeys = map[string]bool{
	indicators.KeySMA20:      true,
	indicators.KeySMA50:      true,
	indicators.KeySMA200:     true,
	indicators.KeyEMA12:      true,
	indicators.KeyEMA26:      true,
	indicators.KeyMACD:       true,
	indicators.KeyMACDSignal: true,
	indicators.KeyMACDHist:   true,
	indicators.KeyBBUpper:    true,
	indicators.KeyBBMid:      true,
	indicators.KeyBBLower:    true,
}

// Display converts provider-currency values for responses. Every handler
// converts exactly once, on the way out, and converts user-entered prices
// back on the way in.
type Display struct {
	market.Currency
}

func (d Display) price(v float64) float64 {
	return d.Convert(v)
}

func (d Display) pricePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := d.Convert(*v)
	return &c
}

func (d Display) money(v decimal.Decimal) decimal.Decimal {
	return d.ConvertDecimal(v)
}

// fromDisplay turns a user-entered display price into provider currency
func (d Display) fromDisplay(v decimal.Decimal) decimal.Decimal {
	if v.IsZero() || d.Factor == 0 {
		return v
	}
	return v.Div(decimal.NewFromFloat(d.Factor))
}

type quoteView struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Currency      string          `json:"currency"`
	Degraded      bool            `json:"degraded,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

func (d Display) quote(q *models.Quote) quoteView {
	return quoteView{
		Symbol:        q.Symbol,
		Name:          market.CompanyName(q.Symbol),
		Price:         d.money(q.Price),
		Change:        d.money(q.Change),
		ChangePercent: q.ChangePercent.Round(2),
		Currency:      d.Symbol,
		Degraded:      q.Degraded,
		Timestamp:     q.Timestamp,
	}
}

type summaryView struct {
	Support    *float64          `json:"support"`
	Resistance *float64          `json:"resistance"`
	Volatility float64           `json:"volatility"`
	Trend      indicators.Trend  `json:"trend_direction"`
	Signal     indicators.Signal `json:"signal"`
}

type chartView struct {
	Symbol     string                       `json:"symbol"`
	Range      services.Range               `json:"range"`
	Degraded   bool                         `json:"degraded"`
	NoData     bool                         `json:"no_data"`
	Timestamps []time.Time                  `json:"timestamps"`
	Open       []float64                    `json:"open"`
	High       []float64                    `json:"high"`
	Low        []float64                    `json:"low"`
	Close      []float64                    `json:"close"`
	Volume     []float64                    `json:"volume"`
	Frame      map[string]indicators.Values `json:"frame"`
	Summary    summaryView                  `json:"summary"`
	Forecast   []indicators.ForecastPoint   `json:"forecast"`
	Currency   string                       `json:"currency"`
}

func (d Display) chart(s *services.Snapshot) chartView {
	series := s.Result.Series
	v := chartView{
		Symbol:     s.Symbol,
		Range:      s.Range,
		Degraded:   s.Degraded,
		NoData:     s.Result.NoData,
		Timestamps: make([]time.Time, len(series)),
		Open:       make([]float64, len(series)),
		High:       make([]float64, len(series)),
		Low:        make([]float64, len(series)),
		Close:      make([]float64, len(series)),
		Volume:     make([]float64, len(series)),
		Frame:      d.frame(s.Result.Frame),
		Summary:    d.summary(s.Result),
		Forecast:   d.forecast(s.Result.Forecast),
		Currency:   d.Symbol,
	}
	for i, b := range series {
		v.Timestamps[i] = b.Timestamp
		v.Open[i] = d.price(b.Open)
		v.High[i] = d.price(b.High)
		v.Low[i] = d.price(b.Low)
		v.Close[i] = d.price(b.Close)
		v.Volume[i] = b.Volume
	}
	return v
}

func (d Display) frame(f indicators.Frame) map[string]indicators.Values {
	out := make(map[string]indicators.Values, len(f))
	for k, vals := range f {
		if priceKeys[k] {
			out[k] = vals.Scale(d.Factor)
		} else {
			out[k] = vals
		}
	}
	return out
}

func (d Display) summary(r indicators.Result) summaryView {
	return summaryView{
		Support:    d.pricePtr(r.Summary.Support),
		Resistance: d.pricePtr(r.Summary.Resistance),
		Volatility: r.Summary.Volatility,
		Trend:      r.Summary.Trend,
		Signal:     d.signalOf(r.Signal),
	}
}

// signalOf renders the rationale in the display currency
func (d Display) signalOf(sig indicators.Signal) indicators.Signal {
	sig.Rationale = sig.Explain(d.Format)
	return sig
}

func (d Display) forecast(points []indicators.ForecastPoint) []indicators.ForecastPoint {
	out := make([]indicators.ForecastPoint, len(points))
	for i, p := range points {
		out[i] = indicators.ForecastPoint{Horizon: p.Horizon, Price: d.price(p.Price)}
	}
	return out
}

type indicatorsView struct {
	Symbol   string              `json:"symbol"`
	Price    *float64            `json:"current_price"`
	Latest   map[string]*float64 `json:"latest"`
	Statuses indicators.Statuses `json:"statuses"`
	Summary  summaryView         `json:"summary"`
	Degraded bool                `json:"degraded"`
}

func (d Display) indicatorsOf(s *services.Snapshot) indicatorsView {
	latest := make(map[string]*float64, len(indicators.FrameKeys))
	for _, k := range indicators.FrameKeys {
		v := s.Result.Frame[k].Last()
		if priceKeys[k] {
			v = d.pricePtr(v)
		}
		latest[k] = v
	}
	return indicatorsView{
		Symbol:   s.Symbol,
		Price:    d.pricePtr(s.Result.LastClose()),
		Latest:   latest,
		Statuses: indicators.StatusesOf(s.Result),
		Summary:  d.summary(s.Result),
		Degraded: s.Degraded,
	}
}

type signalView struct {
	Symbol   string           `json:"symbol"`
	Signal   indicators.Label `json:"signal"`
	Reason   string           `json:"reason"`
	Price    *float64         `json:"current_price"`
	Degraded bool             `json:"degraded"`
}

func (d Display) signal(s *services.Snapshot) signalView {
	return signalView{
		Symbol:   s.Symbol,
		Signal:   s.Result.Signal.Label,
		Reason:   s.Result.Signal.Explain(d.Format),
		Price:    d.pricePtr(s.Result.LastClose()),
		Degraded: s.Degraded,
	}
}

type forecastView struct {
	Symbol   string                     `json:"symbol"`
	Price    *float64                   `json:"current_price"`
	Points   []indicators.ForecastPoint `json:"forecast"`
	Trend    indicators.Trend           `json:"trend_direction"`
	Degraded bool                       `json:"degraded"`
}

func (d Display) forecastOf(s *services.Snapshot) forecastView {
	return forecastView{
		Symbol:   s.Symbol,
		Price:    d.pricePtr(s.Result.LastClose()),
		Points:   d.forecast(s.Result.Forecast),
		Trend:    s.Result.Summary.Trend,
		Degraded: s.Degraded,
	}
}

type nextBarView struct {
	Symbol         string           `json:"symbol"`
	Prediction     indicators.Label `json:"prediction"`
	Reason         string           `json:"reason"`
	PredictedPrice *float64         `json:"predicted_price"`
	Price          *float64         `json:"current_price"`
	RSI            *float64         `json:"rsi"`
	Degraded       bool             `json:"degraded"`
}

func (d Display) nextBar(s *services.Snapshot, predicted float64, ok bool) nextBarView {
	v := nextBarView{
		Symbol:     s.Symbol,
		Prediction: s.Result.Signal.Label,
		Reason:     s.Result.Signal.Explain(d.Format),
		Price:      d.pricePtr(s.Result.LastClose()),
		RSI:        s.Result.Frame[indicators.KeyRSI14].Last(),
		Degraded:   s.Degraded,
	}
	if ok {
		v.PredictedPrice = d.pricePtr(&predicted)
	}
	return v
}

type predictionView struct {
	Symbol    string           `json:"symbol"`
	Price     float64          `json:"current_price"`
	SMA20     *float64         `json:"sma20"`
	SMA50     *float64         `json:"sma50"`
	RSI       *float64         `json:"rsi"`
	BuyVotes  int              `json:"buy_signals"`
	SellVotes int              `json:"sell_signals"`
	Verdict   screener.Verdict `json:"recommendation"`
}

type outlookView struct {
	GoHigh      []predictionView `json:"go_high"`
	GoLow       []predictionView `json:"go_low"`
	Neutral     []predictionView `json:"neutral"`
	Skipped     []string         `json:"skipped"`
	GeneratedAt time.Time        `json:"generated_at"`
	DurationMs  int64            `json:"duration_ms"`
	Currency    string           `json:"currency"`
}

func (d Display) outlook(o *screener.Outlook) outlookView {
	conv := func(ps []screener.Prediction) []predictionView {
		out := make([]predictionView, len(ps))
		for i, p := range ps {
			out[i] = predictionView{
				Symbol:    p.Symbol,
				Price:     d.price(p.Price),
				SMA20:     d.pricePtr(p.SMA20),
				SMA50:     d.pricePtr(p.SMA50),
				RSI:       p.RSI,
				BuyVotes:  p.BuyVotes,
				SellVotes: p.SellVotes,
				Verdict:   p.Verdict,
			}
		}
		return out
	}
	return outlookView{
		GoHigh:      conv(o.GoHigh),
		GoLow:       conv(o.GoLow),
		Neutral:     conv(o.Neutral),
		Skipped:     o.Skipped,
		GeneratedAt: o.GeneratedAt,
		DurationMs:  o.DurationMs,
		Currency:    d.Symbol,
	}
}

func (d Display) portfolioOf(s *portfolio.Summary) portfolio.Summary {
	out := *s
	out.Positions = make([]portfolio.Position, len(s.Positions))
	for i, p := range s.Positions {
		p.AvgPrice = d.money(p.AvgPrice)
		p.CurrentPrice = d.money(p.CurrentPrice)
		p.CostBasis = d.money(p.CostBasis)
		p.MarketValue = d.money(p.MarketValue)
		p.ProfitLoss = d.money(p.ProfitLoss)
		p.ReturnPercent = p.ReturnPercent.Round(2)
		out.Positions[i] = p
	}
	out.TotalInvested = d.money(s.TotalInvested)
	out.TotalValue = d.money(s.TotalValue)
	out.TotalProfitLoss = d.money(s.TotalProfitLoss)
	out.ReturnPercent = s.ReturnPercent.Round(2)
	out.BestReturnPercent = s.BestReturnPercent.Round(2)
	return out
}

func (d Display) trade(t models.Trade) models.Trade {
	t.Price = d.money(t.Price)
	t.TotalValue = d.money(t.TotalValue)
	return t
}

func (d Display) trades(ts []models.Trade) []models.Trade {
	out := make([]models.Trade, len(ts))
	for i, t := range ts {
		out[i] = d.trade(t)
	}
	return out
}

func (d Display) pulse(p *market.Pulse) market.Pulse {
	out := *p
	out.Movers = make([]market.Mover, len(p.Movers))
	for i, m := range p.Movers {
		m.Price = d.price(m.Price)
		out.Movers[i] = m
	}
	return out
}
