package services

import (
	"strings"
	"time"
)

// Range is a history window and bar interval, in Yahoo chart vocabulary
type Range struct {
	Period   string `json:"period"`
	Interval string `json:"interval"`
}

var (
	// DefaultRange is used for unknown periods
	DefaultRange = Range{Period: "1y", Interval: "1d"}

	// FallbackRange is retried when the requested range comes back empty
	FallbackRange = Range{Period: "1mo", Interval: "1d"}

	// QuoteRange is enough daily history for a last and previous close
	QuoteRange = Range{Period: "5d", Interval: "1d"}
)

var periodRanges = map[string]Range{
	"1d":  {Period: "1d", Interval: "5m"},
	"1wk": {Period: "5d", Interval: "30m"},
	"1w":  {Period: "5d", Interval: "30m"},
	"5d":  {Period: "5d", Interval: "30m"},
	"1mo": {Period: "1mo", Interval: "1d"},
	"1m":  {Period: "1mo", Interval: "1d"},
	"3mo": {Period: "3mo", Interval: "1d"},
	"3m":  {Period: "3mo", Interval: "1d"},
	"6mo": {Period: "6mo", Interval: "1d"},
	"6m":  {Period: "6mo", Interval: "1d"},
	"1y":  {Period: "1y", Interval: "1d"},
	"5y":  {Period: "5y", Interval: "1wk"},
	"max": {Period: "max", Interval: "1wk"},
	"all": {Period: "max", Interval: "1wk"},
}

// ResolveRange maps a dashboard period such as "1w" or "6m" to a Range
func ResolveRange(period string) Range {
	if r, ok := periodRanges[strings.ToLower(strings.TrimSpace(period))]; ok {
		return r
	}
	return DefaultRange
}

// Start returns the first instant covered by the range, relative to now
func (r Range) Start(now time.Time) time.Time {
	switch r.Period {
	case "1d":
		return now.AddDate(0, 0, -1)
	case "5d":
		return now.AddDate(0, 0, -7)
	case "1mo":
		return now.AddDate(0, -1, 0)
	case "3mo":
		return now.AddDate(0, -3, 0)
	case "6mo":
		return now.AddDate(0, -6, 0)
	case "5y":
		return now.AddDate(-5, 0, 0)
	case "max":
		return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return now.AddDate(-1, 0, 0)
	}
}

func (r Range) String() string {
	return r.Period + "/" + r.Interval
}
