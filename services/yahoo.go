package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stock-dashboard/models"
)

const yahooNotFound = "Not Found"

// YahooProvider reads bars from the public Yahoo Finance chart API
type YahooProvider struct {
	baseURL string
	client  *http.Client
}

// NewYahooProvider creates a provider against baseURL, e.g. https://query1.finance.yahoo.com
func NewYahooProvider(baseURL string, timeout time.Duration) *YahooProvider {
	return &YahooProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

// yahooChart is the response structure from the chart API.
// Missing samples arrive as JSON null.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetBars fetches one chart window. Null prices become NaN so the series
// normalizer drops those bars; a null volume reads as zero.
func (p *YahooProvider) GetBars(ctx context.Context, symbol string, r Range) ([]models.Bar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		p.baseURL, url.PathEscape(symbol), url.QueryEscape(r.Interval), url.QueryEscape(r.Period))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart body: %w", err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode chart: %w", err)
	}
	if chart.Chart.Error != nil {
		if chart.Chart.Error.Code == yahooNotFound {
			return []models.Bar{}, nil
		}
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo returned status %d", resp.StatusCode)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return []models.Bar{}, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]models.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bars = append(bars, models.Bar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      sample(quote.Open, i, math.NaN()),
			High:      sample(quote.High, i, math.NaN()),
			Low:       sample(quote.Low, i, math.NaN()),
			Close:     sample(quote.Close, i, math.NaN()),
			Volume:    sample(quote.Volume, i, 0),
		})
	}
	return bars, nil
}

func sample(xs []*float64, i int, missing float64) float64 {
	if i >= len(xs) || xs[i] == nil {
		return missing
	}
	return *xs[i]
}
