package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"BreakoutScreener/internal/model"
)

// RESTFetcher implements Fetcher against an in-house bar service. Unlike
// Yahoo it can supply market cap and the afternoon session aggregates.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the JSON shape served by the bar service. Dates are YYYY-MM-DD.
type restBar struct {
	Date          string    `json:"date"`
	Name          string    `json:"name"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        float64   `json:"volume"`
	Amount        *float64  `json:"amount"`
	MarketCap     model.Opt `json:"market_cap"`
	After13Amount model.Opt `json:"after_13_amount"`
	After13Low    model.Opt `json:"after_13_low"`
}

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, ticker string, days int) ([]model.PriceBar, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&limit=%d", f.BaseURL, url.QueryEscape(ticker), days)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars %s: %w", ticker, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars %s: status %d, body: %s", ticker, resp.StatusCode, string(body))
	}
	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}

	bars := make([]model.PriceBar, 0, len(raw))
	for _, rb := range raw {
		d, err := model.ParseDay(rb.Date)
		if err != nil {
			return nil, fmt.Errorf("bars %s: %w", ticker, err)
		}
		amount := rb.Close * rb.Volume
		if rb.Amount != nil {
			amount = *rb.Amount
		}
		bars = append(bars, model.PriceBar{
			Date:          d,
			Ticker:        ticker,
			Name:          rb.Name,
			Open:          rb.Open,
			High:          rb.High,
			Low:           rb.Low,
			Close:         rb.Close,
			Volume:        rb.Volume,
			Amount:        amount,
			MarketCap:     rb.MarketCap,
			After13Amount: rb.After13Amount,
			After13Low:    rb.After13Low,
		})
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
