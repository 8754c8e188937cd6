package alphavantage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stocktracker/internal/provider"
)

const sourceName = "alphavantage"

// Client talks to the Alpha Vantage REST API. It implements both the market
// data and the news sides of the provider surface.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host, apiKey string) *Client {
	if host == "" {
		host = "https://www.alphavantage.co"
	}
	host = strings.TrimRight(host, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		host:       host,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *Client) Name() string { return sourceName }

func (c *Client) doRequest(ctx context.Context, query url.Values) ([]byte, error) {
	query.Set("apikey", c.apiKey)
	fullURL := c.host + "/query?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// FetchPriceHistory returns up to the last `days` daily bars, oldest first.
func (c *Client) FetchPriceHistory(ctx context.Context, symbol string, days int) ([]provider.Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, &provider.Error{Source: sourceName, Op: "price_history", Err: fmt.Errorf("symbol is required")}
	}
	query := url.Values{}
	query.Set("function", "TIME_SERIES_DAILY_ADJUSTED")
	query.Set("symbol", symbol)
	query.Set("outputsize", outputSize(days))
	body, err := c.doRequest(ctx, query)
	if err != nil {
		return nil, &provider.Error{Source: sourceName, Op: "price_history", Err: err}
	}
	bars, err := parseDailySeries(body)
	if err != nil {
		return nil, &provider.Error{Source: sourceName, Op: "price_history", Err: err}
	}
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// FetchCompanyInfo returns the OVERVIEW metadata for a symbol, or nil when
// Alpha Vantage has no record of it.
func (c *Client) FetchCompanyInfo(ctx context.Context, symbol string) (*provider.CompanyInfo, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, &provider.Error{Source: sourceName, Op: "company_info", Err: fmt.Errorf("symbol is required")}
	}
	query := url.Values{}
	query.Set("function", "OVERVIEW")
	query.Set("symbol", symbol)
	body, err := c.doRequest(ctx, query)
	if err != nil {
		return nil, &provider.Error{Source: sourceName, Op: "company_info", Err: err}
	}
	info, err := parseOverview(body)
	if err != nil {
		return nil, &provider.Error{Source: sourceName, Op: "company_info", Err: err}
	}
	return info, nil
}

// FetchNews returns ticker-targeted stories when query is a symbol, or the
// general market feed when it is empty.
func (c *Client) FetchNews(ctx context.Context, query string) ([]provider.Article, error) {
	q := url.Values{}
	q.Set("function", "NEWS_SENTIMENT")
	if symbol := strings.ToUpper(strings.TrimSpace(query)); symbol != "" {
		q.Set("tickers", symbol)
	}
	q.Set("sort", "LATEST")
	body, err := c.doRequest(ctx, q)
	if err != nil {
		return nil, &provider.Error{Source: sourceName, Op: "news", Err: err}
	}
	items, err := parseNewsFeed(body)
	if err != nil {
		return nil, &provider.Error{Source: sourceName, Op: "news", Err: err}
	}
	return items, nil
}

func outputSize(days int) string {
	if days > 0 && days <= 100 {
		return "compact"
	}
	return "full"
}
