package marketaux

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stocktracker/internal/provider"
)

const sourceName = "marketaux"

// Client talks to the Marketaux news API (/v1/news/all).
type Client struct {
	host       string
	apiToken   string
	language   string
	pageSize   int
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host, apiToken, language string, pageSize int) *Client {
	if host == "" {
		host = "https://api.marketaux.com"
	}
	host = strings.TrimRight(host, "/")
	if language == "" {
		language = "en"
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		host:       host,
		apiToken:   apiToken,
		language:   language,
		pageSize:   pageSize,
		httpClient: httpClient,
	}
}

func (c *Client) Name() string { return sourceName }

func (c *Client) doRequest(ctx context.Context, query url.Values) ([]byte, error) {
	query.Set("api_token", c.apiToken)
	fullURL := c.host + "/v1/news/all?" + query.Encode()
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

// FetchNews returns symbol-targeted stories for a non-empty query, or the
// general finance feed otherwise.
func (c *Client) FetchNews(ctx context.Context, query string) ([]provider.Article, error) {
	q := url.Values{}
	q.Set("language", c.language)
	q.Set("limit", strconv.Itoa(c.pageSize))
	if symbol := strings.ToUpper(strings.TrimSpace(query)); symbol != "" {
		q.Set("symbols", symbol)
		q.Set("filter_entities", "true")
	}
	body, err := c.doRequest(ctx, q)
	if err != nil {
		return nil, &provider.Error{Source: sourceName, Op: "news", Err: err}
	}
	items, err := parseNews(body)
	if err != nil {
		return nil, &provider.Error{Source: sourceName, Op: "news", Err: err}
	}
	return items, nil
}

func parseNews(body []byte) ([]provider.Article, error) {
	var failure struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &failure); err == nil && failure.Error.Message != "" {
		return nil, fmt.Errorf("upstream error %s: %s", failure.Error.Code, failure.Error.Message)
	}

	var payload struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode news payload: %w", err)
	}

	items := make([]provider.Article, 0, len(payload.Data))
	for _, raw := range payload.Data {
		var row struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Snippet     string `json:"snippet"`
			URL         string `json:"url"`
			PublishedAt string `json:"published_at"`
			Source      string `json:"source"`
			Entities    []struct {
				Symbol string `json:"symbol"`
				Type   string `json:"type"`
			} `json:"entities"`
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		if strings.TrimSpace(row.URL) == "" || strings.TrimSpace(row.Title) == "" {
			continue
		}
		published, err := time.Parse(time.RFC3339, row.PublishedAt)
		if err != nil {
			published = time.Now().UTC()
		}
		content := row.Description
		if content == "" {
			content = row.Snippet
		}
		item := provider.Article{
			SourceName:  row.Source,
			Title:       row.Title,
			Content:     content,
			URL:         row.URL,
			PublishedAt: published.UTC(),
			RawJSON:     append([]byte(nil), raw...),
		}
		if item.SourceName == "" {
			item.SourceName = sourceName
		}
		for _, e := range row.Entities {
			if e.Symbol != "" && (e.Type == "" || e.Type == "equity") {
				item.Symbols = append(item.Symbols, strings.ToUpper(e.Symbol))
			}
		}
		items = append(items, item)
	}
	return items, nil
}
