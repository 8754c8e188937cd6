package alphavantage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stocktracker/internal/provider"
)

// Alpha Vantage reports soft failures (bad symbol, throttling) in a 200 body.
type softError struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (e softError) err() error {
	switch {
	case e.ErrorMessage != "":
		return fmt.Errorf("upstream error: %s", e.ErrorMessage)
	case e.Note != "":
		return fmt.Errorf("throttled: %s", e.Note)
	case e.Information != "":
		return fmt.Errorf("upstream notice: %s", e.Information)
	}
	return nil
}

func parseDailySeries(body []byte) ([]provider.Bar, error) {
	var soft softError
	if err := json.Unmarshal(body, &soft); err == nil {
		if serr := soft.err(); serr != nil {
			return nil, serr
		}
	}

	var payload struct {
		Series map[string]struct {
			Open     string `json:"1. open"`
			High     string `json:"2. high"`
			Low      string `json:"3. low"`
			Close    string `json:"4. close"`
			AdjClose string `json:"5. adjusted close"`
			Volume   string `json:"6. volume"`
		} `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode daily series: %w", err)
	}
	if len(payload.Series) == 0 {
		return nil, nil
	}

	bars := make([]provider.Bar, 0, len(payload.Series))
	for date, row := range payload.Series {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("bad series date %q: %w", date, err)
		}
		open, err := decimal.NewFromString(row.Open)
		if err != nil {
			return nil, fmt.Errorf("bad open for %s: %w", date, err)
		}
		high, err := decimal.NewFromString(row.High)
		if err != nil {
			return nil, fmt.Errorf("bad high for %s: %w", date, err)
		}
		low, err := decimal.NewFromString(row.Low)
		if err != nil {
			return nil, fmt.Errorf("bad low for %s: %w", date, err)
		}
		closeP, err := decimal.NewFromString(row.Close)
		if err != nil {
			return nil, fmt.Errorf("bad close for %s: %w", date, err)
		}
		adj := closeP
		if row.AdjClose != "" {
			if adj, err = decimal.NewFromString(row.AdjClose); err != nil {
				return nil, fmt.Errorf("bad adjusted close for %s: %w", date, err)
			}
		}
		volume, err := strconv.ParseInt(row.Volume, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad volume for %s: %w", date, err)
		}
		bars = append(bars, provider.Bar{
			Date:     day,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closeP,
			AdjClose: adj,
			Volume:   volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func parseOverview(body []byte) (*provider.CompanyInfo, error) {
	var soft softError
	if err := json.Unmarshal(body, &soft); err == nil {
		if serr := soft.err(); serr != nil {
			return nil, serr
		}
	}

	var payload struct {
		Name      string `json:"Name"`
		Sector    string `json:"Sector"`
		Exchange  string `json:"Exchange"`
		Currency  string `json:"Currency"`
		MarketCap string `json:"MarketCapitalization"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode overview: %w", err)
	}
	// An unknown symbol yields an empty object with HTTP 200.
	if payload.Name == "" {
		return nil, nil
	}
	info := &provider.CompanyInfo{
		Name:     payload.Name,
		Sector:   payload.Sector,
		Exchange: payload.Exchange,
		Currency: payload.Currency,
	}
	if payload.MarketCap != "" && payload.MarketCap != "None" {
		if mc, err := strconv.ParseInt(payload.MarketCap, 10, 64); err == nil {
			info.MarketCap = mc
		}
	}
	return info, nil
}

const newsTimeLayout = "20060102T150405"

func parseNewsFeed(body []byte) ([]provider.Article, error) {
	var soft softError
	if err := json.Unmarshal(body, &soft); err == nil {
		if serr := soft.err(); serr != nil {
			return nil, serr
		}
	}

	var payload struct {
		Feed []json.RawMessage `json:"feed"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode news feed: %w", err)
	}

	items := make([]provider.Article, 0, len(payload.Feed))
	for _, raw := range payload.Feed {
		var row struct {
			Title         string   `json:"title"`
			URL           string   `json:"url"`
			TimePublished string   `json:"time_published"`
			Authors       []string `json:"authors"`
			Summary       string   `json:"summary"`
			Source        string   `json:"source"`
			Tickers       []struct {
				Ticker string `json:"ticker"`
			} `json:"ticker_sentiment"`
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		if strings.TrimSpace(row.URL) == "" || strings.TrimSpace(row.Title) == "" {
			continue
		}
		published, err := time.Parse(newsTimeLayout, row.TimePublished)
		if err != nil {
			published = time.Now().UTC()
		}
		item := provider.Article{
			SourceName:  row.Source,
			Title:       row.Title,
			Content:     row.Summary,
			URL:         row.URL,
			PublishedAt: published.UTC(),
			RawJSON:     append([]byte(nil), raw...),
		}
		if item.SourceName == "" {
			item.SourceName = sourceName
		}
		if len(row.Authors) > 0 {
			item.Author = strings.Join(row.Authors, ", ")
		}
		for _, t := range row.Tickers {
			if t.Ticker != "" {
				item.Symbols = append(item.Symbols, strings.ToUpper(t.Ticker))
			}
		}
		items = append(items, item)
	}
	return items, nil
}
