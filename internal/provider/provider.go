package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Error wraps a provider failure with enough context to log it usefully
// without the caller inspecting provider internals.
type Error struct {
	Source string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Bar is one daily OHLCV observation as fetched upstream, before it is bound
// to a stock row.
type Bar struct {
	Date     time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	AdjClose decimal.Decimal
	Volume   int64
}

// CompanyInfo is provider-reported company metadata for a symbol. Zero-value
// fields mean the provider did not report them.
type CompanyInfo struct {
	Name      string
	Sector    string
	Exchange  string
	Currency  string
	MarketCap int64
}

// Article is a provider-shape news item. Symbols carries any tickers the
// provider itself attributed to the story; RawJSON keeps the upstream payload
// for audit.
type Article struct {
	SourceName  string
	Title       string
	Content     string
	Author      string
	URL         string
	PublishedAt time.Time
	Symbols     []string
	RawJSON     []byte
}

// MarketDataProvider serves historical bars and company metadata.
type MarketDataProvider interface {
	Name() string
	FetchPriceHistory(ctx context.Context, symbol string, days int) ([]Bar, error)
	FetchCompanyInfo(ctx context.Context, symbol string) (*CompanyInfo, error)
}

// NewsProvider serves articles. An empty query asks for the provider's
// general batch rather than symbol-targeted results.
type NewsProvider interface {
	Name() string
	FetchNews(ctx context.Context, query string) ([]Article, error)
}
