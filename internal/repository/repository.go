package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stocktracker/internal/models"
)

// StockInfo carries company metadata from a provider to an existing Stock row.
type StockInfo struct {
	Name      string
	Sector    string
	Exchange  string
	Currency  string
	MarketCap int64
}

// Counts summarizes row counts per entity for the status surface.
type Counts struct {
	Stocks   int64 `json:"stocks"`
	Bars     int64 `json:"price_bars"`
	Articles int64 `json:"news_articles"`
	Scores   int64 `json:"sentiment_scores"`
	Links    int64 `json:"news_stock_links"`
	Ticks    int64 `json:"stock_ticks"`
}

// Store is the only boundary the orchestrator crosses to persist state.
// Uniqueness pairs ((stock,date), url, (article,model), (stock,article),
// (stock,tick_id)) are enforced by existence-check-then-insert: the IfAbsent
// methods report false for an existing row instead of an error, and callers
// treat "already exists" as success. A unit of work spanning several rows runs
// inside one InTx call; any failure rolls back the whole batch.
type Store interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Stocks. UpsertStockTx creates a minimal row (name defaulting to the
	// symbol) when the symbol is unseen, so no caller has to pre-create one.
	UpsertStockTx(ctx context.Context, tx *gorm.DB, symbol string) (*models.Stock, error)
	UpdateStockInfo(ctx context.Context, symbol string, info StockInfo) error
	ListActiveStocks(ctx context.Context) ([]models.Stock, error)
	ListActiveStockSymbols(ctx context.Context) ([]string, error)

	// Price bars.
	InsertPriceBarIfAbsentTx(ctx context.Context, tx *gorm.DB, bar *models.PriceBar) (bool, error)

	// News articles.
	FindArticleByURLTx(ctx context.Context, tx *gorm.DB, url string) (*models.NewsArticle, error)
	InsertArticleTx(ctx context.Context, tx *gorm.DB, item *models.NewsArticle) error
	UpdateArticleTx(ctx context.Context, tx *gorm.DB, item *models.NewsArticle) error
	ListUnlinkedArticles(ctx context.Context) ([]models.NewsArticle, error)

	// Sentiment and links.
	InsertScoreIfAbsentTx(ctx context.Context, tx *gorm.DB, item *models.SentimentScore) (bool, error)
	InsertLinkIfAbsentTx(ctx context.Context, tx *gorm.DB, item *models.NewsStockLink) (bool, error)

	// Ticks. InsertTick resolves (or creates) the stock by symbol itself.
	InsertTick(ctx context.Context, symbol string, tick *models.StockTick) (bool, error)
	LatestTickPrice(ctx context.Context, symbol string) (*decimal.Decimal, error)

	CountsByEntity(ctx context.Context) (Counts, error)
}
