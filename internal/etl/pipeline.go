package etl

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"stocktracker/internal/config"
	"stocktracker/internal/linker"
	"stocktracker/internal/models"
	"stocktracker/internal/provider"
	"stocktracker/internal/repository"
	"stocktracker/internal/sentiment"
)

// Pipeline runs the extract/transform/load cycles. Market serves prices and
// company metadata; News providers are tried in order and their batches
// loaded independently, so one failing provider never starves the others.
type Pipeline struct {
	Repo      repository.Store
	Market    provider.MarketDataProvider
	News      []provider.NewsProvider
	Sentiment *sentiment.Analyzer
	Resolver  *linker.Resolver
	Logger    *zap.Logger
	Config    config.ETLConfig
}

func NewPipeline(
	repo repository.Store,
	market provider.MarketDataProvider,
	news []provider.NewsProvider,
	analyzer *sentiment.Analyzer,
	resolver *linker.Resolver,
	logger *zap.Logger,
	cfg config.ETLConfig,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		Repo:      repo,
		Market:    market,
		News:      news,
		Sentiment: analyzer,
		Resolver:  resolver,
		Logger:    logger,
		Config:    cfg,
	}
}

// RunStockETL ingests the recent daily bars for one symbol. The whole price
// batch commits or rolls back as a unit; re-runs insert only unseen dates.
// Company metadata is refreshed best-effort after the bars commit, so a flaky
// OVERVIEW endpoint never voids a good price load.
func (p *Pipeline) RunStockETL(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	if p.Market == nil {
		return fmt.Errorf("no market data provider configured")
	}

	bars, err := p.Market.FetchPriceHistory(ctx, symbol, p.Config.PriceWindowDays)
	if err != nil {
		return fmt.Errorf("fetch price history for %s: %w", symbol, err)
	}

	inserted, skipped := 0, 0
	err = p.Repo.InTx(ctx, func(tx *gorm.DB) error {
		stock, err := p.Repo.UpsertStockTx(ctx, tx, symbol)
		if err != nil {
			return err
		}
		for i := range bars {
			bar := &models.PriceBar{
				StockID:  stock.ID,
				Date:     bars[i].Date,
				Open:     bars[i].Open,
				High:     bars[i].High,
				Low:      bars[i].Low,
				Close:    bars[i].Close,
				AdjClose: bars[i].AdjClose,
				Volume:   bars[i].Volume,
			}
			ok, err := p.Repo.InsertPriceBarIfAbsentTx(ctx, tx, bar)
			if err != nil {
				return err
			}
			if ok {
				inserted++
			} else {
				skipped++
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load price bars for %s: %w", symbol, err)
	}
	p.Logger.Info("stock etl done",
		zap.String("symbol", symbol),
		zap.Int("bars_inserted", inserted),
		zap.Int("bars_skipped", skipped))

	p.refreshCompanyInfo(ctx, symbol)
	return nil
}

func (p *Pipeline) refreshCompanyInfo(ctx context.Context, symbol string) {
	info, err := p.Market.FetchCompanyInfo(ctx, symbol)
	if err != nil {
		p.Logger.Warn("company info fetch failed",
			zap.String("symbol", symbol),
			zap.Error(err))
		return
	}
	if info == nil {
		return
	}
	err = p.Repo.UpdateStockInfo(ctx, symbol, repository.StockInfo{
		Name:      info.Name,
		Sector:    info.Sector,
		Exchange:  info.Exchange,
		Currency:  info.Currency,
		MarketCap: info.MarketCap,
	})
	if err != nil {
		p.Logger.Warn("company info update failed",
			zap.String("symbol", symbol),
			zap.Error(err))
	}
}

// RunNewsETL ingests the general batch from every news provider, then, when
// forAllSymbols is set, a targeted batch per active symbol. Provider and load
// failures are logged and skipped; the cycle keeps going.
func (p *Pipeline) RunNewsETL(ctx context.Context, forAllSymbols bool) error {
	active, err := p.Repo.ListActiveStocks(ctx)
	if err != nil {
		return fmt.Errorf("list active stocks: %w", err)
	}

	for _, np := range p.News {
		items, err := np.FetchNews(ctx, "")
		if err != nil {
			p.Logger.Warn("news fetch failed",
				zap.String("provider", np.Name()),
				zap.Error(err))
			continue
		}
		if err := p.loadNews(ctx, np.Name(), items, nil, active); err != nil {
			p.Logger.Warn("news load failed",
				zap.String("provider", np.Name()),
				zap.Error(err))
		}
	}

	if !forAllSymbols {
		return nil
	}

	for i := range active {
		stock := &active[i]
		for _, np := range p.News {
			items, err := np.FetchNews(ctx, stock.Symbol)
			if err != nil {
				p.Logger.Warn("targeted news fetch failed",
					zap.String("provider", np.Name()),
					zap.String("symbol", stock.Symbol),
					zap.Error(err))
				continue
			}
			if len(items) == 0 {
				continue
			}
			if err := p.loadNews(ctx, np.Name(), items, stock, active); err != nil {
				p.Logger.Warn("targeted news load failed",
					zap.String("provider", np.Name()),
					zap.String("symbol", stock.Symbol),
					zap.Error(err))
			}
		}
		if i < len(active)-1 {
			if err := sleepCtx(ctx, p.Config.NewsSymbolDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunFullETL runs a stock cycle per active symbol, then a full news cycle.
func (p *Pipeline) RunFullETL(ctx context.Context) error {
	symbols, err := p.Repo.ListActiveStockSymbols(ctx)
	if err != nil {
		return fmt.Errorf("list active symbols: %w", err)
	}
	if len(symbols) == 0 {
		symbols = p.Config.DefaultSymbols
	}

	for i, symbol := range symbols {
		if err := p.RunStockETL(ctx, symbol); err != nil {
			p.Logger.Warn("stock etl failed",
				zap.String("symbol", symbol),
				zap.Error(err))
		}
		if i < len(symbols)-1 {
			if err := sleepCtx(ctx, p.Config.SymbolDelay); err != nil {
				return err
			}
		}
	}
	return p.RunNewsETL(ctx, true)
}

// loadNews loads one provider batch in a single transaction: unseen URLs are
// inserted, scored by every model, linked, and tagged; seen URLs are skipped
// whole. Any failure rolls back the entire batch.
func (p *Pipeline) loadNews(ctx context.Context, providerName string, items []provider.Article, direct *models.Stock, active []models.Stock) error {
	if len(items) == 0 {
		return nil
	}
	inserted, skipped, links := 0, 0, 0
	err := p.Repo.InTx(ctx, func(tx *gorm.DB) error {
		for i := range items {
			item := &items[i]
			if strings.TrimSpace(item.URL) == "" {
				continue
			}
			// Dedup against the stored form of the URL, or an over-long URL
			// would miss the existing row and bounce the batch off the
			// unique index.
			url := truncate(item.URL, maxURLLen)
			existing, err := p.Repo.FindArticleByURLTx(ctx, tx, url)
			if err != nil {
				return err
			}
			if existing != nil {
				skipped++
				continue
			}

			article := p.toArticle(providerName, item)
			if err := p.Repo.InsertArticleTx(ctx, tx, article); err != nil {
				return err
			}
			inserted++

			if err := p.scoreArticle(ctx, tx, article); err != nil {
				return err
			}

			dir, err := p.directStock(ctx, tx, item, direct, active)
			if err != nil {
				return err
			}
			n, err := p.Resolver.LinkArticleTx(ctx, tx, article, dir, active)
			if err != nil {
				return err
			}
			links += n
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.Logger.Info("news batch loaded",
		zap.String("provider", providerName),
		zap.Int("inserted", inserted),
		zap.Int("skipped", skipped),
		zap.Int("links", links))
	return nil
}

func (p *Pipeline) toArticle(providerName string, item *provider.Article) *models.NewsArticle {
	source := item.SourceName
	if source == "" {
		source = providerName
	}
	article := &models.NewsArticle{
		SourceName:  source,
		Title:       truncate(item.Title, maxTitleLen),
		Content:     sentiment.CleanText(item.Content),
		PublishedAt: item.PublishedAt,
		URL:         truncate(item.URL, maxURLLen),
	}
	if item.Author != "" {
		author := item.Author
		article.Author = &author
	}
	if len(item.RawJSON) > 0 {
		article.RawJSON = datatypes.JSON(item.RawJSON)
	}
	return article
}

// scoreArticle persists one score per model and stamps the article with the
// lexicon model's label.
func (p *Pipeline) scoreArticle(ctx context.Context, tx *gorm.DB, article *models.NewsArticle) error {
	text := article.Title + " " + article.Content
	for _, res := range p.Sentiment.ScoreAll(text) {
		score := &models.SentimentScore{
			ArticleID:  article.ID,
			Model:      res.Model,
			Score:      decimal.NewFromFloat(res.Score).Round(4),
			Label:      res.Label,
			Confidence: decimal.NewFromFloat(res.Confidence).Round(4),
		}
		if _, err := p.Repo.InsertScoreIfAbsentTx(ctx, tx, score); err != nil {
			return err
		}
		if res.Model == sentiment.ModelLexicon {
			label := res.Label
			article.Sentiment = &label
		}
	}
	if article.Sentiment != nil {
		return p.Repo.UpdateArticleTx(ctx, tx, article)
	}
	return nil
}

// directStock picks the direct-tier stock for one article: the targeted
// symbol when the batch has one, otherwise the first provider-attributed
// ticker. Provider attribution creates the stock row if the ticker is unseen.
func (p *Pipeline) directStock(ctx context.Context, tx *gorm.DB, item *provider.Article, direct *models.Stock, active []models.Stock) (*models.Stock, error) {
	if direct != nil {
		return direct, nil
	}
	for _, symbol := range item.Symbols {
		for i := range active {
			if active[i].Symbol == symbol {
				return &active[i], nil
			}
		}
	}
	if len(item.Symbols) > 0 {
		return p.Repo.UpsertStockTx(ctx, tx, item.Symbols[0])
	}
	return nil, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Column widths of news_articles; see models.NewsArticle.
const (
	maxTitleLen = 500
	maxURLLen   = 1000
)

// truncate caps s at max bytes without splitting a multi-byte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
