package linker

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stocktracker/internal/models"
	"stocktracker/internal/repository"
)

// Relevance tiers reflect how a link was established, not how good the story
// is: direct provider attribution outranks a text match, which outranks a
// bare association.
var (
	RelevanceDirect  = decimal.NewFromFloat(0.90)
	RelevanceText    = decimal.NewFromFloat(0.75)
	RelevanceDefault = decimal.NewFromFloat(0.50)
)

// Resolver links news articles to the stocks they are about.
type Resolver struct {
	Repo   repository.Store
	Logger *zap.Logger
}

func NewResolver(repo repository.Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{Repo: repo, Logger: logger}
}

// LinkArticleTx links one article inside the caller's transaction. A non-nil
// direct stock gets the direct tier; every active stock whose symbol or
// company name appears in the article text gets the text tier. Existing pairs
// are left untouched, so a direct link established today is never demoted by
// tomorrow's text pass. Returns the number of links created.
func (r *Resolver) LinkArticleTx(ctx context.Context, tx *gorm.DB, article *models.NewsArticle, direct *models.Stock, active []models.Stock) (int, error) {
	if r == nil || article == nil || article.ID == 0 {
		return 0, nil
	}

	created := 0
	linked := map[uint64]bool{}

	if direct != nil && direct.ID != 0 {
		ok, err := r.Repo.InsertLinkIfAbsentTx(ctx, tx, &models.NewsStockLink{
			StockID:   direct.ID,
			ArticleID: article.ID,
			Relevance: RelevanceDirect,
		})
		if err != nil {
			return created, err
		}
		linked[direct.ID] = true
		if ok {
			created++
		}
		r.backfillTags(ctx, tx, article, direct)
	}

	haystack := strings.ToLower(article.Title + " " + article.Content)
	for i := range active {
		stock := &active[i]
		if stock.ID == 0 || linked[stock.ID] {
			continue
		}
		if !mentions(haystack, stock) {
			continue
		}
		ok, err := r.Repo.InsertLinkIfAbsentTx(ctx, tx, &models.NewsStockLink{
			StockID:   stock.ID,
			ArticleID: article.ID,
			Relevance: RelevanceText,
		})
		if err != nil {
			return created, err
		}
		linked[stock.ID] = true
		if ok {
			created++
		}
		r.backfillTags(ctx, tx, article, stock)
	}
	return created, nil
}

// LinkExisting runs the text tier over every article that has no links yet.
// Articles ingested before a stock was tracked get picked up retroactively.
func (r *Resolver) LinkExisting(ctx context.Context) (int, error) {
	if r == nil || r.Repo == nil {
		return 0, nil
	}
	articles, err := r.Repo.ListUnlinkedArticles(ctx)
	if err != nil {
		return 0, err
	}
	if len(articles) == 0 {
		return 0, nil
	}
	active, err := r.Repo.ListActiveStocks(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := range articles {
		article := &articles[i]
		err := r.Repo.InTx(ctx, func(tx *gorm.DB) error {
			n, err := r.LinkArticleTx(ctx, tx, article, nil, active)
			total += n
			return err
		})
		if err != nil {
			r.Logger.Warn("retroactive link failed",
				zap.Uint64("article_id", article.ID),
				zap.Error(err))
		}
	}
	r.Logger.Info("retroactive linking done",
		zap.Int("articles", len(articles)),
		zap.Int("links_created", total))
	return total, nil
}

// mentions reports whether the article text names the stock, by symbol or by
// company name (with and without the corporate suffix). Candidates shorter
// than two characters are skipped: single letters match everywhere.
func mentions(haystack string, stock *models.Stock) bool {
	symbol := strings.ToLower(stock.Symbol)
	if len(symbol) >= 2 && strings.Contains(haystack, symbol) {
		return true
	}
	name := strings.ToLower(strings.TrimSpace(stock.CompanyName))
	for _, candidate := range []string{name, stripCorpSuffix(name)} {
		if len(candidate) >= 2 && candidate != symbol && strings.Contains(haystack, candidate) {
			return true
		}
	}
	return false
}

var corpSuffixes = []string{" inc.", " inc", " corp.", " corp", " corporation", " co.", " ltd.", " ltd", " plc", " llc"}

func stripCorpSuffix(name string) string {
	for _, suffix := range corpSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(name, suffix))
		}
	}
	return name
}

// backfillTags fills the article's company/symbol tags from the first stock
// it links to, for articles that arrived untagged. Best-effort: a failed
// update never fails the link.
func (r *Resolver) backfillTags(ctx context.Context, tx *gorm.DB, article *models.NewsArticle, stock *models.Stock) {
	if article.Symbol != nil && *article.Symbol != "" {
		return
	}
	symbol := stock.Symbol
	company := stock.CompanyName
	article.Symbol = &symbol
	article.Company = &company
	if err := r.Repo.UpdateArticleTx(ctx, tx, article); err != nil {
		r.Logger.Warn("article tag backfill failed",
			zap.Uint64("article_id", article.ID),
			zap.Error(err))
	}
}
