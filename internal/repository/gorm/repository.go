package gormrepository

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stocktracker/internal/models"
	"stocktracker/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// conn prefers the caller's transaction so the IfAbsent checks and their
// inserts observe the same snapshot.
func (s *Store) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

// --- stocks -----------------------------------------------------------------

func (s *Store) UpsertStockTx(ctx context.Context, tx *gorm.DB, symbol string) (*models.Stock, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("empty symbol")
	}
	conn := s.conn(ctx, tx)

	var stock models.Stock
	err := conn.Where("symbol = ?", symbol).First(&stock).Error
	if err == nil {
		return &stock, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	stock = models.Stock{
		Symbol:      symbol,
		CompanyName: symbol,
		Active:      true,
	}
	// OnConflict backstop: a concurrent run for the same unseen symbol may win
	// the insert race; re-read instead of failing.
	if err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoNothing: true,
	}).Create(&stock).Error; err != nil {
		return nil, err
	}
	if stock.ID == 0 {
		if err := conn.Where("symbol = ?", symbol).First(&stock).Error; err != nil {
			return nil, err
		}
	}
	return &stock, nil
}

func (s *Store) UpdateStockInfo(ctx context.Context, symbol string, info repository.StockInfo) error {
	if s == nil || s.db == nil {
		return nil
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil
	}
	updates := map[string]any{}
	if strings.TrimSpace(info.Name) != "" {
		updates["company_name"] = truncate(info.Name, 255)
	}
	if info.Sector != "" {
		updates["sector"] = truncate(info.Sector, 100)
	}
	if info.Exchange != "" {
		updates["exchange"] = truncate(info.Exchange, 50)
	}
	if info.Currency != "" {
		updates["currency"] = truncate(info.Currency, 3)
	}
	if info.MarketCap > 0 {
		updates["market_cap"] = info.MarketCap
	}
	if len(updates) == 0 {
		return nil
	}
	// No-op for unknown symbols: zero rows affected is not an error.
	return s.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("symbol = ?", symbol).
		Updates(updates).
		Error
}

func (s *Store) ListActiveStocks(ctx context.Context) ([]models.Stock, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Stock
	if err := s.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("active = ?", true).
		Order("symbol asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListActiveStockSymbols(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var symbols []string
	if err := s.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("active = ?", true).
		Order("symbol asc").
		Pluck("symbol", &symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

// --- price bars -------------------------------------------------------------

func (s *Store) InsertPriceBarIfAbsentTx(ctx context.Context, tx *gorm.DB, bar *models.PriceBar) (bool, error) {
	if s == nil || s.db == nil || bar == nil {
		return false, nil
	}
	conn := s.conn(ctx, tx)
	var count int64
	if err := conn.Model(&models.PriceBar{}).
		Where("stock_id = ? AND date = ?", bar.StockID, bar.Date).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(bar).Error; err != nil {
		return false, err
	}
	return true, nil
}

// --- news articles ----------------------------------------------------------

func (s *Store) FindArticleByURLTx(ctx context.Context, tx *gorm.DB, url string) (*models.NewsArticle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil
	}
	var item models.NewsArticle
	err := s.conn(ctx, tx).Where("url = ?", url).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertArticleTx(ctx context.Context, tx *gorm.DB, item *models.NewsArticle) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) UpdateArticleTx(ctx context.Context, tx *gorm.DB, item *models.NewsArticle) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.conn(ctx, tx).Save(item).Error
}

func (s *Store) ListUnlinkedArticles(ctx context.Context) ([]models.NewsArticle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.NewsArticle
	err := s.db.WithContext(ctx).
		Model(&models.NewsArticle{}).
		Where("id NOT IN (?)", s.db.Model(&models.NewsStockLink{}).Select("article_id")).
		Order("published_at desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- sentiment scores -------------------------------------------------------

func (s *Store) InsertScoreIfAbsentTx(ctx context.Context, tx *gorm.DB, item *models.SentimentScore) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	conn := s.conn(ctx, tx)
	var count int64
	if err := conn.Model(&models.SentimentScore{}).
		Where("article_id = ? AND model = ?", item.ArticleID, item.Model).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article_id"}, {Name: "model"}},
		DoNothing: true,
	}).Create(item).Error; err != nil {
		return false, err
	}
	return true, nil
}

// --- news/stock links -------------------------------------------------------

func (s *Store) InsertLinkIfAbsentTx(ctx context.Context, tx *gorm.DB, item *models.NewsStockLink) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	conn := s.conn(ctx, tx)
	var count int64
	if err := conn.Model(&models.NewsStockLink{}).
		Where("stock_id = ? AND article_id = ?", item.StockID, item.ArticleID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_id"}, {Name: "article_id"}},
		DoNothing: true,
	}).Create(item).Error; err != nil {
		return false, err
	}
	return true, nil
}

// --- ticks ------------------------------------------------------------------

func (s *Store) InsertTick(ctx context.Context, symbol string, tick *models.StockTick) (bool, error) {
	if s == nil || s.db == nil || tick == nil {
		return false, nil
	}
	inserted := false
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		stock, err := s.UpsertStockTx(ctx, tx, symbol)
		if err != nil {
			return err
		}
		tick.StockID = stock.ID
		var count int64
		if err := tx.Model(&models.StockTick{}).
			Where("stock_id = ? AND tick_id = ?", tick.StockID, tick.TickID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stock_id"}, {Name: "tick_id"}},
			DoNothing: true,
		}).Create(tick).Error; err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

func (s *Store) LatestTickPrice(ctx context.Context, symbol string) (*decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	var tick models.StockTick
	err := s.db.WithContext(ctx).
		Joins("JOIN stocks ON stocks.id = stock_ticks.stock_id").
		Where("stocks.symbol = ?", symbol).
		Order("stock_ticks.timestamp desc").
		First(&tick).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tick.Price, nil
}

// --- status -----------------------------------------------------------------

func (s *Store) CountsByEntity(ctx context.Context) (repository.Counts, error) {
	var out repository.Counts
	if s == nil || s.db == nil {
		return out, nil
	}
	tables := []struct {
		model any
		dst   *int64
	}{
		{&models.Stock{}, &out.Stocks},
		{&models.PriceBar{}, &out.Bars},
		{&models.NewsArticle{}, &out.Articles},
		{&models.SentimentScore{}, &out.Scores},
		{&models.NewsStockLink{}, &out.Links},
		{&models.StockTick{}, &out.Ticks},
	}
	for _, t := range tables {
		if err := s.db.WithContext(ctx).Model(t.model).Count(t.dst).Error; err != nil {
			return out, err
		}
	}
	return out, nil
}

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
