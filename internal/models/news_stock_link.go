package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NewsStockLink ties an article to a stock it is about. Relevance reflects
// how the link was established: 0.90 direct, 0.75 text match, 0.50 otherwise.
type NewsStockLink struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement"`
	StockID   uint64          `gorm:"not null;uniqueIndex:ux_links_stock_article"`
	ArticleID uint64          `gorm:"not null;uniqueIndex:ux_links_stock_article"`
	Relevance decimal.Decimal `gorm:"type:numeric(3,2);not null"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (NewsStockLink) TableName() string {
	return "news_stock_links"
}
