package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SentimentScore records one model's verdict for one article. At most one row
// per (article, model); rows are never updated once written.
type SentimentScore struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement"`
	ArticleID  uint64          `gorm:"not null;uniqueIndex:ux_sentiment_article_model"`
	Model      string          `gorm:"type:varchar(100);not null;uniqueIndex:ux_sentiment_article_model"`
	Score      decimal.Decimal `gorm:"type:numeric(5,4);not null"`
	Label      string          `gorm:"type:varchar(20);not null"`
	Confidence decimal.Decimal `gorm:"type:numeric(5,4);not null"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (SentimentScore) TableName() string {
	return "sentiment_scores"
}
