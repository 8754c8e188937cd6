package models

import (
	"time"

	"gorm.io/datatypes"
)

// NewsArticle is unique on source URL; the same article arriving from several
// queries collapses into one row. Symbol/Company/Sentiment are backfilled by
// the resolver and scorer after insert.
type NewsArticle struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement"`
	SourceName  string         `gorm:"type:varchar(255)"`
	Company     *string        `gorm:"type:varchar(255)"`
	Symbol      *string        `gorm:"type:varchar(10)"`
	Sentiment   *string        `gorm:"type:varchar(20)"`
	Title       string         `gorm:"type:varchar(500);not null"`
	Content     string         `gorm:"type:text"`
	Author      *string        `gorm:"type:varchar(255)"`
	PublishedAt time.Time      `gorm:"not null"`
	URL         string         `gorm:"type:varchar(1000);uniqueIndex;not null"`
	RawJSON     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
}

func (NewsArticle) TableName() string {
	return "news_articles"
}
