package models

import (
	"time"
)

// Stock is created on the first price/news reference to an unseen symbol and
// never hard-deleted; Active gates inclusion in scheduled ingestion cycles.
type Stock struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Symbol      string    `gorm:"type:varchar(10);uniqueIndex;not null"`
	CompanyName string    `gorm:"type:varchar(255);not null"`
	Sector      string    `gorm:"type:varchar(100)"`
	MarketCap   int64
	Exchange    string    `gorm:"type:varchar(50)"`
	Currency    string    `gorm:"type:varchar(3);default:USD"`
	Active      bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Stock) TableName() string {
	return "stocks"
}
