package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar holds one trading day of OHLCV for a stock. Rows are immutable
// after insert: a later fetch for an existing (stock, date) is skipped so the
// first authoritative close is preserved.
type PriceBar struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement"`
	StockID   uint64          `gorm:"not null;uniqueIndex:ux_price_bars_stock_date"`
	Date      time.Time       `gorm:"type:date;not null;uniqueIndex:ux_price_bars_stock_date"`
	Open      decimal.Decimal `gorm:"type:numeric(12,4);not null"`
	High      decimal.Decimal `gorm:"type:numeric(12,4);not null"`
	Low       decimal.Decimal `gorm:"type:numeric(12,4);not null"`
	Close     decimal.Decimal `gorm:"type:numeric(12,4);not null"`
	AdjClose  decimal.Decimal `gorm:"type:numeric(12,4)"`
	Volume    int64           `gorm:"not null"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (PriceBar) TableName() string {
	return "price_bars"
}
