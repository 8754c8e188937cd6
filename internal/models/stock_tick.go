package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// StockTick is one live price observation, finer-grained than a bar. TickID
// is "SYMBOL_<unix-millis>"; the (stock, tick_id) pair dedups replays.
type StockTick struct {
	ID        uint64           `gorm:"primaryKey;autoIncrement"`
	StockID   uint64           `gorm:"not null;uniqueIndex:ux_ticks_stock_tick"`
	TickID    string           `gorm:"type:varchar(100);not null;uniqueIndex:ux_ticks_stock_tick"`
	Timestamp time.Time        `gorm:"not null;index"`
	Price     decimal.Decimal  `gorm:"type:numeric(12,4);not null"`
	Volume    int64            `gorm:"not null"`
	BidPrice  *decimal.Decimal `gorm:"type:numeric(12,4)"`
	AskPrice  *decimal.Decimal `gorm:"type:numeric(12,4)"`
	RawJSON   datatypes.JSON   `gorm:"type:jsonb"`
	CreatedAt time.Time        `gorm:"autoCreateTime"`
}

func (StockTick) TableName() string {
	return "stock_ticks"
}
