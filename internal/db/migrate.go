package db

import (
	"stocktracker/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Stock{},
		&models.PriceBar{},
		&models.NewsArticle{},
		&models.SentimentScore{},
		&models.NewsStockLink{},
		&models.StockTick{},
	)
}
