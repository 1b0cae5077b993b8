package repository

import (
	"errors"
	"fmt"

	"bitstamp-trade-bot-go/internal/models"
	"gorm.io/gorm"
)

type tickerRepository struct {
	db *gorm.DB
}

var _ Tickers = (*tickerRepository)(nil)

func (r *tickerRepository) Save(t *models.Ticker) (bool, error) {
	var count int64
	err := r.db.Model(&models.Ticker{}).
		Where("timestamp = ?", t.Timestamp).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check ticker timestamp: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if err := r.db.Create(t).Error; err != nil {
		return false, fmt.Errorf("create ticker: %w", err)
	}
	return true, nil
}

func (r *tickerRepository) Latest() (*models.Ticker, error) {
	var ticker models.Ticker
	err := r.db.Order("timestamp DESC").First(&ticker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest ticker: %w", err)
	}
	return &ticker, nil
}
