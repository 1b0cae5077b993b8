package repository

import (
	"errors"
	"fmt"

	"bitstamp-trade-bot-go/internal/models"
	"gorm.io/gorm"
)

type balanceRepository struct {
	db *gorm.DB
}

var _ Balances = (*balanceRepository)(nil)

func (r *balanceRepository) Create(b *models.Balance) error {
	if err := r.db.Create(b).Error; err != nil {
		return fmt.Errorf("create balance: %w", err)
	}
	return nil
}

func (r *balanceRepository) Latest(accountID uint) (*models.Balance, error) {
	return r.latest(accountID, false)
}

func (r *balanceRepository) LatestConfirmed(accountID uint) (*models.Balance, error) {
	return r.latest(accountID, true)
}

func (r *balanceRepository) latest(accountID uint, confirmedOnly bool) (*models.Balance, error) {
	query := r.db.Where("account_id = ?", accountID)
	if confirmedOnly {
		query = query.Where("inferred = ?", false)
	}

	var balance models.Balance
	err := query.Order("timestamp DESC").First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest balance: %w", err)
	}
	return &balance, nil
}
