package repository

import (
	"errors"
	"fmt"

	"bitstamp-trade-bot-go/internal/models"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

var _ Orders = (*orderRepository)(nil)

func (r *orderRepository) Get(id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &order, nil
}

func (r *orderRepository) Save(o *models.Order) error {
	if err := r.db.Save(o).Error; err != nil {
		return fmt.Errorf("save order %d: %w", o.ID, err)
	}
	return nil
}

func (r *orderRepository) LatestProcessed(accountID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.
		Where("account_id = ? AND status = ?", accountID, models.OrderProcessed).
		Order("datetime DESC").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest processed order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) OpenNotIn(accountID uint, ids []int64) ([]models.Order, error) {
	query := r.db.Where("account_id = ? AND status = ?", accountID, models.OrderOpen)
	if len(ids) > 0 {
		query = query.Where("id NOT IN ?", ids)
	}

	var orders []models.Order
	if err := query.Order("datetime").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("open orders not in set: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) TransactionCount(orderID int64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Transaction{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("transaction count for order %d: %w", orderID, err)
	}
	return count, nil
}

func (r *orderRepository) CountForSession(sessionID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).
		Where("trading_session_id = ?", sessionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("order count for session %d: %w", sessionID, err)
	}
	return count, nil
}
