package repository

import (
	"errors"
	"fmt"

	"bitstamp-trade-bot-go/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db       *gorm.DB
	balances *balanceRepository
}

var _ Transactions = (*transactionRepository)(nil)

func (r *transactionRepository) Latest(accountID uint) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.
		Where("account_id = ?", accountID).
		Order("datetime DESC").
		First(&transaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest transaction: %w", err)
	}
	return &transaction, nil
}

func (r *transactionRepository) Save(t *models.Transaction) error {
	if t.BalanceID == 0 {
		if err := r.inferBalance(t); err != nil {
			return err
		}
	}
	if err := r.db.Save(t).Error; err != nil {
		return fmt.Errorf("save transaction %d: %w", t.ID, err)
	}
	return nil
}

// inferBalance attaches a balance snapshot computed from transaction
// history: the sums of usd, btc and fee over every prior transaction up to
// and including this one. The snapshot is flagged inferred and never
// recomputed afterwards; the ledger is append-only.
func (r *transactionRepository) inferBalance(t *models.Transaction) error {
	var sums struct {
		USD decimal.Decimal
		BTC decimal.Decimal
		Fee decimal.Decimal
	}
	err := r.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(usd), 0) AS usd, COALESCE(SUM(btc), 0) AS btc, COALESCE(SUM(fee), 0) AS fee").
		Where("account_id = ? AND datetime <= ?", t.AccountID, t.Datetime).
		Scan(&sums).Error
	if err != nil {
		return fmt.Errorf("aggregate transactions for balance inference: %w", err)
	}

	// This transaction is not persisted yet; fold it in.
	usd := sums.USD.Add(t.USD)
	btc := sums.BTC.Add(t.BTC)
	fee := sums.Fee.Add(t.Fee)

	balance := &models.Balance{
		AccountID:  t.AccountID,
		Inferred:   true,
		Timestamp:  t.Datetime,
		USDBalance: usd.Sub(fee),
		BTCBalance: btc,
		Fee:        decimal.Zero,
	}
	if err := r.balances.Create(balance); err != nil {
		return err
	}
	t.BalanceID = balance.ID
	return nil
}
