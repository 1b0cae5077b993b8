package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Balance is a point-in-time snapshot of the account's funds.
//
// Confirmed snapshots come straight from the exchange; inferred ones are
// computed by summing transaction history (see repository.Transactions.Save).
// Snapshots are append-only and never mutated; the latest row by timestamp
// is the canonical current balance.
type Balance struct {
	gorm.Model
	AccountID uint `gorm:"index"`
	Inferred  bool
	Timestamp time.Time `gorm:"index"`

	Fee          decimal.Decimal `gorm:"type:numeric"`
	USDBalance   decimal.Decimal `gorm:"type:numeric"`
	BTCBalance   decimal.Decimal `gorm:"type:numeric"`
	USDReserved  decimal.Decimal `gorm:"type:numeric"`
	BTCReserved  decimal.Decimal `gorm:"type:numeric"`
	USDAvailable decimal.Decimal `gorm:"type:numeric"`
	BTCAvailable decimal.Decimal `gorm:"type:numeric"`
}
