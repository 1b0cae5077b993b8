package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType matches the exchange's integer transaction type encoding.
type TransactionType int

const (
	Deposit     TransactionType = 0
	Withdrawal  TransactionType = 1
	MarketTrade TransactionType = 2
)

// Transaction is a single ledger entry: a deposit, a withdrawal, or one leg
// of a trade. Its primary key is the exchange-assigned transaction id.
// Every transaction links to a Balance snapshot; when none is known at save
// time the repository infers one from history.
type Transaction struct {
	ID        int64 `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	AccountID uint   `gorm:"index"`
	BalanceID uint   `gorm:"index"`
	OrderID   *int64 `gorm:"index"`

	Type     TransactionType `gorm:"index"`
	Datetime time.Time       `gorm:"index"`
	USD      decimal.Decimal `gorm:"type:numeric"`
	BTC      decimal.Decimal `gorm:"type:numeric"`
	Fee      decimal.Decimal `gorm:"type:numeric"`
	BTCUSD   decimal.Decimal `gorm:"type:numeric"`
}

// TradeSide reports which side of the book a trade leg was on. Positive USD
// means the account received dollars, i.e. a sell. Only meaningful for
// MarketTrade transactions.
func (t *Transaction) TradeSide() OrderSide {
	if t.USD.IsPositive() {
		return Sell
	}
	return Buy
}
