package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ticker is a market snapshot as reported by the exchange.
// The latest row by timestamp is the current market view.
type Ticker struct {
	gorm.Model
	Timestamp time.Time       `gorm:"uniqueIndex"`
	Last      decimal.Decimal `gorm:"type:numeric"`
	High      decimal.Decimal `gorm:"type:numeric"`
	Low       decimal.Decimal `gorm:"type:numeric"`
	Bid       decimal.Decimal `gorm:"type:numeric"`
	Ask       decimal.Decimal `gorm:"type:numeric"`
	VWAP      decimal.Decimal `gorm:"type:numeric"`
	Volume    decimal.Decimal `gorm:"type:numeric"`
}
