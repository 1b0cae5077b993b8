package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide matches the exchange's integer order type encoding.
type OrderSide int

const (
	Buy  OrderSide = 0
	Sell OrderSide = 1
)

func (s OrderSide) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Opposite returns the other side of the book.
func (s OrderSide) Opposite() OrderSide {
	if s == Sell {
		return Buy
	}
	return Sell
}

// OrderStatus is the local lifecycle state of an order.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderCancelled OrderStatus = "cancelled"
	OrderProcessed OrderStatus = "processed"
)

// ErrInvalidTransition is returned when a state machine precondition is
// violated. It indicates data corruption, not a transient condition, and
// callers must not retry the same transition.
var ErrInvalidTransition = errors.New("invalid status transition")

// Order is a limit order known locally. Its primary key is the
// exchange-assigned order id, so orders synthesized from transaction history
// share ids with the exchange's view.
type Order struct {
	ID        int64 `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	AccountID        uint  `gorm:"index"`
	BalanceID        *uint `gorm:"index"`
	TradingSessionID *uint `gorm:"index"`

	Side          OrderSide       `gorm:"index"`
	Price         decimal.Decimal `gorm:"type:numeric"`
	Amount        decimal.Decimal `gorm:"type:numeric"`
	Total         decimal.Decimal `gorm:"type:numeric"`
	Status        OrderStatus     `gorm:"index"`
	StatusChanged *time.Time
	Datetime      time.Time `gorm:"index"`
}

// SetStatus applies a monotonic status transition. Only OPEN orders may
// change status, and only to PROCESSED or CANCELLED; the change timestamp
// is recorded once and never rewritten.
func (o *Order) SetStatus(status OrderStatus, at time.Time) error {
	if o.Status != OrderOpen {
		return fmt.Errorf("%w: order %d is %s, not open", ErrInvalidTransition, o.ID, o.Status)
	}
	if status != OrderProcessed && status != OrderCancelled {
		return fmt.Errorf("%w: order %d cannot move from open to %s", ErrInvalidTransition, o.ID, status)
	}
	o.Status = status
	o.StatusChanged = &at
	return nil
}

func (o *Order) String() string {
	return fmt.Sprintf("%s %s BTC at %s US$", o.Side, o.Amount, o.Price)
}
