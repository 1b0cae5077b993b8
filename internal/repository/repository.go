// Package repository is the persistence layer for the domain entities.
// Watchers consume the interfaces; the implementations are gorm-backed.
// Queries that find nothing return (nil, nil) rather than an error, since
// "no latest balance yet" is a normal state for a fresh account.
package repository

import (
	"time"

	"bitstamp-trade-bot-go/internal/models"
	"gorm.io/gorm"
)

// Tickers stores market snapshots.
type Tickers interface {
	// Save persists the ticker unless one with the same timestamp exists.
	// It reports whether the ticker was new.
	Save(t *models.Ticker) (bool, error)
	Latest() (*models.Ticker, error)
}

// Balances stores balance snapshots. Snapshots are append-only.
type Balances interface {
	Create(b *models.Balance) error
	// Latest returns the account's newest snapshot by timestamp.
	Latest(accountID uint) (*models.Balance, error)
	// LatestConfirmed returns the newest non-inferred snapshot.
	LatestConfirmed(accountID uint) (*models.Balance, error)
}

// Orders stores orders keyed by exchange order id.
type Orders interface {
	Get(id int64) (*models.Order, error)
	Save(o *models.Order) error
	// LatestProcessed returns the account's newest PROCESSED order by
	// datetime.
	LatestProcessed(accountID uint) (*models.Order, error)
	// OpenNotIn returns the account's locally OPEN orders whose ids are
	// not in the given set.
	OpenNotIn(accountID uint, ids []int64) ([]models.Order, error)
	// TransactionCount reports how many transactions link to the order.
	TransactionCount(orderID int64) (int64, error)
	// CountForSession reports how many orders a session has produced.
	CountForSession(sessionID uint) (int64, error)
}

// Transactions stores ledger entries keyed by exchange transaction id.
type Transactions interface {
	// Latest returns the account's newest transaction by datetime.
	Latest(accountID uint) (*models.Transaction, error)
	// Save persists the transaction. When it has no balance snapshot yet,
	// one is inferred from transaction history first.
	Save(t *models.Transaction) error
}

// Sessions stores trading sessions.
type Sessions interface {
	Save(s *models.TradingSession) error
	// Active returns the account's single ACTIVE session, if any.
	Active(accountID uint) (*models.TradingSession, error)
	// EarliestQueued returns the oldest QUEUED session, if any.
	EarliestQueued(accountID uint) (*models.TradingSession, error)
	// PreviousByCreated returns the session created most recently before
	// the given time.
	PreviousByCreated(accountID uint, before time.Time) (*models.TradingSession, error)
	// ActiveTradingSession resolves the session to trade under, promoting
	// and finishing sessions as needed. See sessionRepository.
	ActiveTradingSession(accountID uint, now time.Time) (*models.TradingSession, error)
}

// Repository bundles the per-entity repositories over one database handle.
type Repository struct {
	Tickers      Tickers
	Balances     Balances
	Orders       Orders
	Transactions Transactions
	Sessions     Sessions

	db *gorm.DB
}

// New creates a Repository over the given database handle.
func New(db *gorm.DB) *Repository {
	balances := &balanceRepository{db: db}
	orders := &orderRepository{db: db}
	return &Repository{
		Tickers:      &tickerRepository{db: db},
		Balances:     balances,
		Orders:       orders,
		Transactions: &transactionRepository{db: db, balances: balances},
		Sessions:     &sessionRepository{db: db, orders: orders},
		db:           db,
	}
}

// WithTx runs fn against a Repository bound to one database transaction.
// Reconciliation batches use it so the check-then-flip steps observe a
// consistent snapshot.
func (r *Repository) WithTx(fn func(tx *Repository) error) error {
	return r.db.Transaction(func(txdb *gorm.DB) error {
		return fn(New(txdb))
	})
}
