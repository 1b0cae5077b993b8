package trader

import (
	"context"
	"fmt"

	"bitstamp-trade-bot-go/internal/bitstamp"
	"bitstamp-trade-bot-go/internal/models"
	"bitstamp-trade-bot-go/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// transactionsPageSize is how many feed entries one page request asks for.
const transactionsPageSize = 10

// txGroup is a run of consecutive feed entries sharing one order id
// (nil for deposits and withdrawals).
type txGroup struct {
	orderID      *int64
	transactions []models.Transaction
}

// syncTransactions folds the exchange's flat transaction feed into local
// Order, Transaction and Balance records. Orders that were never observed
// as OPEN, e.g. filled between polls or predating the bot, are synthesized
// as PROCESSED from their trade legs.
func (a *App) syncTransactions(ctx context.Context) (struct{}, error) {
	var none struct{}

	newTransactions, err := a.fetchNewTransactions(ctx)
	if err != nil {
		return none, err
	}
	if len(newTransactions) == 0 {
		return none, nil
	}
	a.log.Info("syncing new transactions", zap.Int("count", len(newTransactions)))

	groups := groupByOrder(newTransactions)
	var changedOrders []models.Order

	err = a.deps.Repo.WithTx(func(tx *repository.Repository) error {
		changedOrders = changedOrders[:0]
		for i := range groups {
			group := &groups[i]
			if group.orderID == nil {
				for j := range group.transactions {
					if err := tx.Transactions.Save(&group.transactions[j]); err != nil {
						return err
					}
				}
				continue
			}
			order, err := a.reconcileOrderGroup(tx, group)
			if err != nil {
				return err
			}
			changedOrders = append(changedOrders, *order)
		}
		return nil
	})
	if err != nil {
		return none, err
	}

	for i := range changedOrders {
		a.deps.Pub.Publish("Order", changedOrders[i:i+1])
	}
	for _, group := range groups {
		a.deps.Pub.Publish("Transaction", group.transactions)
	}

	if err := a.refreshBalance(ctx); err != nil {
		return none, err
	}
	a.log.Info("finished syncing transactions")
	return none, nil
}

// fetchNewTransactions pages the descending feed until it reaches the
// locally known latest transaction, then returns the new entries in
// chronological order.
func (a *App) fetchNewTransactions(ctx context.Context) ([]models.Transaction, error) {
	latest, err := a.deps.Repo.Transactions.Latest(a.deps.Account.ID)
	if err != nil {
		return nil, err
	}

	var fetched []models.Transaction
	offset := 0
	done := false
	for !done {
		page, err := a.deps.Client.UserTransactions(ctx, offset, transactionsPageSize, true)
		if err != nil {
			return nil, err
		}
		offset += transactionsPageSize
		if len(page) == 0 {
			break
		}
		for _, entry := range page {
			if latest != nil && entry.ID == latest.ID {
				done = true
				break
			}
			fetched = append(fetched, a.toTransaction(entry))
		}
	}

	// Oldest first, so balance inference folds history in order.
	for i, j := 0, len(fetched)-1; i < j; i, j = i+1, j-1 {
		fetched[i], fetched[j] = fetched[j], fetched[i]
	}
	return fetched, nil
}

func (a *App) toTransaction(entry bitstamp.Transaction) models.Transaction {
	return models.Transaction{
		ID:        entry.ID,
		AccountID: a.deps.Account.ID,
		OrderID:   entry.OrderID,
		Type:      models.TransactionType(entry.Type),
		Datetime:  entry.Datetime.Time,
		USD:       entry.USD,
		BTC:       entry.BTC,
		Fee:       entry.Fee,
		BTCUSD:    entry.BTCUSD,
	}
}

// groupByOrder splits a chronological batch into runs of consecutive
// entries sharing an order id, preserving order within and across runs.
func groupByOrder(transactions []models.Transaction) []txGroup {
	var groups []txGroup
	for _, t := range transactions {
		if len(groups) > 0 && sameOrderID(groups[len(groups)-1].orderID, t.OrderID) {
			last := &groups[len(groups)-1]
			last.transactions = append(last.transactions, t)
			continue
		}
		groups = append(groups, txGroup{orderID: t.OrderID, transactions: []models.Transaction{t}})
	}
	return groups
}

func sameOrderID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// reconcileOrderGroup applies one trade-leg group to its order: the order is
// loaded, or synthesized as PROCESSED when the exchange filled it before we
// ever saw it OPEN, its amount/price/total are accumulated from the legs,
// and its balance pointer is moved to the snapshot of the group's last leg.
func (a *App) reconcileOrderGroup(tx *repository.Repository, group *txGroup) (*models.Order, error) {
	usd := decimal.Zero
	btc := decimal.Zero
	earliest := group.transactions[0].Datetime
	for _, t := range group.transactions {
		usd = usd.Add(t.USD)
		btc = btc.Add(t.BTC)
		if t.Datetime.Before(earliest) {
			earliest = t.Datetime
		}
	}

	order, err := tx.Orders.Get(*group.orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		side := models.Buy
		if usd.IsPositive() {
			side = models.Sell
		}
		order = &models.Order{
			ID:        *group.orderID,
			AccountID: a.deps.Account.ID,
			Datetime:  earliest,
			Side:      side,
			Status:    models.OrderProcessed,
		}
		a.log.Info("order for transaction group does not exist, synthesizing",
			zap.Int64("order_id", order.ID), zap.String("side", side.String()))
	}

	order.Amount = order.Amount.Add(btc.Abs())
	if order.Amount.IsZero() {
		return nil, fmt.Errorf("order %d has zero amount after applying transactions", order.ID)
	}
	order.Price = usd.Div(order.Amount).Abs()
	order.Total = order.Total.Add(usd.Abs())
	if err := tx.Orders.Save(order); err != nil {
		return nil, err
	}

	for i := range group.transactions {
		group.transactions[i].OrderID = group.orderID
		if err := tx.Transactions.Save(&group.transactions[i]); err != nil {
			return nil, err
		}
	}

	// The last leg's inferred balance is the order's final balance.
	lastBalance := group.transactions[len(group.transactions)-1].BalanceID
	order.BalanceID = &lastBalance
	if err := tx.Orders.Save(order); err != nil {
		return nil, err
	}
	return order, nil
}
