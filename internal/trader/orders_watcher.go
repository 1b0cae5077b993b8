package trader

import (
	"context"
	"time"

	"bitstamp-trade-bot-go/internal/bitstamp"
	"bitstamp-trade-bot-go/internal/models"
	"bitstamp-trade-bot-go/internal/repository"
	"go.uber.org/zap"
)

// watchOrders reconciles the exchange's open-order snapshot with local
// records. When the exchange reports no open orders it invokes the Trader,
// which may place one; the placed order is folded into this same cycle so
// it is known locally without waiting a full poll round-trip.
func (a *App) watchOrders(ctx context.Context) (struct{}, error) {
	var none struct{}

	openOrders, err := a.deps.Client.OpenOrders(ctx)
	if err != nil {
		return none, err
	}
	a.log.Info("open orders", zap.Int("count", len(openOrders)))

	// Orders already on the book were placed manually; they belong to no
	// session.
	var session *models.TradingSession
	if len(openOrders) == 0 {
		a.log.Info("no open orders, invoking trader")
		placed, err := a.trader.RunOnce(ctx)
		if err != nil {
			return none, err
		}
		if placed == nil {
			return none, nil
		}
		a.log.Info("trader placed order", zap.Int64("order_id", placed.Order.ID))
		session = placed.Session
		openOrders = []bitstamp.Order{*placed.Order}
	}

	if err := a.saveUnknownOrders(openOrders, session); err != nil {
		return none, err
	}

	openIDs := make([]int64, len(openOrders))
	for i, o := range openOrders {
		openIDs[i] = o.ID
	}
	hasChanges, err := a.sweepOrderStatuses(openIDs)
	if err != nil {
		return none, err
	}

	if len(openOrders) > 0 || hasChanges {
		if err := a.refreshBalance(ctx); err != nil {
			return none, err
		}
	}
	return none, nil
}

// saveUnknownOrders persists exchange-reported open orders we have no local
// record of, snapshotting the current balance against each.
func (a *App) saveUnknownOrders(openOrders []bitstamp.Order, session *models.TradingSession) error {
	for _, reported := range openOrders {
		existing, err := a.deps.Repo.Orders.Get(reported.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		var balanceID *uint
		if latest, err := a.deps.Repo.Balances.Latest(a.deps.Account.ID); err != nil {
			return err
		} else if latest != nil {
			balanceID = &latest.ID
		}
		var sessionID *uint
		if session != nil {
			sessionID = &session.ID
		}

		order := models.Order{
			ID:               reported.ID,
			AccountID:        a.deps.Account.ID,
			BalanceID:        balanceID,
			TradingSessionID: sessionID,
			Side:             models.OrderSide(reported.Type),
			Price:            reported.Price,
			Amount:           reported.Amount,
			Status:           models.OrderOpen,
			Datetime:         reported.Datetime.Time,
		}
		if err := a.deps.Repo.Orders.Save(&order); err != nil {
			return err
		}
		a.deps.Pub.Publish("Order", []models.Order{order})
		a.log.Info("saved open order", zap.Int64("order_id", order.ID))
	}
	return nil
}

// sweepOrderStatuses flips locally OPEN orders that the exchange no longer
// reports as open: those with trade legs became PROCESSED, those without
// were CANCELLED. The whole sweep shares one timestamp and one database
// transaction, so the check-then-flip observes a consistent snapshot.
func (a *App) sweepOrderStatuses(openIDs []int64) (bool, error) {
	now := time.Now()
	var changed []models.Order

	err := a.deps.Repo.WithTx(func(tx *repository.Repository) error {
		changed = changed[:0]
		stale, err := tx.Orders.OpenNotIn(a.deps.Account.ID, openIDs)
		if err != nil {
			return err
		}
		for i := range stale {
			count, err := tx.Orders.TransactionCount(stale[i].ID)
			if err != nil {
				return err
			}
			status := models.OrderCancelled
			if count > 0 {
				status = models.OrderProcessed
			}
			if err := stale[i].SetStatus(status, now); err != nil {
				return err
			}
			if err := tx.Orders.Save(&stale[i]); err != nil {
				return err
			}
			changed = append(changed, stale[i])
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if len(changed) > 0 {
		a.deps.Pub.Publish("Order", changed)
		a.log.Info("order statuses changed", zap.Int("count", len(changed)))
	}
	return len(changed) > 0, nil
}
