package trader

import (
	"context"
	"time"

	"bitstamp-trade-bot-go/internal/models"
	"go.uber.org/zap"
)

// watchBalance polls the account balance and appends a confirmed snapshot
// whenever it differs from the latest stored one.
func (a *App) watchBalance(ctx context.Context) (struct{}, error) {
	var none struct{}

	current, err := a.deps.Client.AccountBalance(ctx)
	if err != nil {
		return none, err
	}

	latest, err := a.deps.Repo.Balances.Latest(a.deps.Account.ID)
	if err != nil {
		return none, err
	}

	snapshot := models.Balance{
		AccountID:    a.deps.Account.ID,
		Inferred:     false,
		Timestamp:    time.Now(),
		Fee:          current.Fee,
		USDBalance:   current.USDBalance,
		BTCBalance:   current.BTCBalance,
		USDReserved:  current.USDReserved,
		BTCReserved:  current.BTCReserved,
		USDAvailable: current.USDAvailable,
		BTCAvailable: current.BTCAvailable,
	}

	if latest != nil && balancesEqual(latest, &snapshot) {
		a.log.Debug("no balance change")
		return none, nil
	}

	if err := a.deps.Repo.Balances.Create(&snapshot); err != nil {
		return none, err
	}
	a.deps.Pub.Publish("Balance", []models.Balance{snapshot})
	a.log.Info("balance changed, saved snapshot",
		zap.String("usd", snapshot.USDBalance.String()),
		zap.String("btc", snapshot.BTCBalance.String()))
	return none, nil
}

// balancesEqual compares the exchange-reported fields only; timestamps and
// provenance flags don't make a snapshot "different".
func balancesEqual(a, b *models.Balance) bool {
	return a.Fee.Equal(b.Fee) &&
		a.USDBalance.Equal(b.USDBalance) &&
		a.BTCBalance.Equal(b.BTCBalance) &&
		a.USDReserved.Equal(b.USDReserved) &&
		a.BTCReserved.Equal(b.BTCReserved) &&
		a.USDAvailable.Equal(b.USDAvailable) &&
		a.BTCAvailable.Equal(b.BTCAvailable)
}
