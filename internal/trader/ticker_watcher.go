package trader

import (
	"context"

	"bitstamp-trade-bot-go/internal/models"
	"go.uber.org/zap"
)

// watchTicker polls the market snapshot and stores it when its timestamp is
// new. The exchange recomputes the ticker lazily, so polls often repeat the
// previous snapshot.
func (a *App) watchTicker(ctx context.Context) (struct{}, error) {
	var none struct{}

	current, err := a.deps.Client.Ticker(ctx)
	if err != nil {
		return none, err
	}

	ticker := models.Ticker{
		Timestamp: current.Timestamp.Time,
		Last:      current.Last,
		High:      current.High,
		Low:       current.Low,
		Bid:       current.Bid,
		Ask:       current.Ask,
		VWAP:      current.VWAP,
		Volume:    current.Volume,
	}
	created, err := a.deps.Repo.Tickers.Save(&ticker)
	if err != nil {
		return none, err
	}
	if created {
		a.deps.Pub.Publish("Ticker", []models.Ticker{ticker})
		a.log.Debug("saved ticker",
			zap.Time("timestamp", ticker.Timestamp),
			zap.String("last", ticker.Last.String()))
	}
	return none, nil
}
