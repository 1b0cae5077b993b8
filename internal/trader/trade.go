package trader

import (
	"context"
	"fmt"
	"time"

	"bitstamp-trade-bot-go/internal/bitstamp"
	"bitstamp-trade-bot-go/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// placedTrade is what a successful Trader cycle hands back to the
// OrdersWatcher: the session that traded and the order it placed.
type placedTrade struct {
	Session *models.TradingSession
	Order   *bitstamp.Order
}

// trade is one Trader cycle: resolve the active session, let the strategy
// engine propose an action, size it against a fresh balance and the current
// ticker, and place the order when live trading is enabled. A nil result
// with nil error means there was nothing to do.
func (a *App) trade(ctx context.Context) (*placedTrade, error) {
	session, err := a.deps.Repo.Sessions.ActiveTradingSession(a.deps.Account.ID, time.Now())
	if err != nil {
		return nil, err
	}
	if session == nil {
		a.log.Info("no active trading session")
		return nil, nil
	}
	a.log.Info("active trading session",
		zap.Uint("session_id", session.ID),
		zap.String("profile", session.StrategyProfile.String()))

	lastOrder, err := a.deps.Repo.Orders.LatestProcessed(a.deps.Account.ID)
	if err != nil {
		return nil, err
	}
	action, err := NextTradeAction(&session.StrategyProfile, lastOrder)
	if err != nil {
		return nil, err
	}
	if action == nil {
		a.log.Info("strategy proposed no action")
		return nil, nil
	}
	a.log.Info("strategy proposed action", zap.String("action", action.String()))

	// Size against a balance fetched now, not a stale snapshot.
	if err := a.refreshBalance(ctx); err != nil {
		return nil, err
	}
	balance, err := a.deps.Repo.Balances.LatestConfirmed(a.deps.Account.ID)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return nil, fmt.Errorf("no confirmed balance available")
	}
	ticker, err := a.deps.Repo.Tickers.Latest()
	if err != nil {
		return nil, err
	}
	if ticker == nil {
		return nil, fmt.Errorf("no ticker available")
	}

	feeMultiplier := hundred.Sub(balance.Fee).Div(hundred)

	var amount, price decimal.Decimal
	var place func(context.Context, decimal.Decimal, decimal.Decimal) (*bitstamp.Order, error)
	switch action.Side {
	case models.Sell:
		place = a.deps.Client.SellLimitOrder
		amount = balance.BTCAvailable.Mul(feeMultiplier)
		price = decimal.Max(action.Price, ticker.Ask)
	case models.Buy:
		place = a.deps.Client.BuyLimitOrder
		amount = balance.USDAvailable.Div(action.Price).Mul(feeMultiplier)
		price = decimal.Min(action.Price, ticker.Bid)
	default:
		return nil, fmt.Errorf("unknown trade side %d", action.Side)
	}

	price = price.Round(2)
	amount = amount.Round(8)
	// Warn so the trade attempt stands out of the polling noise.
	a.log.Warn("trade task",
		zap.String("side", action.Side.String()),
		zap.String("amount", amount.String()),
		zap.String("price", price.String()))

	if !a.deps.Cfg.Trading.DoTrade {
		a.log.Info("do_trade disabled, not executing")
		return nil, nil
	}

	a.log.Info("do_trade enabled, executing")
	order, err := place(ctx, amount, price)
	if err != nil {
		return nil, err
	}
	return &placedTrade{Session: session, Order: order}, nil
}
