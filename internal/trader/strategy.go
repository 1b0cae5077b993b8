package trader

import (
	"fmt"

	"bitstamp-trade-bot-go/internal/models"
	"github.com/shopspring/decimal"
)

// TradeAction is the strategy engine's output: which side to take next and
// at what price.
type TradeAction struct {
	Side  models.OrderSide
	Price decimal.Decimal
}

func (a *TradeAction) String() string {
	return fmt.Sprintf("%s at $%s", a.Side, a.Price)
}

var hundred = decimal.NewFromInt(100)

// priceRule computes the buy and sell prices for one profile kind.
type priceRule struct {
	buy  func(profile *models.StrategyProfile, last *models.Order) decimal.Decimal
	sell func(profile *models.StrategyProfile, last *models.Order) decimal.Decimal
}

// priceRules dispatches on the profile's kind discriminant.
var priceRules = map[models.ProfileKind]priceRule{
	models.ProfileFixed: {
		buy: func(p *models.StrategyProfile, _ *models.Order) decimal.Decimal {
			return p.Buy
		},
		sell: func(p *models.StrategyProfile, _ *models.Order) decimal.Decimal {
			return p.Sell
		},
	},
	models.ProfileRelative: {
		buy: func(p *models.StrategyProfile, last *models.Order) decimal.Decimal {
			return last.Price.Mul(p.Buy).Div(hundred)
		},
		sell: func(p *models.StrategyProfile, last *models.Order) decimal.Decimal {
			return last.Price.Mul(p.Sell).Div(hundred)
		},
	},
}

// NextTradeAction proposes the opposite side of the last processed order at
// the price the session's profile dictates.
//
// With no processed order at all there is no directional signal yet, so the
// engine proposes nothing: a fresh account waits rather than seeding an
// initial position.
func NextTradeAction(profile *models.StrategyProfile, lastOrder *models.Order) (*TradeAction, error) {
	if lastOrder == nil {
		return nil, nil
	}
	rule, ok := priceRules[profile.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", models.ErrInvalidProfile, profile.Kind)
	}
	if lastOrder.Side == models.Sell {
		return &TradeAction{Side: models.Buy, Price: rule.buy(profile, lastOrder)}, nil
	}
	return &TradeAction{Side: models.Sell, Price: rule.sell(profile, lastOrder)}, nil
}
