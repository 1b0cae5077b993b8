package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProfileKind discriminates the strategy profile variants.
type ProfileKind string

const (
	// ProfileFixed trades at absolute buy/sell prices.
	ProfileFixed ProfileKind = "fixed"
	// ProfileRelative trades at percentages of the last trade price.
	ProfileRelative ProfileKind = "relative"
)

// minRelativeFee is the margin a relative profile must clear on each side so
// that it cannot be configured to trade at a guaranteed loss net of fees.
var minRelativeFee = decimal.NewFromFloat(0.2)

var ErrInvalidProfile = errors.New("invalid strategy profile")

// StrategyProfile configures a trading strategy. It is a tagged variant: Kind
// selects how Buy and Sell are interpreted (absolute prices for fixed,
// percentages of the last trade price for relative).
type StrategyProfile struct {
	gorm.Model
	AccountID uint `gorm:"index"`
	Kind      ProfileKind
	Buy       decimal.Decimal `gorm:"type:numeric"`
	Sell      decimal.Decimal `gorm:"type:numeric"`
	Note      string
}

// Validate checks the variant's invariants. Relative profiles must buy below
// 100−0.2% and sell above 100+0.2%; fixed profiles need positive prices.
func (p *StrategyProfile) Validate() error {
	switch p.Kind {
	case ProfileFixed:
		if !p.Buy.IsPositive() || !p.Sell.IsPositive() {
			return fmt.Errorf("%w: fixed prices must be positive, got buy=%s sell=%s",
				ErrInvalidProfile, p.Buy, p.Sell)
		}
	case ProfileRelative:
		hundred := decimal.NewFromInt(100)
		if !p.Buy.LessThan(hundred.Sub(minRelativeFee)) {
			return fmt.Errorf("%w: relative buy %s%% must be < %s%%",
				ErrInvalidProfile, p.Buy, hundred.Sub(minRelativeFee))
		}
		if !p.Sell.GreaterThan(hundred.Add(minRelativeFee)) {
			return fmt.Errorf("%w: relative sell %s%% must be > %s%%",
				ErrInvalidProfile, p.Sell, hundred.Add(minRelativeFee))
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidProfile, p.Kind)
	}
	return nil
}

func (p *StrategyProfile) String() string {
	switch p.Kind {
	case ProfileRelative:
		return fmt.Sprintf("relative buy at %s%%, sell at %s%%", p.Buy, p.Sell)
	case ProfileFixed:
		return fmt.Sprintf("fixed buy at $%s, sell at $%s", p.Buy, p.Sell)
	}
	return string(p.Kind)
}
