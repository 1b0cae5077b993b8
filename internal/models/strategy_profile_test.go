package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStrategyProfileValidate(t *testing.T) {
	t.Run("RelativeValid", func(t *testing.T) {
		p := &StrategyProfile{
			Kind: ProfileRelative,
			Buy:  decimal.NewFromInt(98),
			Sell: decimal.NewFromInt(102),
		}
		assert.NoError(t, p.Validate())
	})

	t.Run("RelativeGuaranteedLossRejected", func(t *testing.T) {
		// buy=100, sell=100 would trade at the last price and lose the fee.
		p := &StrategyProfile{
			Kind: ProfileRelative,
			Buy:  decimal.NewFromInt(100),
			Sell: decimal.NewFromInt(100),
		}
		assert.ErrorIs(t, p.Validate(), ErrInvalidProfile)
	})

	t.Run("RelativeBoundaryRejected", func(t *testing.T) {
		// The fee margin is exclusive: exactly 99.8/100.2 is still a loss.
		p := &StrategyProfile{
			Kind: ProfileRelative,
			Buy:  decimal.NewFromFloat(99.8),
			Sell: decimal.NewFromFloat(100.2),
		}
		assert.ErrorIs(t, p.Validate(), ErrInvalidProfile)
	})

	t.Run("FixedValid", func(t *testing.T) {
		p := &StrategyProfile{
			Kind: ProfileFixed,
			Buy:  decimal.NewFromInt(400),
			Sell: decimal.NewFromInt(600),
		}
		assert.NoError(t, p.Validate())
	})

	t.Run("FixedNonPositiveRejected", func(t *testing.T) {
		p := &StrategyProfile{Kind: ProfileFixed, Buy: decimal.Zero, Sell: decimal.NewFromInt(600)}
		assert.ErrorIs(t, p.Validate(), ErrInvalidProfile)
	})

	t.Run("UnknownKindRejected", func(t *testing.T) {
		p := &StrategyProfile{Kind: "martingale"}
		assert.ErrorIs(t, p.Validate(), ErrInvalidProfile)
	})
}
