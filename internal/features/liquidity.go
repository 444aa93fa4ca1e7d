package features

import (
	"math"

	"github.com/yourorg/token-features/internal/model"
)

// Liquidity returns marketCap / tokenAmountValue. A missing, zero or negative
// token amount, or a missing market cap, yields 0.
func Liquidity(meta model.TokenMetadata) float64 {
	if meta.MarketCap == nil || meta.TokenAmountValue == nil {
		return 0
	}
	amount := *meta.TokenAmountValue
	if amount <= 0 {
		return 0
	}

	liquidity := *meta.MarketCap / amount
	if liquidity < 0 || math.IsNaN(liquidity) || math.IsInf(liquidity, 0) {
		return 0
	}
	return liquidity
}
