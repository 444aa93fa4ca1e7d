// Package features computes the numeric risk features of a token from its
// price series and metadata. All calculators are pure and never fail:
// degenerate input yields the documented default instead of an error.
package features

import (
	"math"

	"github.com/yourorg/token-features/internal/model"
)

// DefaultVolatilityScore is returned when the score cannot be computed.
const DefaultVolatilityScore = 0.0

// Volatility returns a volatility score in [0,100] for the series.
//
// The score is the population standard deviation of the per-step close
// returns, min-max normalized against those same returns. A series with
// fewer than two usable returns, or whose returns are (nearly) all equal,
// scores DefaultVolatilityScore.
func Volatility(series model.PriceSeries) float64 {
	returns := PctChange(series.Closes())
	if len(returns) == 0 {
		return DefaultVolatilityScore
	}

	minR, maxR := MinMax(returns)
	if IsClose(maxR, minR) {
		return DefaultVolatilityScore
	}

	score := (StdDev(returns) - minR) / (maxR - minR) * 100
	if math.IsNaN(score) {
		return DefaultVolatilityScore
	}
	return clamp(score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
