package features

import (
	"math"

	"github.com/yourorg/token-features/internal/model"
)

// ChangePercent returns the percent change from the first to the last close
// of the series. It returns nil when the change is indeterminate: fewer than
// two candles, or a zero first close.
func ChangePercent(series model.PriceSeries) *float64 {
	if len(series) < 2 {
		return nil
	}

	first := series[0].CloseFloat()
	last := series[len(series)-1].CloseFloat()
	if first == 0 {
		return nil
	}

	change := (last - first) / first * 100
	if math.IsNaN(change) || math.IsInf(change, 0) {
		return nil
	}
	return &change
}
