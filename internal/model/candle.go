package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bucket as returned by the token-quote-ohlcv endpoint.
// Prices arrive either as JSON strings or bare numbers; decimal accepts both.
type Candle struct {
	TimeBucketStart int64           `json:"timeBucketStart"`
	Open            decimal.Decimal `json:"open"`
	High            decimal.Decimal `json:"high"`
	Low             decimal.Decimal `json:"low"`
	Close           decimal.Decimal `json:"close"`
	Count           int64           `json:"count"`
}

// Time returns the bucket start as a time.Time.
func (c Candle) Time() time.Time {
	return time.Unix(c.TimeBucketStart, 0).UTC()
}

// CloseFloat returns the close price as float64.
func (c Candle) CloseFloat() float64 {
	f, _ := c.Close.Float64()
	return f
}

// PriceSeries is an ascending-by-time sequence of candles. It is never reordered.
type PriceSeries []Candle

// Closes extracts the close prices in series order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, c := range s {
		closes[i] = c.CloseFloat()
	}
	return closes
}

// PriceHistory is the data envelope of the OHLCV endpoint.
type PriceHistory struct {
	Data PriceSeries `json:"data"`
}
