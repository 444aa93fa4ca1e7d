// Package model defines the data structures flowing through the feature pipeline.
package model

import (
	"encoding/json"
)

// FeatureRecord is the fixed-schema snapshot consumed by the downstream
// risk classifier. It is a plain value: once built it is never mutated.
type FeatureRecord struct {
	// Decimals of the token mint, 0 when the provider omits it
	Decimals int `json:"decimals"`

	// Liquidity is marketCap / tokenAmountValue, never negative
	Liquidity float64 `json:"liquidity"`

	// Categorical pass-through fields supplied by a label source
	LogoURI string `json:"logoURI"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`

	// V24hChangePercent is nil when the price window holds fewer than two candles
	V24hChangePercent *float64 `json:"v24hChangePercent"`

	// V24hUSD is the 24h USD volume, 0 when unknown
	V24hUSD float64 `json:"v24hUSD"`

	// Volatility is the normalized volatility score in [0,100]
	Volatility float64 `json:"Volatility"`

	// HoldersCount is nil when the holder series could not be retrieved
	HoldersCount *int64 `json:"holders_count"`
}

// Labels carries the categorical fields of a FeatureRecord.
type Labels struct {
	LogoURI string `json:"logoURI"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// NewFeatureRecord assembles a record from its computed parts.
func NewFeatureRecord(decimals int, liquidity float64, change *float64, usdVolume, volatility float64, holders *int64, labels Labels) FeatureRecord {
	return FeatureRecord{
		Decimals:          decimals,
		Liquidity:         liquidity,
		LogoURI:           labels.LogoURI,
		Name:              labels.Name,
		Symbol:            labels.Symbol,
		V24hChangePercent: copyFloat(change),
		V24hUSD:           usdVolume,
		Volatility:        volatility,
		HoldersCount:      copyInt(holders),
	}
}

// Labels returns the categorical fields of the record.
func (r FeatureRecord) Labels() Labels {
	return Labels{LogoURI: r.LogoURI, Name: r.Name, Symbol: r.Symbol}
}

// MarshalIndent renders the record in the on-disk snapshot format.
func (r FeatureRecord) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "    ")
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
