package model

// TokenMetadata is a single snapshot of a token's market attributes.
// Optional numeric fields are pointers so absence is distinguishable from zero.
type TokenMetadata struct {
	Mint             string   `json:"mintAddress,omitempty"`
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	LogoURL          string   `json:"logoUrl"`
	Decimal          *int     `json:"decimal"`
	Price            float64  `json:"price"`
	MarketCap        *float64 `json:"marketCap"`
	TokenAmountValue *float64 `json:"tokenAmountValue"`
	USDValueVolume   *float64 `json:"usdValueVolume"`
}

// Decimals returns the token decimals, 0 when absent.
func (m TokenMetadata) Decimals() int {
	if m.Decimal == nil {
		return 0
	}
	return *m.Decimal
}

// USDVolume returns the 24h USD volume, 0 when absent.
func (m TokenMetadata) USDVolume() float64 {
	if m.USDValueVolume == nil {
		return 0
	}
	return *m.USDValueVolume
}

// HolderPoint is one sample of the holder-count time series.
type HolderPoint struct {
	Timestamp int64 `json:"holdersTimestamp"`
	Holders   int64 `json:"nHolders"`
}

// HolderSeries is the data envelope of the holders-ts endpoint.
type HolderSeries struct {
	Data []HolderPoint `json:"data"`
}

// Latest returns the most recent point, if any.
func (s HolderSeries) Latest() (HolderPoint, bool) {
	if len(s.Data) == 0 {
		return HolderPoint{}, false
	}
	return s.Data[len(s.Data)-1], true
}
