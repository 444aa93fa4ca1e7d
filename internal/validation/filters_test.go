package validation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/token-features/internal/model"
)

func f(v float64) *float64 { return &v }
func i(v int64) *int64     { return &v }

func TestCheckRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  model.FeatureRecord
		wantErr string
	}{
		{
			name:   "valid record",
			record: model.FeatureRecord{Decimals: 6, Liquidity: 10, V24hChangePercent: f(-3), V24hUSD: 100, Volatility: 55, HoldersCount: i(12)},
		},
		{
			name:   "nullable fields absent",
			record: model.FeatureRecord{},
		},
		{
			name:    "volatility above range",
			record:  model.FeatureRecord{Volatility: 100.5},
			wantErr: "volatility",
		},
		{
			name:    "volatility NaN",
			record:  model.FeatureRecord{Volatility: math.NaN()},
			wantErr: "volatility",
		},
		{
			name:    "negative liquidity",
			record:  model.FeatureRecord{Liquidity: -1},
			wantErr: "liquidity",
		},
		{
			name:    "infinite change",
			record:  model.FeatureRecord{V24hChangePercent: f(math.Inf(1))},
			wantErr: "v24hChangePercent",
		},
		{
			name:    "negative holders",
			record:  model.FeatureRecord{HoldersCount: i(-1)},
			wantErr: "holders_count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRecord(tt.record)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRecord))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckRecordWithOptions_ChangeBound(t *testing.T) {
	opts := DefaultValidationOptions()
	opts.MaxAbsChangePercent = 1000

	assert.NoError(t, CheckRecordWithOptions(model.FeatureRecord{V24hChangePercent: f(-99)}, opts))
	assert.Error(t, CheckRecordWithOptions(model.FeatureRecord{V24hChangePercent: f(5000)}, opts))
}

func TestCheckRecord_ReportsAllViolations(t *testing.T) {
	err := CheckRecord(model.FeatureRecord{Volatility: -1, Liquidity: -1, Decimals: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volatility")
	assert.Contains(t, err.Error(), "liquidity")
	assert.Contains(t, err.Error(), "decimals")
}

func TestIsAscending(t *testing.T) {
	assert.True(t, IsAscending(nil))
	assert.True(t, IsAscending(model.PriceSeries{{TimeBucketStart: 1}, {TimeBucketStart: 2}, {TimeBucketStart: 2}}))
	assert.False(t, IsAscending(model.PriceSeries{{TimeBucketStart: 2}, {TimeBucketStart: 1}}))
}
