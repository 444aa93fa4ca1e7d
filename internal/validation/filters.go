// Package validation checks feature records and price series before they
// leave the pipeline.
package validation

import (
	"errors"
	"fmt"
	"math"

	"github.com/yourorg/token-features/internal/model"
)

// ErrInvalidRecord is wrapped by every record validation failure.
var ErrInvalidRecord = errors.New("invalid feature record")

// ValidationOptions holds the accepted ranges of a feature record
type ValidationOptions struct {
	// MinVolatility and MaxVolatility bound the volatility score
	MinVolatility float64
	MaxVolatility float64

	// MaxAbsChangePercent bounds |v24hChangePercent|; 0 disables the check
	MaxAbsChangePercent float64
}

// DefaultValidationOptions returns the ranges the classifier was trained on
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		MinVolatility: 0,
		MaxVolatility: 100,
	}
}

// CheckRecord validates a record with the default options.
func CheckRecord(r model.FeatureRecord) error {
	return CheckRecordWithOptions(r, DefaultValidationOptions())
}

// CheckRecordWithOptions reports every violated constraint of r, joined.
func CheckRecordWithOptions(r model.FeatureRecord, opts ValidationOptions) error {
	var errs []error

	if !finite(r.Volatility) || r.Volatility < opts.MinVolatility || r.Volatility > opts.MaxVolatility {
		errs = append(errs, fmt.Errorf("volatility %v outside [%v, %v]", r.Volatility, opts.MinVolatility, opts.MaxVolatility))
	}
	if !finite(r.Liquidity) || r.Liquidity < 0 {
		errs = append(errs, fmt.Errorf("liquidity %v is negative or not finite", r.Liquidity))
	}
	if !finite(r.V24hUSD) {
		errs = append(errs, fmt.Errorf("v24hUSD %v is not finite", r.V24hUSD))
	}
	if r.V24hChangePercent != nil {
		change := *r.V24hChangePercent
		if !finite(change) {
			errs = append(errs, fmt.Errorf("v24hChangePercent %v is not finite", change))
		} else if opts.MaxAbsChangePercent > 0 && math.Abs(change) > opts.MaxAbsChangePercent {
			errs = append(errs, fmt.Errorf("v24hChangePercent %v exceeds ±%v", change, opts.MaxAbsChangePercent))
		}
	}
	if r.Decimals < 0 {
		errs = append(errs, fmt.Errorf("decimals %d is negative", r.Decimals))
	}
	if r.HoldersCount != nil && *r.HoldersCount < 0 {
		errs = append(errs, fmt.Errorf("holders_count %d is negative", *r.HoldersCount))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidRecord, errors.Join(errs...))
}

// IsAscending reports whether the series timestamps never decrease.
func IsAscending(series model.PriceSeries) bool {
	for i := 1; i < len(series); i++ {
		if series[i].TimeBucketStart < series[i-1].TimeBucketStart {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
