package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

// Tolerances used by IsClose, matching numpy.isclose defaults.
const (
	closeAbsTol = 1e-8
	closeRelTol = 1e-5
)

// PctChange returns the fractional change between consecutive values.
// Steps whose change is not finite (previous value 0, NaN input) are skipped.
func PctChange(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	changes := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			continue
		}
		c := (values[i] - prev) / prev
		if math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		changes = append(changes, c)
	}
	return changes
}

// StdDev computes the population standard deviation (ddof=0).
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.PopStdDev(values, nil)
}

// MinMax returns the smallest and largest value. Both are 0 for empty input.
func MinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return floats.Min(values), floats.Max(values)
}

// IsClose reports whether a and b are equal within the absolute or relative
// tolerance.
func IsClose(a, b float64) bool {
	return scalar.EqualWithinAbsOrRel(a, b, closeAbsTol, closeRelTol)
}
