// Package chisq reduces an observed power spectrum and its simulated null
// distribution to one signed goodness-of-fit number.
//
// With r_i = (P_i - mean_i)/std_i over the valid bins:
//
//	chi2 = sign(Σ r_i³) · |(Σ r_i² - n) / sqrt(2n)|
//
// The magnitude is a variance-normalized excess over n; the sign carries
// the skewness of the residuals, so systematic excess power is positive.
package chisq

import (
	"errors"
	"fmt"
	"math"
)

// MinBins is the minimum number of valid bins for a 3D spectrum.
const MinBins = 5

var (
	// ErrInsufficientData is returned when too few bins are valid.
	ErrInsufficientData = errors.New("chisq: not enough valid bins")
	// ErrLengthMismatch is returned when the inputs differ in length.
	ErrLengthMismatch = errors.New("chisq: length mismatch")
)

// Missing is the marker stored for statistics that could not be computed.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing-value marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Reduce returns the statistic with the default minimum of MinBins.
func Reduce(pk, mean, std []float64) (float64, error) {
	return ReduceMin(pk, mean, std, MinBins)
}

// ReduceMin returns the statistic over bins with pk > 0, finite inputs and
// std > 0. Fewer than minBins such bins yield Missing and
// ErrInsufficientData.
func ReduceMin(pk, mean, std []float64, minBins int) (float64, error) {
	if len(pk) != len(mean) || len(pk) != len(std) {
		return Missing(), fmt.Errorf("%w: pk %d, mean %d, std %d", ErrLengthMismatch, len(pk), len(mean), len(std))
	}

	var cubed, squared float64
	n := 0
	for i := range pk {
		if !valid(pk[i], mean[i], std[i]) {
			continue
		}

		r := (pk[i] - mean[i]) / std[i]
		cubed += r * r * r
		squared += r * r
		n++
	}

	if n < minBins || n == 0 {
		return Missing(), fmt.Errorf("%w: %d of %d required", ErrInsufficientData, n, minBins)
	}

	q := math.Abs((squared - float64(n)) / math.Sqrt(2*float64(n)))
	if cubed < 0 {
		return -q, nil
	}
	if cubed == 0 {
		return 0, nil
	}

	return q, nil
}

// Residuals returns r_i for every valid bin, NaN elsewhere.
func Residuals(pk, mean, std []float64) []float64 {
	out := make([]float64, len(pk))
	for i := range out {
		if i >= len(mean) || i >= len(std) || !valid(pk[i], mean[i], std[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (pk[i] - mean[i]) / std[i]
	}

	return out
}

func valid(pk, mean, std float64) bool {
	return pk > 0 && std > 0 && !math.IsInf(pk, 0) && !math.IsInf(std, 0) &&
		!math.IsNaN(mean) && !math.IsInf(mean, 0)
}
