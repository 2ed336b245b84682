// Package transfer corrects power spectra for the signal loss of the
// time-domain filtering applied before mapping.
//
// Observed power and the null dispersion are divided by the per-bin
// factors. The null mean is left as simulated: the simulations carry no
// filtering, so only the data side needs restoring. Near the low-k cutoff
// the factors are tiny and residuals there are strongly amplified.
package transfer

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrLengthMismatch is returned when factors and spectra differ in length.
	ErrLengthMismatch = errors.New("transfer: length mismatch")
	// ErrInvalidFactor is returned for non-positive or non-finite factors.
	ErrInvalidFactor = errors.New("transfer: factors must be positive and finite")
)

// FeedTable is the empirical transfer function of feed-level maps on the
// standard 3D wavenumber bins.
var FeedTable = [...]float64{
	7.08265320e-07, 1.30980902e-06, 1.87137602e-01,
	4.91884922e-01, 6.48433271e-01, 8.27296733e-01,
	8.85360854e-01, 8.14043197e-01, 8.03513664e-01,
}

// Function returns the transfer factor of each wavenumber bin centre.
type Function interface {
	Factors(k []float64) ([]float64, error)
}

// Identity applies no correction.
type Identity struct{}

// Factors implements Function.
func (Identity) Factors(k []float64) ([]float64, error) {
	out := make([]float64, len(k))
	for i := range out {
		out[i] = 1
	}

	return out, nil
}

// Analytic is the high-pass response 1/exp((K0/k)^Exp).
type Analytic struct {
	K0  float64
	Exp float64
}

// DefaultAnalytic returns the response of the standard filter chain.
func DefaultAnalytic() Analytic {
	return Analytic{K0: 0.055, Exp: 2.5}
}

// Factors implements Function.
func (a Analytic) Factors(k []float64) ([]float64, error) {
	out := make([]float64, len(k))
	for i, ki := range k {
		out[i] = 1 / math.Exp(math.Pow(a.K0/ki, a.Exp))
	}

	return out, nil
}

// Table is a tabulated response, one factor per bin.
type Table []float64

// Feed returns the feed-level table.
func Feed() Table {
	return Table(FeedTable[:])
}

// Factors implements Function.
func (t Table) Factors(k []float64) ([]float64, error) {
	if len(t) != len(k) {
		return nil, fmt.Errorf("%w: table has %d bins, spectrum %d", ErrLengthMismatch, len(t), len(k))
	}

	return append([]float64(nil), t...), nil
}

// Apply divides pk and std by factors in place.
func Apply(pk, std, factors []float64) error {
	if len(pk) != len(factors) || len(std) != len(factors) {
		return fmt.Errorf("%w: pk %d, std %d, factors %d", ErrLengthMismatch, len(pk), len(std), len(factors))
	}

	for i, f := range factors {
		if !(f > 0) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: bin %d = %v", ErrInvalidFactor, i, f)
		}
	}

	for i, f := range factors {
		pk[i] /= f
		std[i] /= f
	}

	return nil
}
