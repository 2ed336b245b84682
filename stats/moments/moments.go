// Package moments computes the first four sample moments of a data set in a
// single pass with Welford's online update.
//
// Skewness and kurtosis use the biased population estimators
// (m3/m2^1.5 and m4/m2² - 3), so a Gaussian sample has both near zero.
// Empty inputs and inputs with zero variance have NaN higher moments.
package moments

import "math"

// Moments holds the summary of a data set.
type Moments struct {
	N        int
	Mean     float64
	Variance float64 // population variance
	Skewness float64
	Kurtosis float64 // excess kurtosis
	Min      float64
	Max      float64
}

// Calculate returns the moments of x.
func Calculate(x []float64) Moments {
	var a Accumulator
	a.Update(x)

	return a.Result()
}

// Accumulator collects moments over several blocks of samples. Feeding the
// blocks one after another gives the same result as Calculate on their
// concatenation. The zero value is ready to use.
type Accumulator struct {
	n          int
	mean       float64
	m2, m3, m4 float64
	min, max   float64
}

// Update adds a block of samples.
func (a *Accumulator) Update(x []float64) {
	for _, v := range x {
		a.Add(v)
	}
}

// Add adds a single sample.
func (a *Accumulator) Add(v float64) {
	if a.n == 0 {
		a.min, a.max = v, v
	} else {
		a.min = math.Min(a.min, v)
		a.max = math.Max(a.max, v)
	}

	a.n++
	ni := float64(a.n)
	delta := v - a.mean
	deltaN := delta / ni
	deltaN2 := deltaN * deltaN
	term1 := delta * deltaN * float64(a.n-1)

	// M4 must be updated before M3, and M3 before M2.
	a.m4 += term1*deltaN2*(ni*ni-3*ni+3) + 6*deltaN2*a.m2 - 4*deltaN*a.m3
	a.m3 += term1*deltaN*(ni-2) - 3*deltaN*a.m2
	a.m2 += term1
	a.mean += deltaN
}

// Len returns the number of samples seen.
func (a *Accumulator) Len() int { return a.n }

// Result returns the moments of everything added so far.
func (a *Accumulator) Result() Moments {
	nan := math.NaN()
	if a.n == 0 {
		return Moments{Mean: nan, Variance: nan, Skewness: nan, Kurtosis: nan, Min: nan, Max: nan}
	}

	nf := float64(a.n)
	out := Moments{
		N:        a.n,
		Mean:     a.mean,
		Variance: a.m2 / nf,
		Skewness: nan,
		Kurtosis: nan,
		Min:      a.min,
		Max:      a.max,
	}

	if out.Variance > 0 {
		out.Skewness = (a.m3 / nf) / (out.Variance * math.Sqrt(out.Variance))
		out.Kurtosis = (a.m4/nf)/(out.Variance*out.Variance) - 3
	}

	return out
}

// Reset clears the accumulator.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}
