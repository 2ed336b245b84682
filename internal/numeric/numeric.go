// Package numeric holds small array helpers shared by the mapping and
// spectrum packages. Binning and frequency-grid helpers follow numpy's
// conventions so statistics stay comparable with the level-2 tooling.
package numeric

import (
	"math"
	"sort"
)

const defaultEpsilon = 1e-12

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// Linspace returns n evenly spaced values over [start, stop], both included.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}

	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop

	return out
}

// Logspace returns n values spaced evenly on a log scale from 10^start to
// 10^stop, both included.
func Logspace(start, stop float64, n int) []float64 {
	exps := Linspace(start, stop, n)
	for i, e := range exps {
		exps[i] = math.Pow(10, e)
	}

	return exps
}

// Centers returns the arithmetic midpoints of consecutive edges.
func Centers(edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}

	out := make([]float64, len(edges)-1)
	for i := range out {
		out[i] = 0.5 * (edges[i] + edges[i+1])
	}

	return out
}

// Increasing reports whether edges is strictly increasing.
func Increasing(edges []float64) bool {
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return false
		}
	}

	return true
}

// BinIndex returns the histogram bin of x for increasing edges, or -1 when x
// falls outside. Bins are half-open except the last one, which also holds
// the right edge.
func BinIndex(x float64, edges []float64) int {
	n := len(edges)
	if n < 2 || math.IsNaN(x) || x < edges[0] || x > edges[n-1] {
		return -1
	}

	if x == edges[n-1] {
		return n - 2
	}

	// First edge strictly greater than x.
	i := sort.Search(n, func(i int) bool { return edges[i] > x })

	return i - 1
}

// Digitize returns the index i such that edges[i-1] <= x < edges[i]: 0 below
// the first edge and len(edges) at or above the last one.
func Digitize(x float64, edges []float64) int {
	return sort.Search(len(edges), func(i int) bool { return edges[i] > x })
}

// FFTFreq returns the sample frequencies of an n-point DFT with spacing d,
// ordered as the transform output: 0, 1, ..., -1 in units of 1/(n*d).
func FFTFreq(n int, d float64) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	scale := 1 / (float64(n) * d)
	half := (n - 1) / 2
	for i := range out {
		if i <= half {
			out[i] = float64(i) * scale
		} else {
			out[i] = float64(i-n) * scale
		}
	}

	return out
}

// RFFTFreq returns the n/2+1 non-negative sample frequencies of a real DFT.
func RFFTFreq(n int, d float64) []float64 {
	out := make([]float64, n/2+1)
	if n == 0 {
		return out
	}

	scale := 1 / (float64(n) * d)
	for i := range out {
		out[i] = float64(i) * scale
	}

	return out
}

// AllFinite reports whether every value is neither NaN nor Inf.
func AllFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}

	return true
}

// Fill sets every element of v to x.
func Fill(v []float64, x float64) {
	for i := range v {
		v[i] = x
	}
}
