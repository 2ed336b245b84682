// Package binner projects per-channel timestreams onto a 2D sky grid.
//
// Binning follows 2D histogram rules: bins are half-open on the right except
// the last bin of each axis, which also holds its right edge, and samples
// outside the edges are dropped.
package binner

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-scanqc/internal/numeric"
	"github.com/cwbudde/algo-scanqc/mapping/cube"
)

var (
	// ErrTooFewBins is returned when an axis has fewer than two bins.
	ErrTooFewBins = errors.New("binner: fewer than two bins on an axis")
	// ErrLengthMismatch is returned when pointing and samples differ in length.
	ErrLengthMismatch = errors.New("binner: pointing and sample lengths differ")
	// ErrEdgesNotIncreasing is returned for unsorted bin edges.
	ErrEdgesNotIncreasing = errors.New("binner: bin edges not strictly increasing")
	// ErrOutsideGrid is returned when no pointing sample lands inside the grid.
	ErrOutsideGrid = errors.New("binner: pointing outside grid")
)

// Map is a binned intensity cube and the matching hit count per voxel.
// Signal is zero wherever Hits is zero.
type Map struct {
	Signal *cube.Cube
	Hits   *cube.Cube
}

// Bin bins tod[channel][sample] at pointing (ra, dec) into the grid spanned
// by raEdges and decEdges. Only channels whose mask equals 1 are binned;
// other channels stay zero with zero hits.
func Bin(ra, dec []float64, tod [][]float64, mask []float64, raEdges, decEdges []float64) (*Map, error) {
	nx, ny := len(raEdges)-1, len(decEdges)-1
	if nx < 2 || ny < 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooFewBins, max(nx, 0), max(ny, 0))
	}

	if !numeric.Increasing(raEdges) || !numeric.Increasing(decEdges) {
		return nil, ErrEdgesNotIncreasing
	}

	if len(ra) != len(dec) {
		return nil, fmt.Errorf("%w: ra %d, dec %d", ErrLengthMismatch, len(ra), len(dec))
	}

	if len(mask) != len(tod) {
		return nil, fmt.Errorf("%w: mask %d, channels %d", ErrLengthMismatch, len(mask), len(tod))
	}

	for ch, samples := range tod {
		if len(samples) != len(ra) {
			return nil, fmt.Errorf("%w: channel %d has %d samples, pointing %d", ErrLengthMismatch, ch, len(samples), len(ra))
		}
	}

	pix, counts, inside := pixelIndices(ra, dec, raEdges, decEdges)
	if inside == 0 {
		return nil, ErrOutsideGrid
	}

	nz := len(tod)
	m := &Map{Signal: cube.New(nx, ny, nz), Hits: cube.New(nx, ny, nz)}
	sums := make([]float64, nx*ny)

	for ch, samples := range tod {
		if mask[ch] != 1 {
			continue
		}

		numeric.Fill(sums, 0)
		for s, p := range pix {
			if p < 0 {
				continue
			}

			v := samples[s]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			sums[p] += v
		}

		for p, n := range counts {
			if n == 0 {
				continue
			}

			idx := p*nz + ch
			m.Hits.Data[idx] = n
			m.Signal.Data[idx] = sums[p] / n
		}
	}

	return m, nil
}

// pixelIndices returns the flat spatial pixel of every sample (-1 when
// outside), the hit count per pixel and the number of samples inside.
func pixelIndices(ra, dec, raEdges, decEdges []float64) ([]int, []float64, int) {
	ny := len(decEdges) - 1
	pix := make([]int, len(ra))
	counts := make([]float64, (len(raEdges)-1)*ny)
	inside := 0

	for s := range ra {
		i := numeric.BinIndex(ra[s], raEdges)
		j := numeric.BinIndex(dec[s], decEdges)
		if i < 0 || j < 0 {
			pix[s] = -1
			continue
		}

		p := i*ny + j
		pix[s] = p
		counts[p]++
		inside++
	}

	return pix, counts, inside
}

// RMS returns the per-voxel noise level sigma[channel]/sqrt(hits), zero
// where hits is zero.
func RMS(hits *cube.Cube, sigma []float64) (*cube.Cube, error) {
	if len(sigma) != hits.NZ {
		return nil, fmt.Errorf("%w: sigma %d, channels %d", ErrLengthMismatch, len(sigma), hits.NZ)
	}

	rms := cube.NewLike(hits)
	for idx, n := range hits.Data {
		if n > 0 {
			rms.Data[idx] = sigma[idx%hits.NZ] / math.Sqrt(n)
		}
	}

	return rms, nil
}

// InverseVariance returns 1/rms² where rms > 0 and zero elsewhere.
func InverseVariance(rms *cube.Cube) *cube.Cube {
	w := cube.NewLike(rms)
	for i, r := range rms.Data {
		if r > 0 {
			w.Data[i] = 1 / (r * r)
		}
	}

	return w
}
