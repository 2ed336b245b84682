package hierarchy

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-scanqc/mapping/cube"
)

// Accumulator holds the inverse-variance weighted sum and the total weight
// of every voxel of a level.
type Accumulator struct {
	Sum    *cube.Cube
	Weight *cube.Cube
}

// NewAccumulator returns an empty accumulator of the given shape.
func NewAccumulator(nx, ny, nz int) *Accumulator {
	return &Accumulator{Sum: cube.New(nx, ny, nz), Weight: cube.New(nx, ny, nz)}
}

// Add accumulates m/rms² and 1/rms² over the voxels where rms > 0. The map
// is placed at ra pixel x0, dec pixel y0 and channel z0 of the accumulator.
func (a *Accumulator) Add(m, rms *cube.Cube, x0, y0, z0 int) error {
	if !m.SameShape(rms) {
		return fmt.Errorf("%w: map %dx%dx%d, rms %dx%dx%d", cube.ErrShape, m.NX, m.NY, m.NZ, rms.NX, rms.NY, rms.NZ)
	}

	if x0 < 0 || y0 < 0 || z0 < 0 || x0+m.NX > a.Sum.NX || y0+m.NY > a.Sum.NY || z0+m.NZ > a.Sum.NZ {
		return fmt.Errorf("%w: %dx%dx%d at (%d,%d,%d) exceeds %dx%dx%d",
			cube.ErrShape, m.NX, m.NY, m.NZ, x0, y0, z0, a.Sum.NX, a.Sum.NY, a.Sum.NZ)
	}

	for i := range m.NX {
		for j := range m.NY {
			src := m.Index(i, j, 0)
			dst := a.Sum.Index(x0+i, y0+j, z0)
			for k := range m.NZ {
				r := rms.Data[src+k]
				if !(r > 0) || math.IsInf(r, 0) {
					continue
				}

				w := 1 / (r * r)
				a.Sum.Data[dst+k] += m.Data[src+k] * w
				a.Weight.Data[dst+k] += w
			}
		}
	}

	return nil
}

// Merge adds another accumulator of the same shape.
func (a *Accumulator) Merge(o *Accumulator) error {
	if !a.Sum.SameShape(o.Sum) {
		return fmt.Errorf("%w: merging %dx%dx%d into %dx%dx%d",
			cube.ErrShape, o.Sum.NX, o.Sum.NY, o.Sum.NZ, a.Sum.NX, a.Sum.NY, a.Sum.NZ)
	}

	for i := range a.Sum.Data {
		a.Sum.Data[i] += o.Sum.Data[i]
		a.Weight.Data[i] += o.Weight.Data[i]
	}

	return nil
}

// Empty reports whether no voxel carries weight.
func (a *Accumulator) Empty() bool {
	return a.Weight.CountPositive() == 0
}

// Combine returns the weighted mean map and its rms 1/sqrt(W). Voxels
// without weight are zero in both.
func (a *Accumulator) Combine() (m, rms *cube.Cube) {
	m = cube.NewLike(a.Sum)
	rms = cube.NewLike(a.Sum)

	for i, w := range a.Weight.Data {
		if w > 0 {
			m.Data[i] = a.Sum.Data[i] / w
			rms.Data[i] = math.Sqrt(1 / w)
		}
	}

	return m, rms
}
