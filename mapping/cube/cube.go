// Package cube provides the dense (ra, dec, frequency) grid shared by the
// binner, the spectral estimator and the hierarchical combiner.
//
// Voxels are stored in one slice with the frequency axis fastest:
//
//	index = (i*NY + j)*NZ + k
//
// for ra index i, dec index j and channel k.
package cube

import (
	"errors"
	"fmt"
)

// ErrShape is returned when two cubes or a cube and a range disagree in size.
var ErrShape = errors.New("cube: shape mismatch")

// Cube is a 3D grid of float64 values.
type Cube struct {
	NX, NY, NZ int
	Data       []float64
}

// New allocates a zero-filled cube.
func New(nx, ny, nz int) *Cube {
	if nx < 0 || ny < 0 || nz < 0 {
		panic(fmt.Sprintf("cube: negative dimension %dx%dx%d", nx, ny, nz))
	}

	return &Cube{NX: nx, NY: ny, NZ: nz, Data: make([]float64, nx*ny*nz)}
}

// NewLike allocates a zero-filled cube with the shape of c.
func NewLike(c *Cube) *Cube {
	return New(c.NX, c.NY, c.NZ)
}

// Len returns the number of voxels.
func (c *Cube) Len() int { return len(c.Data) }

// Index returns the flat index of voxel (i, j, k).
func (c *Cube) Index(i, j, k int) int { return (i*c.NY+j)*c.NZ + k }

// At returns the value at (i, j, k).
func (c *Cube) At(i, j, k int) float64 { return c.Data[c.Index(i, j, k)] }

// Set stores v at (i, j, k).
func (c *Cube) Set(i, j, k int, v float64) { c.Data[c.Index(i, j, k)] = v }

// SameShape reports whether c and o have identical dimensions.
func (c *Cube) SameShape(o *Cube) bool {
	return c.NX == o.NX && c.NY == o.NY && c.NZ == o.NZ
}

// Clone returns a deep copy.
func (c *Cube) Clone() *Cube {
	out := NewLike(c)
	copy(out.Data, c.Data)

	return out
}

// Crop returns the sub-cube covering ra pixels [x0, x1) and dec pixels
// [y0, y1) over all channels.
func (c *Cube) Crop(x0, x1, y0, y1 int) (*Cube, error) {
	if x0 < 0 || y0 < 0 || x1 > c.NX || y1 > c.NY || x0 > x1 || y0 > y1 {
		return nil, fmt.Errorf("%w: crop [%d,%d)x[%d,%d) of %dx%d", ErrShape, x0, x1, y0, y1, c.NX, c.NY)
	}

	out := New(x1-x0, y1-y0, c.NZ)
	for i := x0; i < x1; i++ {
		for j := y0; j < y1; j++ {
			src := c.Data[c.Index(i, j, 0) : c.Index(i, j, 0)+c.NZ]
			copy(out.Data[out.Index(i-x0, j-y0, 0):], src)
		}
	}

	return out, nil
}

// SliceZ returns channels [z0, z1) of every spatial pixel.
func (c *Cube) SliceZ(z0, z1 int) (*Cube, error) {
	if z0 < 0 || z1 > c.NZ || z0 > z1 {
		return nil, fmt.Errorf("%w: channels [%d,%d) of %d", ErrShape, z0, z1, c.NZ)
	}

	out := New(c.NX, c.NY, z1-z0)
	for i := 0; i < c.NX; i++ {
		for j := 0; j < c.NY; j++ {
			base := c.Index(i, j, 0)
			copy(out.Data[out.Index(i, j, 0):], c.Data[base+z0:base+z1])
		}
	}

	return out, nil
}

// PasteZ writes src into c at channel offset z0. Spatial shapes must match.
func (c *Cube) PasteZ(src *Cube, z0 int) error {
	if src.NX != c.NX || src.NY != c.NY || z0 < 0 || z0+src.NZ > c.NZ {
		return fmt.Errorf("%w: paste %dx%dx%d at z=%d into %dx%dx%d",
			ErrShape, src.NX, src.NY, src.NZ, z0, c.NX, c.NY, c.NZ)
	}

	for i := 0; i < c.NX; i++ {
		for j := 0; j < c.NY; j++ {
			copy(c.Data[c.Index(i, j, z0):], src.Data[src.Index(i, j, 0):src.Index(i, j, 0)+src.NZ])
		}
	}

	return nil
}

// StackZ concatenates cubes along the frequency axis. All inputs must share
// the same spatial shape; nil entries are rejected.
func StackZ(cubes ...*Cube) (*Cube, error) {
	if len(cubes) == 0 {
		return nil, fmt.Errorf("%w: nothing to stack", ErrShape)
	}

	nz := 0
	for _, c := range cubes {
		if c == nil {
			return nil, fmt.Errorf("%w: nil cube in stack", ErrShape)
		}

		if c.NX != cubes[0].NX || c.NY != cubes[0].NY {
			return nil, fmt.Errorf("%w: stacking %dx%d with %dx%d", ErrShape, c.NX, c.NY, cubes[0].NX, cubes[0].NY)
		}
		nz += c.NZ
	}

	out := New(cubes[0].NX, cubes[0].NY, nz)
	z := 0
	for _, c := range cubes {
		if err := out.PasteZ(c, z); err != nil {
			return nil, err
		}
		z += c.NZ
	}

	return out, nil
}

// CountPositive returns the number of voxels strictly greater than zero.
func (c *Cube) CountPositive() int {
	n := 0
	for _, v := range c.Data {
		if v > 0 {
			n++
		}
	}

	return n
}
