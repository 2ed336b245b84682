// Package grid defines the spatial pixelization of a survey field and the
// per-feed sub-grids that individual scans cover.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-scanqc/internal/numeric"
)

// Default pixelization of the survey fields and of the scan-centred grid used
// for the single-sideband spectra.
const (
	DefaultRadiusDeg   = 2.0
	DefaultPixelArcmin = 8.0
	LocalPixels        = 16
	LocalPixelDeg      = 8.0 / 60
)

var (
	// ErrInvalidField is returned for fields with non-positive radius or
	// pixel size, or a pixelization with fewer than two edges per axis.
	ErrInvalidField = errors.New("grid: invalid field geometry")
	// ErrNoPointing is returned when a feed has no finite pointing samples.
	ErrNoPointing = errors.New("grid: no finite pointing samples")
	// ErrOutsideField is returned when a feed's pointing does not overlap
	// the grid.
	ErrOutsideField = errors.New("grid: pointing outside field")
)

// Field is the pixelization of one named survey field.
type Field struct {
	Name        string  `mapstructure:"name"`
	CenterRA    float64 `mapstructure:"ra"`
	CenterDec   float64 `mapstructure:"dec"`
	RadiusDeg   float64 `mapstructure:"radius"`
	PixelArcmin float64 `mapstructure:"pixel"`
}

// Grid holds the ra and dec bin edges of a field. The ra edges are stretched
// by 1/cos(dec) so pixels keep their physical size.
type Grid struct {
	Field    Field
	Offsets  []float64
	RAEdges  []float64
	DecEdges []float64
}

// Range is a half-open pixel range of a grid together with its edges.
type Range struct {
	X0, X1   int
	Y0, Y1   int
	RAEdges  []float64
	DecEdges []float64
}

// NX returns the number of ra pixels covered.
func (r Range) NX() int { return r.X1 - r.X0 }

// NY returns the number of dec pixels covered.
func (r Range) NY() int { return r.Y1 - r.Y0 }

// New builds the grid of field f.
func New(f Field) (*Grid, error) {
	if f.RadiusDeg <= 0 || f.PixelArcmin <= 0 {
		return nil, fmt.Errorf("%w: radius %v deg, pixel %v arcmin", ErrInvalidField, f.RadiusDeg, f.PixelArcmin)
	}

	n := int(math.Floor(f.RadiusDeg*60/f.PixelArcmin)) + 1
	if n < 2 {
		return nil, fmt.Errorf("%w: %d edges", ErrInvalidField, n)
	}

	offsets := numeric.Linspace(-f.RadiusDeg, f.RadiusDeg, n)

	return withCenter(f, offsets, f.CenterRA, f.CenterDec), nil
}

func withCenter(f Field, offsets []float64, ra0, dec0 float64) *Grid {
	cosDec := math.Cos(dec0 * math.Pi / 180)
	g := &Grid{
		Field:    f,
		Offsets:  offsets,
		RAEdges:  make([]float64, len(offsets)),
		DecEdges: make([]float64, len(offsets)),
	}

	for i, d := range offsets {
		g.RAEdges[i] = d/cosDec + ra0
		g.DecEdges[i] = d + dec0
	}

	return g
}

// Recenter returns a grid with the same offsets centred on (ra0, dec0). Used
// for scans that track a fixed field rather than the catalogued centre.
func (g *Grid) Recenter(ra0, dec0 float64) *Grid {
	f := g.Field
	f.CenterRA, f.CenterDec = ra0, dec0

	return withCenter(f, g.Offsets, ra0, dec0)
}

// NX returns the number of ra pixels.
func (g *Grid) NX() int { return len(g.RAEdges) - 1 }

// NY returns the number of dec pixels.
func (g *Grid) NY() int { return len(g.DecEdges) - 1 }

// PixelDeg returns the dec pixel size in degrees.
func (g *Grid) PixelDeg() float64 { return g.DecEdges[1] - g.DecEdges[0] }

// FeedRange returns the pixel range spanned by one feed's pointing. The
// extremes are digitized against the edges and clamped so the range holds at
// least one pixel inside the grid. Pointing that misses the grid entirely
// yields ErrOutsideField.
func (g *Grid) FeedRange(ra, dec []float64) (Range, error) {
	raMin, raMax, ok := finiteExtent(ra)
	if !ok {
		return Range{}, ErrNoPointing
	}

	decMin, decMax, ok := finiteExtent(dec)
	if !ok {
		return Range{}, ErrNoPointing
	}

	if raMax < g.RAEdges[0] || raMin > g.RAEdges[len(g.RAEdges)-1] ||
		decMax < g.DecEdges[0] || decMin > g.DecEdges[len(g.DecEdges)-1] {
		return Range{}, fmt.Errorf("%w: ra [%g, %g], dec [%g, %g]", ErrOutsideField, raMin, raMax, decMin, decMax)
	}

	x0, x1 := clampRange(numeric.Digitize(raMin, g.RAEdges), numeric.Digitize(raMax, g.RAEdges), len(g.RAEdges))
	y0, y1 := clampRange(numeric.Digitize(decMin, g.DecEdges), numeric.Digitize(decMax, g.DecEdges), len(g.DecEdges))

	return Range{
		X0: x0, X1: x1,
		Y0: y0, Y1: y1,
		RAEdges:  g.RAEdges[x0 : x1+1],
		DecEdges: g.DecEdges[y0 : y1+1],
	}, nil
}

// clampRange turns digitize indices of the minimum and maximum into a
// half-open pixel range [lo-1, hi).
func clampRange(lo, hi, nEdges int) (int, int) {
	lo = max(1, lo)
	hi = max(min(nEdges-1, hi), lo)

	return lo - 1, hi
}

// Union returns the smallest range covering all given ranges, with edges
// taken from g.
func (g *Grid) Union(ranges ...Range) (Range, bool) {
	if len(ranges) == 0 {
		return Range{}, false
	}

	u := ranges[0]
	for _, r := range ranges[1:] {
		u.X0 = min(u.X0, r.X0)
		u.X1 = max(u.X1, r.X1)
		u.Y0 = min(u.Y0, r.Y0)
		u.Y1 = max(u.Y1, r.Y1)
	}

	u.RAEdges = g.RAEdges[u.X0 : u.X1+1]
	u.DecEdges = g.DecEdges[u.Y0 : u.Y1+1]

	return u, true
}

// Local builds the scan-centred grid of n pixels of pixDeg per side around
// the midpoint of the pointing extent.
func Local(ra, dec []float64, n int, pixDeg float64) (raEdges, decEdges []float64, err error) {
	raMin, raMax, ok := finiteExtent(ra)
	if !ok {
		return nil, nil, ErrNoPointing
	}

	decMin, decMax, ok := finiteExtent(dec)
	if !ok {
		return nil, nil, ErrNoPointing
	}

	ra0 := (raMin + raMax) / 2
	dec0 := (decMin + decMax) / 2
	dRA := pixDeg / math.Cos(dec0*math.Pi/180)
	half := float64(n) / 2

	raEdges = numeric.Linspace(ra0-dRA*half, ra0+dRA*half, n+1)
	decEdges = numeric.Linspace(dec0-pixDeg*half, dec0+pixDeg*half, n+1)

	return raEdges, decEdges, nil
}

// MeanCenter returns the mean of the finite pointing samples.
func MeanCenter(ra, dec []float64) (float64, float64, error) {
	var sumRA, sumDec float64
	n := 0
	for i := range ra {
		if i >= len(dec) || !finite(ra[i]) || !finite(dec[i]) {
			continue
		}
		sumRA += ra[i]
		sumDec += dec[i]
		n++
	}

	if n == 0 {
		return 0, 0, ErrNoPointing
	}

	return sumRA / float64(n), sumDec / float64(n), nil
}

func finiteExtent(v []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if !finite(x) {
			continue
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
		ok = true
	}

	return lo, hi, ok
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
