package powerspec

import (
	"math"

	"github.com/cwbudde/algo-scanqc/internal/numeric"
)

// Number of wavenumber edges of the standard binnings.
const NumEdges = 10

// Cosmology converts angular pixel sizes and channel widths to comoving
// distances at the CO(1-0) redshift of the survey (z ≈ 2.9).
type Cosmology struct {
	H          float64
	Deg2Mpc    float64
	GHz2Mpc    float64
	ChannelGHz float64
}

// DefaultCosmology returns the conversion constants of the survey.
func DefaultCosmology() Cosmology {
	const h = 0.7

	return Cosmology{
		H:          h,
		Deg2Mpc:    76.22 / h,
		GHz2Mpc:    699.62 / h * (1 + 2.9) * (1 + 2.9) / 115,
		ChannelGHz: 32.2e-3,
	}
}

// PixelMpc converts a pixel size in degrees of declination to Mpc.
func (c Cosmology) PixelMpc(deg float64) float64 { return deg * c.Deg2Mpc }

// ChannelMpc returns the line-of-sight size of one frequency channel.
func (c Cosmology) ChannelMpc() float64 { return c.ChannelGHz * c.GHz2Mpc }

// Spacing returns the voxel size of a cube with square pixels of pixDeg.
func (c Cosmology) Spacing(pixDeg float64) Spacing {
	d := c.PixelMpc(pixDeg)

	return Spacing{DX: d, DY: d, DZ: c.ChannelMpc()}
}

// KEdges3D returns the wavenumber edges (1/Mpc) of the 3D spectra.
func KEdges3D() []float64 {
	return numeric.Logspace(-1.8, math.Log10(0.5), NumEdges)
}

// KEdges1D2D returns the wavenumber edges of the angular spectra.
func KEdges1D2D() []float64 {
	return numeric.Logspace(-1.45, math.Log10(0.1), NumEdges)
}
