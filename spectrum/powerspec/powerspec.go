package powerspec

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-scanqc/internal/numeric"
	"github.com/cwbudde/algo-scanqc/mapping/cube"
)

var (
	// ErrEmptyCube is returned for cubes with a zero-length axis.
	ErrEmptyCube = errors.New("powerspec: empty cube")
	// ErrInvalidEdges is returned for fewer than two or unsorted bin edges.
	ErrInvalidEdges = errors.New("powerspec: invalid wavenumber edges")
	// ErrInvalidSpacing is returned for non-positive voxel sizes.
	ErrInvalidSpacing = errors.New("powerspec: voxel spacing must be positive")
)

// Spacing is the physical voxel size along ra, dec and frequency in Mpc.
type Spacing struct {
	DX, DY, DZ float64
}

func (s Spacing) valid() bool { return s.DX > 0 && s.DY > 0 && s.DZ > 0 }

// Spectrum is a radially binned power spectrum. Bins without modes hold zero
// power.
type Spectrum struct {
	Edges  []float64
	K      []float64
	P      []float64
	NModes []int
}

// LineAngular holds the line-of-sight and angular spectra of a cube.
type LineAngular struct {
	// Line is the frequency-axis spectrum averaged over pixels, with the
	// zero wavenumber dropped. KZ holds the matching wavenumbers.
	Line []float64
	KZ   []float64
	// Angular is the radially binned spatial spectrum averaged over
	// channels.
	Angular Spectrum
}

// Config holds estimator settings.
type Config struct {
	Backend Backend
}

// Option mutates a Config.
type Option func(*Config)

// WithBackend selects the FFT backend.
func WithBackend(b Backend) Option {
	return func(cfg *Config) {
		cfg.Backend = b
	}
}

// Estimator computes power spectra of map cubes. It caches FFT plans and
// scratch buffers and is not safe for concurrent use.
type Estimator struct {
	cfg   Config
	plans map[int]lineTransform
	line  []complex128
	buf   []complex128
	re    []float64
	im    []float64
	pow   []float64
}

// New returns an Estimator.
func New(opts ...Option) *Estimator {
	cfg := Config{Backend: BackendAuto}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &Estimator{cfg: cfg, plans: make(map[int]lineTransform)}
}

// Spectrum3D returns the spherically averaged power spectrum of c,
// normalized as |FFT|²·dx·dy·dz/N and binned by |k| over edges. Only k > 0
// contributes.
func (e *Estimator) Spectrum3D(c *cube.Cube, edges []float64, sp Spacing) (Spectrum, error) {
	if err := validate(c, edges, sp); err != nil {
		return Spectrum{}, err
	}

	buf := e.load(c)
	if err := e.transformAxes(buf, c, 0, 1, 2); err != nil {
		return Spectrum{}, err
	}

	n := float64(c.Len())
	pow := e.power(buf, sp.DX*sp.DY*sp.DZ/n)

	kx := angularFreq(c.NX, sp.DX)
	ky := angularFreq(c.NY, sp.DY)
	kz := angularFreq(c.NZ, sp.DZ)

	acc := newBinAccumulator(edges)
	for i := range c.NX {
		for j := range c.NY {
			kxy := kx[i]*kx[i] + ky[j]*ky[j]
			base := c.Index(i, j, 0)
			for k := range c.NZ {
				acc.add(math.Sqrt(kxy+kz[k]*kz[k]), pow[base+k])
			}
		}
	}

	return acc.spectrum(), nil
}

// Spectrum1D2D returns the line-of-sight and angular spectra of c. The
// line spectrum is |rFFT_z|²·dz/nz averaged over pixels; the angular one is
// |FFT_xy|²·dx·dy/(nx·ny) averaged over channels and binned over edges.
func (e *Estimator) Spectrum1D2D(c *cube.Cube, edges []float64, sp Spacing) (LineAngular, error) {
	if err := validate(c, edges, sp); err != nil {
		return LineAngular{}, err
	}

	var out LineAngular

	buf := e.load(c)
	if err := e.transformAxes(buf, c, 2); err != nil {
		return LineAngular{}, err
	}

	pow := e.power(buf, sp.DZ/float64(c.NZ))
	nHalf := c.NZ/2 + 1
	line := make([]float64, nHalf)
	for p := range c.NX * c.NY {
		for k := range nHalf {
			line[k] += pow[p*c.NZ+k]
		}
	}

	pixels := float64(c.NX * c.NY)
	for k := range line {
		line[k] /= pixels
	}

	kz := numeric.RFFTFreq(c.NZ, sp.DZ)
	for k := range kz {
		kz[k] *= 2 * math.Pi
	}
	out.Line, out.KZ = line[1:], kz[1:]

	buf = e.load(c)
	if err := e.transformAxes(buf, c, 0, 1); err != nil {
		return LineAngular{}, err
	}

	pow = e.power(buf, sp.DX*sp.DY/pixels)
	kx := angularFreq(c.NX, sp.DX)
	ky := angularFreq(c.NY, sp.DY)

	acc := newBinAccumulator(edges)
	for i := range c.NX {
		for j := range c.NY {
			base := c.Index(i, j, 0)
			mean := 0.0
			for k := range c.NZ {
				mean += pow[base+k]
			}
			acc.add(math.Hypot(kx[i], ky[j]), mean/float64(c.NZ))
		}
	}
	out.Angular = acc.spectrum()

	return out, nil
}

func validate(c *cube.Cube, edges []float64, sp Spacing) error {
	if c == nil || c.Len() == 0 {
		return ErrEmptyCube
	}

	if len(edges) < 2 || !numeric.Increasing(edges) {
		return fmt.Errorf("%w: %v", ErrInvalidEdges, edges)
	}

	if !sp.valid() {
		return fmt.Errorf("%w: %+v", ErrInvalidSpacing, sp)
	}

	return nil
}

// load copies c into the complex work buffer.
func (e *Estimator) load(c *cube.Cube) []complex128 {
	e.buf = growComplex(e.buf, c.Len())
	for i, v := range c.Data {
		e.buf[i] = complex(v, 0)
	}

	return e.buf
}

// power returns scale·|buf|² in a reused slice.
func (e *Estimator) power(buf []complex128, scale float64) []float64 {
	n := len(buf)
	e.re = growFloat(e.re, n)
	e.im = growFloat(e.im, n)
	e.pow = growFloat(e.pow, n)

	for i, v := range buf {
		e.re[i] = real(v)
		e.im[i] = imag(v)
	}

	vecmath.Power(e.pow, e.re, e.im)
	for i := range e.pow {
		e.pow[i] *= scale
	}

	return e.pow
}

func angularFreq(n int, d float64) []float64 {
	k := numeric.FFTFreq(n, d)
	for i := range k {
		k[i] *= 2 * math.Pi
	}

	return k
}

type binAccumulator struct {
	edges []float64
	sum   []float64
	n     []int
}

func newBinAccumulator(edges []float64) *binAccumulator {
	return &binAccumulator{
		edges: edges,
		sum:   make([]float64, len(edges)-1),
		n:     make([]int, len(edges)-1),
	}
}

func (b *binAccumulator) add(k, p float64) {
	if k <= 0 {
		return
	}

	if i := numeric.BinIndex(k, b.edges); i >= 0 {
		b.sum[i] += p
		b.n[i]++
	}
}

func (b *binAccumulator) spectrum() Spectrum {
	s := Spectrum{
		Edges:  append([]float64(nil), b.edges...),
		K:      numeric.Centers(b.edges),
		P:      make([]float64, len(b.sum)),
		NModes: b.n,
	}

	for i, n := range b.n {
		if n > 0 {
			s.P[i] = b.sum[i] / float64(n)
		}
	}

	return s
}
