package powerspec

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cwbudde/algo-scanqc/mapping/cube"
)

// Backend selects the complex FFT used for the per-axis line transforms.
type Backend int

const (
	// BackendAuto uses algo-fft plans and falls back to gonum for lengths
	// the plan constructor rejects.
	BackendAuto Backend = iota
	// BackendGonum always uses gonum's mixed-radix transform.
	BackendGonum
)

// String implements fmt.Stringer.
func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendGonum:
		return "gonum"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// lineTransform is a forward, unnormalized complex DFT of a fixed length.
type lineTransform interface {
	forward(dst, src []complex128) error
}

type planTransform struct {
	plan *algofft.Plan[complex128]
}

func (p planTransform) forward(dst, src []complex128) error {
	return p.plan.Forward(dst, src)
}

type gonumTransform struct {
	fft *fourier.CmplxFFT
}

func (g gonumTransform) forward(dst, src []complex128) error {
	g.fft.Coefficients(dst, src)
	return nil
}

// transform returns the cached line transform for length n.
func (e *Estimator) transform(n int) lineTransform {
	if t, ok := e.plans[n]; ok {
		return t
	}

	var t lineTransform
	if e.cfg.Backend == BackendAuto {
		if plan, err := algofft.NewPlan64(n); err == nil {
			t = planTransform{plan: plan}
		}
	}

	if t == nil {
		t = gonumTransform{fft: fourier.NewCmplxFFT(n)}
	}

	e.plans[n] = t

	return t
}

// transformAxes applies the forward DFT in place along each listed axis
// (0 = ra, 1 = dec, 2 = frequency) of a buffer laid out like c.
func (e *Estimator) transformAxes(buf []complex128, c *cube.Cube, axes ...int) error {
	lengths := [3]int{c.NX, c.NY, c.NZ}
	strides := [3]int{c.NY * c.NZ, c.NZ, 1}

	for _, axis := range axes {
		n, stride := lengths[axis], strides[axis]
		if n <= 1 {
			continue
		}

		t := e.transform(n)
		e.line = growComplex(e.line, 2*n)
		in, out := e.line[:n], e.line[n:2*n]

		for start := range buf {
			if (start/stride)%n != 0 {
				continue
			}

			for m := range n {
				in[m] = buf[start+m*stride]
			}

			if err := t.forward(out, in); err != nil {
				return fmt.Errorf("powerspec: fft length %d: %w", n, err)
			}

			for m := range n {
				buf[start+m*stride] = out[m]
			}
		}
	}

	return nil
}

func growComplex(buf []complex128, n int) []complex128 {
	if cap(buf) < n {
		return make([]complex128, n)
	}

	return buf[:n]
}

func growFloat(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}

	return buf[:n]
}
