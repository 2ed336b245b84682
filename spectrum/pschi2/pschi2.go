// Package pschi2 chains the spectral estimator, the null simulator, the
// transfer correction and the chi-squared reducer for one map.
//
// The map is weighted by 1/rms² before transforming, and each noise
// realization N(0,1)·rms receives the same weights, so the null ensemble
// sees the exact survey depth of the data.
package pschi2

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-scanqc/mapping/binner"
	"github.com/cwbudde/algo-scanqc/mapping/cube"
	"github.com/cwbudde/algo-scanqc/spectrum/chisq"
	"github.com/cwbudde/algo-scanqc/spectrum/nullsim"
	"github.com/cwbudde/algo-scanqc/spectrum/powerspec"
	"github.com/cwbudde/algo-scanqc/spectrum/transfer"
)

// Minimum valid bins of the line-of-sight and angular statistics.
const (
	LineMinBins    = 2
	AngularMinBins = 2
)

// Result holds the intermediate spectra of one 3D statistic.
type Result struct {
	K       []float64
	Pk      []float64
	Mean    []float64
	Std     []float64
	Factors []float64
	Chi2    float64
}

// Config holds engine settings.
type Config struct {
	Cosmology powerspec.Cosmology
	Edges3D   []float64
	Edges1D2D []float64
	Estimator []powerspec.Option
}

// Option mutates a Config.
type Option func(*Config)

// WithCosmology overrides the distance conversions.
func WithCosmology(c powerspec.Cosmology) Option {
	return func(cfg *Config) {
		cfg.Cosmology = c
	}
}

// WithEdges3D overrides the 3D wavenumber edges.
func WithEdges3D(edges []float64) Option {
	return func(cfg *Config) {
		if len(edges) >= 2 {
			cfg.Edges3D = edges
		}
	}
}

// WithEstimatorOptions forwards options to the spectral estimator.
func WithEstimatorOptions(opts ...powerspec.Option) Option {
	return func(cfg *Config) {
		cfg.Estimator = append(cfg.Estimator, opts...)
	}
}

// Engine computes spectral chi-squared statistics. It owns an estimator and
// a simulator and is not safe for concurrent use.
type Engine struct {
	cfg Config
	est *powerspec.Estimator
	sim *nullsim.Simulator
}

// New returns an Engine drawing its null ensembles from sim.
func New(sim *nullsim.Simulator, opts ...Option) *Engine {
	cfg := Config{
		Cosmology: powerspec.DefaultCosmology(),
		Edges3D:   powerspec.KEdges3D(),
		Edges1D2D: powerspec.KEdges1D2D(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &Engine{cfg: cfg, est: powerspec.New(cfg.Estimator...), sim: sim}
}

// Chi2 returns the 3D spectral statistic of map m with noise rms on pixels
// of pixDeg degrees, corrected by tf. Failures yield chisq.Missing.
func (e *Engine) Chi2(m, rms *cube.Cube, pixDeg float64, tf transfer.Function) (float64, error) {
	r, err := e.Spectrum3D(m, rms, pixDeg, tf)
	if err != nil {
		return chisq.Missing(), err
	}

	return r.Chi2, nil
}

// Spectrum3D returns the corrected spectrum, the null ensemble and the
// statistic. On ErrInsufficientData the spectra are still returned.
func (e *Engine) Spectrum3D(m, rms *cube.Cube, pixDeg float64, tf transfer.Function) (Result, error) {
	w, err := weights(m, rms)
	if err != nil {
		return Result{Chi2: chisq.Missing()}, err
	}

	sp := e.cfg.Cosmology.Spacing(pixDeg)
	obs, err := e.est.Spectrum3D(weighted(w, m), e.cfg.Edges3D, sp)
	if err != nil {
		return Result{Chi2: chisq.Missing()}, err
	}

	ens, err := e.sim.Run(rms, func(noise *cube.Cube) ([][]float64, error) {
		s, err := e.est.Spectrum3D(weighted(w, noise), e.cfg.Edges3D, sp)
		return [][]float64{s.P}, err
	})
	if err != nil {
		return Result{Chi2: chisq.Missing()}, err
	}

	factors, err := tf.Factors(obs.K)
	if err != nil {
		return Result{Chi2: chisq.Missing()}, err
	}

	r := Result{K: obs.K, Pk: obs.P, Mean: ens[0].Mean, Std: ens[0].Std, Factors: factors}
	if err := transfer.Apply(r.Pk, r.Std, factors); err != nil {
		return Result{Chi2: chisq.Missing()}, err
	}

	r.Chi2, err = chisq.Reduce(r.Pk, r.Mean, r.Std)

	return r, err
}

// LineAngular returns the line-of-sight and angular statistics of m without
// transfer correction. Either value may be missing independently; err
// reports the first failure.
func (e *Engine) LineAngular(m, rms *cube.Cube, pixDeg float64) (line, angular float64, err error) {
	line, angular = chisq.Missing(), chisq.Missing()

	w, err := weights(m, rms)
	if err != nil {
		return line, angular, err
	}

	sp := e.cfg.Cosmology.Spacing(pixDeg)
	obs, err := e.est.Spectrum1D2D(weighted(w, m), e.cfg.Edges1D2D, sp)
	if err != nil {
		return line, angular, err
	}

	ens, err := e.sim.Run(rms, func(noise *cube.Cube) ([][]float64, error) {
		s, err := e.est.Spectrum1D2D(weighted(w, noise), e.cfg.Edges1D2D, sp)
		return [][]float64{s.Line, s.Angular.P}, err
	})
	if err != nil {
		return line, angular, err
	}

	line, lineErr := chisq.ReduceMin(obs.Line, ens[0].Mean, ens[0].Std, LineMinBins)
	angular, angErr := chisq.ReduceMin(obs.Angular.P, ens[1].Mean, ens[1].Std, AngularMinBins)

	switch {
	case lineErr != nil:
		return line, angular, fmt.Errorf("line: %w", lineErr)
	case angErr != nil:
		return line, angular, fmt.Errorf("angular: %w", angErr)
	}

	return line, angular, nil
}

// weights returns 1/rms² and fails fast when no voxel carries data.
func weights(m, rms *cube.Cube) (*cube.Cube, error) {
	if m == nil || rms == nil {
		return nil, fmt.Errorf("%w: nil map", cube.ErrShape)
	}

	if !m.SameShape(rms) {
		return nil, fmt.Errorf("%w: map %dx%dx%d, rms %dx%dx%d",
			cube.ErrShape, m.NX, m.NY, m.NZ, rms.NX, rms.NY, rms.NZ)
	}

	if rms.CountPositive() == 0 {
		return nil, fmt.Errorf("%w: no voxel with positive rms", chisq.ErrInsufficientData)
	}

	return binner.InverseVariance(rms), nil
}

func weighted(w, m *cube.Cube) *cube.Cube {
	out := cube.NewLike(m)
	vecmath.MulBlock(out.Data, w.Data, m.Data)

	return out
}
