// Package nullsim builds the null distribution of a power spectrum by
// Monte-Carlo: white-noise realizations scaled by a per-voxel RMS grid are
// run through the caller's spectral estimator and reduced to a mean and
// dispersion per bin.
package nullsim

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/cwbudde/algo-scanqc/mapping/cube"
)

// DefaultRealizations is the ensemble size used by the survey pipeline.
const DefaultRealizations = 100

// ErrInconsistentEstimate is returned when realizations yield spectra of
// differing shape.
var ErrInconsistentEstimate = errors.New("nullsim: estimator returned inconsistent spectra")

// Estimate maps a noise realization to one or more spectra.
type Estimate func(*cube.Cube) ([][]float64, error)

// Ensemble is the per-bin mean and population standard deviation of the
// simulated spectra.
type Ensemble struct {
	Mean []float64
	Std  []float64
}

// Config holds simulator settings.
type Config struct {
	Realizations int
	Seed         int64
	Seeded       bool
}

// Option mutates a Config.
type Option func(*Config)

// WithRealizations sets the ensemble size.
func WithRealizations(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.Realizations = n
		}
	}
}

// WithSeed makes the ensemble reproducible.
func WithSeed(seed int64) Option {
	return func(cfg *Config) {
		cfg.Seed = seed
		cfg.Seeded = true
	}
}

// Simulator draws noise realizations. It is not safe for concurrent use;
// give each unit of work its own.
type Simulator struct {
	cfg Config
	rng *rand.Rand
}

// New returns a Simulator. Without WithSeed the generator is seeded from
// the clock.
func New(opts ...Option) *Simulator {
	cfg := Config{Realizations: DefaultRealizations}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	seed := cfg.Seed
	if !cfg.Seeded {
		seed = time.Now().UnixNano()
	}

	return &Simulator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Realizations returns the ensemble size.
func (s *Simulator) Realizations() int { return s.cfg.Realizations }

// Draw returns one realization N(0,1)·rms.
func (s *Simulator) Draw(rms *cube.Cube) *cube.Cube {
	out := cube.NewLike(rms)
	for i, r := range rms.Data {
		out.Data[i] = s.rng.NormFloat64() * r
	}

	return out
}

// Run draws the ensemble and returns one Ensemble per spectrum produced by
// estimate.
func (s *Simulator) Run(rms *cube.Cube, estimate Estimate) ([]Ensemble, error) {
	n := s.cfg.Realizations

	// samples[spectrum][bin][realization]
	var samples [][][]float64

	for r := range n {
		spectra, err := estimate(s.Draw(rms))
		if err != nil {
			return nil, fmt.Errorf("nullsim: realization %d: %w", r, err)
		}

		if samples == nil {
			samples = make([][][]float64, len(spectra))
			for i, sp := range spectra {
				samples[i] = make([][]float64, len(sp))
				for b := range sp {
					samples[i][b] = make([]float64, n)
				}
			}
		}

		if len(spectra) != len(samples) {
			return nil, fmt.Errorf("%w: %d spectra, want %d", ErrInconsistentEstimate, len(spectra), len(samples))
		}

		for i, sp := range spectra {
			if len(sp) != len(samples[i]) {
				return nil, fmt.Errorf("%w: spectrum %d has %d bins, want %d", ErrInconsistentEstimate, i, len(sp), len(samples[i]))
			}
			for b, v := range sp {
				samples[i][b][r] = v
			}
		}
	}

	out := make([]Ensemble, len(samples))
	for i, bins := range samples {
		out[i] = Ensemble{Mean: make([]float64, len(bins)), Std: make([]float64, len(bins))}
		for b, vals := range bins {
			mean, err := stats.Mean(vals)
			if err != nil {
				return nil, fmt.Errorf("nullsim: mean of bin %d: %w", b, err)
			}

			std, err := stats.StandardDeviationPopulation(vals)
			if err != nil {
				return nil, fmt.Errorf("nullsim: std of bin %d: %w", b, err)
			}

			out[i].Mean[b] = mean
			out[i].Std[b] = std
		}
	}

	return out, nil
}
