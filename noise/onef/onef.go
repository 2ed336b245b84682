package onef

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cwbudde/algo-scanqc/internal/numeric"
)

// Defaults of the level-2 timestreams.
const (
	DefaultSampleRate = 50.0
	DefaultGuard      = 20
	DefaultPadWindow  = 10
)

var (
	// ErrBadData is returned when the timestream is too short or cannot be
	// repaired. The parameters are NaN.
	ErrBadData = errors.New("onef: unusable timestream")
	// ErrUnfittable is returned when every fit attempt fails. The
	// parameters are +Inf.
	ErrUnfittable = errors.New("onef: noise model could not be fitted")
)

// Params are the fitted noise parameters.
type Params struct {
	Sigma0 float64
	Fknee  float64
	Alpha  float64
	// Attempt is the index of the successful fit attempt.
	Attempt int
}

// BadData returns the NaN triple.
func BadData() Params {
	nan := math.NaN()
	return Params{Sigma0: nan, Fknee: nan, Alpha: nan, Attempt: -1}
}

// Unfittable returns the +Inf triple.
func Unfittable() Params {
	inf := math.Inf(1)
	return Params{Sigma0: inf, Fknee: inf, Alpha: inf, Attempt: -1}
}

// Model returns sigma0²·(1+(f/fknee)^alpha).
func (p Params) Model(f float64) float64 {
	return p.Sigma0 * p.Sigma0 * (1 + math.Pow(f/p.Fknee, p.Alpha))
}

// Binned is a log-binned periodogram. Empty bins are dropped.
type Binned struct {
	Freq   []float64
	Power  []float64
	NModes []int
}

// Config holds fitter settings.
type Config struct {
	SampleRate float64
	Guard      int
	PadWindow  int
	Edges      []float64
	Seed       int64
	Seeded     bool
}

// Option mutates a Config.
type Option func(*Config)

// WithSampleRate sets the sample rate in Hz.
func WithSampleRate(hz float64) Option {
	return func(cfg *Config) {
		if hz > 0 {
			cfg.SampleRate = hz
		}
	}
}

// WithGuard sets the number of trailing samples dropped before fitting.
func WithGuard(n int) Option {
	return func(cfg *Config) {
		if n >= 0 {
			cfg.Guard = n
		}
	}
}

// WithSeed seeds the noise used to fill non-finite samples.
func WithSeed(seed int64) Option {
	return func(cfg *Config) {
		cfg.Seed = seed
		cfg.Seeded = true
	}
}

// Fitter fits the noise model to timestreams. It is not safe for concurrent
// use.
type Fitter struct {
	cfg Config
	rng *rand.Rand
}

// New returns a Fitter.
func New(opts ...Option) *Fitter {
	cfg := Config{
		SampleRate: DefaultSampleRate,
		Guard:      DefaultGuard,
		PadWindow:  DefaultPadWindow,
		Edges:      numeric.Logspace(-2, 1, 20),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	seed := cfg.Seed
	if !cfg.Seeded {
		seed = time.Now().UnixNano()
	}

	return &Fitter{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Fit estimates sigma0 from first differences and fits the knee frequency
// and spectral index to the binned periodogram. The input is not modified.
func (f *Fitter) Fit(tod []float64) (Params, error) {
	n := len(tod) - f.cfg.Guard
	if n < 4 {
		return BadData(), fmt.Errorf("%w: %d samples after guard", ErrBadData, max(n, 0))
	}

	x := make([]float64, n)
	copy(x, tod[:n])

	if !numeric.AllFinite(x) {
		f.Repair(x)
		if !numeric.AllFinite(x) {
			return BadData(), fmt.Errorf("%w: non-finite samples could not be repaired", ErrBadData)
		}
	}

	sigma0, err := Sigma0(x)
	if err != nil {
		return BadData(), err
	}

	b := f.Periodogram(x)

	return fitAttempts(sigma0, b)
}

// Sigma0 returns the white-noise level std(diff(x))/sqrt(2).
func Sigma0(x []float64) (float64, error) {
	if len(x) < 2 {
		return math.NaN(), fmt.Errorf("%w: need two samples", ErrBadData)
	}

	diff := make([]float64, len(x)-1)
	for i := range diff {
		diff[i] = x[i+1] - x[i]
	}

	std, err := stats.StandardDeviationPopulation(diff)
	if err != nil {
		return math.NaN(), fmt.Errorf("%w: %w", ErrBadData, err)
	}

	return std / math.Sqrt2, nil
}

// Repair replaces non-finite samples in place, in order, by the mean of
// the finite samples in the window [i-w, min(i+w, n-1)) plus Gaussian noise
// of the window's standard deviation. Samples whose window holds no finite
// value stay non-finite.
func (f *Fitter) Repair(x []float64) {
	w := f.cfg.PadWindow
	window := make([]float64, 0, 2*w)

	for i, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			continue
		}

		window = window[:0]
		for _, s := range x[max(i-w, 0):max(min(i+w, len(x)-1), 0)] {
			if !math.IsNaN(s) && !math.IsInf(s, 0) {
				window = append(window, s)
			}
		}

		if len(window) == 0 {
			continue
		}

		mean, _ := stats.Mean(window)
		std, _ := stats.StandardDeviationPopulation(window)
		x[i] = mean + f.rng.NormFloat64()*std
	}
}

// Periodogram returns |rFFT(x)|²/n binned over the configured frequency
// edges, with mode-weighted mean frequency and power per bin.
func (f *Fitter) Periodogram(x []float64) Binned {
	n := len(x)
	coeff := fourier.NewFFT(n).Coefficients(nil, x)
	freq := numeric.RFFTFreq(n, 1/f.cfg.SampleRate)

	nb := len(f.cfg.Edges) - 1
	sumF := make([]float64, nb)
	sumP := make([]float64, nb)
	modes := make([]int, nb)

	for k, c := range coeff {
		bin := numeric.BinIndex(freq[k], f.cfg.Edges)
		if bin < 0 {
			continue
		}

		re, im := real(c), imag(c)
		sumF[bin] += freq[k]
		sumP[bin] += (re*re + im*im) / float64(n)
		modes[bin]++
	}

	var out Binned
	for i, m := range modes {
		if m == 0 {
			continue
		}
		out.Freq = append(out.Freq, sumF[i]/float64(m))
		out.Power = append(out.Power, sumP[i]/float64(m))
		out.NModes = append(out.NModes, m)
	}

	return out
}
