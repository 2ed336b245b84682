// Package synth generates synthetic level-2 scans: a Lissajous pattern
// around a field centre, white noise of known sigma in every channel and an
// optional constant signal in selected sidebands. It backs the tests, the
// CLI demo run and any pipeline.Source that has no real data.
package synth

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-scanqc/mapping/grid"
	"github.com/cwbudde/algo-scanqc/scan/scanstats"
	"github.com/cwbudde/algo-scanqc/scan/spikes"
)

// Config describes the generated scans.
type Config struct {
	Feeds      int
	Sidebands  int
	Channels   int
	Samples    int
	SampleRate float64
	// ScansPerObsid is the number of scans of every obsid.
	ScansPerObsid int
	Field         grid.Field
	// Amplitude is the half-width of the pointing pattern in degrees.
	Amplitude float64
	// FeedSpacing offsets consecutive feeds in dec, in degrees.
	FeedSpacing float64
	StartMJD    float64
	Sigma       float64
	// Signal is added to every sample of the active sidebands.
	Signal float64
	// Active lists the sidebands that are unmasked and accepted. Nil means
	// all of them.
	Active []int
	Seed   int64
}

// Option mutates a Config.
type Option func(*Config)

// WithLayout sets the receiver layout and the samples per scan.
func WithLayout(feeds, sidebands, channels, samples int) Option {
	return func(cfg *Config) {
		cfg.Feeds, cfg.Sidebands, cfg.Channels, cfg.Samples = feeds, sidebands, channels, samples
	}
}

// WithField sets the field the pattern is centred on.
func WithField(f grid.Field) Option {
	return func(cfg *Config) {
		cfg.Field = f
	}
}

// WithScansPerObsid sets the number of scans per obsid.
func WithScansPerObsid(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.ScansPerObsid = n
		}
	}
}

// WithNoise sets the white-noise sigma per sample.
func WithNoise(sigma float64) Option {
	return func(cfg *Config) {
		if sigma > 0 {
			cfg.Sigma = sigma
		}
	}
}

// WithSignal adds a constant to the active sidebands.
func WithSignal(v float64) Option {
	return func(cfg *Config) {
		cfg.Signal = v
	}
}

// WithActive restricts data to the given sidebands.
func WithActive(sidebands ...int) Option {
	return func(cfg *Config) {
		cfg.Active = append([]int{}, sidebands...)
	}
}

// WithSeed seeds the generator.
func WithSeed(seed int64) Option {
	return func(cfg *Config) {
		cfg.Seed = seed
	}
}

// DefaultConfig is a small two-feed receiver observing a 2° field.
func DefaultConfig() Config {
	return Config{
		Feeds:         2,
		Sidebands:     4,
		Channels:      64,
		Samples:       3000,
		SampleRate:    50,
		ScansPerObsid: 2,
		Field: grid.Field{
			Name:        "synthetic",
			CenterRA:    170,
			CenterDec:   52,
			RadiusDeg:   grid.DefaultRadiusDeg,
			PixelArcmin: grid.DefaultPixelArcmin,
		},
		Amplitude:   0.8,
		FeedSpacing: 0.1,
		StartMJD:    59000.25,
		Sigma:       0.01,
		Seed:        1,
	}
}

// Generator produces deterministic scans. It is safe for concurrent use;
// every scan draws from its own seeded source.
type Generator struct {
	cfg    Config
	active []bool
}

// New returns a Generator.
func New(opts ...Option) *Generator {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	active := make([]bool, cfg.Sidebands)
	for b := range active {
		active[b] = cfg.Active == nil
	}
	for _, b := range cfg.Active {
		if b >= 0 && b < len(active) {
			active[b] = true
		}
	}

	return &Generator{cfg: cfg, active: active}
}

// Config returns the generator settings.
func (g *Generator) Config() Config { return g.cfg }

// ScanID returns the id of scan index of an obsid.
func ScanID(obsid, index int) int { return obsid*100 + index + 2 }

// Scan generates scan index of obsid.
func (g *Generator) Scan(obsid, index int) *scanstats.Scan {
	cfg := g.cfg
	id := ScanID(obsid, index)
	rng := rand.New(rand.NewSource(cfg.Seed*1_000_003 + int64(id)))

	n := cfg.Samples
	dt := 1 / cfg.SampleRate / 86400
	start := cfg.StartMJD + float64(obsid%1000)*0.05 + float64(index)*(float64(n)*dt+1.0/1440)

	s := &scanstats.Scan{
		ObsID:      obsid,
		ScanID:     id,
		MJD:        make([]float64, n),
		TOD:        make([][][][]float64, cfg.Feeds),
		RA:         make([][]float64, cfg.Feeds),
		Dec:        make([][]float64, cfg.Feeds),
		Az:         make([][]float64, cfg.Feeds),
		El:         make([][]float64, cfg.Feeds),
		Mask:       make([][][]float64, cfg.Feeds),
		Sigma0:     make([][][]float64, cfg.Feeds),
		Tsys:       make([][][]float64, cfg.Feeds),
		Chi2:       make([][][]float64, cfg.Feeds),
		AzAmp:      make([][][]float64, cfg.Feeds),
		ElAmp:      make([][][]float64, cfg.Feeds),
		AcceptRate: make([][]float64, cfg.Feeds),
		SBMean:     make([][][]float64, cfg.Feeds),
		PolyCoeff:  make([][][][]float64, cfg.Feeds),
		Weather:    0.1,
	}

	for i := range s.MJD {
		s.MJD[i] = start + float64(i)*dt
	}

	cosDec := math.Cos(cfg.Field.CenterDec * math.Pi / 180)
	phase := rng.Float64() * 2 * math.Pi

	for f := range cfg.Feeds {
		s.RA[f] = make([]float64, n)
		s.Dec[f] = make([]float64, n)
		s.Az[f] = make([]float64, n)
		s.El[f] = make([]float64, n)

		off := (float64(f) - float64(cfg.Feeds-1)/2) * cfg.FeedSpacing
		for i := range n {
			t := float64(i) / float64(n)
			x := cfg.Amplitude * math.Sin(2*math.Pi*7*t+phase)
			y := cfg.Amplitude * math.Sin(2*math.Pi*5*t)
			s.RA[f][i] = cfg.Field.CenterRA + x/cosDec
			s.Dec[f][i] = cfg.Field.CenterDec + y + off
			s.Az[f][i] = 300 + 10*math.Sin(2*math.Pi*7*t+phase)
			s.El[f][i] = 60 + 0.5*math.Sin(2*math.Pi*5*t) + off
		}

		s.TOD[f] = make([][][]float64, cfg.Sidebands)
		s.Mask[f] = make([][]float64, cfg.Sidebands)
		s.Sigma0[f] = make([][]float64, cfg.Sidebands)
		s.Tsys[f] = make([][]float64, cfg.Sidebands)
		s.Chi2[f] = make([][]float64, cfg.Sidebands)
		s.AzAmp[f] = make([][]float64, cfg.Sidebands)
		s.ElAmp[f] = make([][]float64, cfg.Sidebands)
		s.AcceptRate[f] = make([]float64, cfg.Sidebands)
		s.SBMean[f] = make([][]float64, cfg.Sidebands)
		s.PolyCoeff[f] = make([][][]float64, cfg.Sidebands)

		for b := range cfg.Sidebands {
			g.sideband(s, rng, f, b)
		}
	}

	s.Spikes = g.events(rng)
	s.Housekeeping = scanstats.Housekeeping{
		AirTemp:   []float64{12, 12.5},
		DewTemp:   []float64{-3, -2.5},
		Humidity:  []float64{0.3},
		Pressure:  []float64{880},
		Rain:      []float64{0},
		WindDir:   []float64{200, 210},
		WindSpeed: []float64{3, 4},
	}

	return s
}

func (g *Generator) sideband(s *scanstats.Scan, rng *rand.Rand, f, b int) {
	cfg := g.cfg
	n := cfg.Samples
	on := g.active[b]

	tod := make([][]float64, cfg.Channels)
	mask := make([]float64, cfg.Channels)
	sigma := make([]float64, cfg.Channels)
	tsys := make([]float64, cfg.Channels)
	chi2 := make([]float64, cfg.Channels)
	azAmp := make([]float64, cfg.Channels)
	elAmp := make([]float64, cfg.Channels)

	for k := range cfg.Channels {
		tod[k] = make([]float64, n)
		signal := 0.0
		if on {
			mask[k] = 1
			signal = cfg.Signal
		}
		for i := range tod[k] {
			tod[k][i] = signal + cfg.Sigma*rng.NormFloat64()
		}
		sigma[k] = cfg.Sigma
		tsys[k] = 40 + 5*rng.Float64()
		chi2[k] = rng.NormFloat64()
		azAmp[k] = 1e-4 * rng.NormFloat64()
		elAmp[k] = 1e-3 * rng.NormFloat64()
	}

	s.TOD[f][b] = tod
	s.Mask[f][b] = mask
	s.Sigma0[f][b] = sigma
	s.Tsys[f][b] = tsys
	s.Chi2[f][b] = chi2
	s.AzAmp[f][b] = azAmp
	s.ElAmp[f][b] = elAmp
	if on {
		s.AcceptRate[f][b] = 1
	}

	s.SBMean[f][b] = drift(rng, n, cfg.SampleRate, cfg.Sigma)
	s.PolyCoeff[f][b] = [][]float64{
		drift(rng, n, cfg.SampleRate, cfg.Sigma),
		drift(rng, n, cfg.SampleRate, cfg.Sigma/10),
	}
}

// drift returns white noise plus a slow random-phase drift at a few
// hundredths of a hertz.
func drift(rng *rand.Rand, n int, rate, sigma float64) []float64 {
	out := make([]float64, n)
	phase := rng.Float64() * 2 * math.Pi
	for i := range out {
		t := float64(i) / rate
		out[i] = sigma*rng.NormFloat64() + 5*sigma*math.Sin(2*math.Pi*0.03*t+phase)
	}

	return out
}

// events returns one event of each kind on a random feed and sideband.
func (g *Generator) events(rng *rand.Rand) spikes.List {
	cfg := g.cfg
	var out spikes.List
	for _, kind := range []spikes.Kind{spikes.Spike, spikes.Jump, spikes.Anomaly} {
		f, b := rng.Intn(cfg.Feeds), rng.Intn(cfg.Sidebands)
		sbs := make([][]float64, cfg.Feeds)
		for i := range sbs {
			sbs[i] = make([]float64, cfg.Sidebands)
		}
		amp := 0.01 * (1 + rng.Float64())
		sbs[f][b] = amp

		out = append(out, spikes.Event{
			Kind:      kind,
			Amplitude: amp,
			Feed:      f,
			Sideband:  b,
			Sample:    rng.Intn(cfg.Samples),
			Sidebands: sbs,
		})
	}

	return out
}

// Obsid generates every scan of obsid.
func (g *Generator) Obsid(obsid int) []*scanstats.Scan {
	out := make([]*scanstats.Scan, g.cfg.ScansPerObsid)
	for i := range out {
		out[i] = g.Scan(obsid, i)
	}

	return out
}

// Source serves generated obsids. Obsids listed in Fail return an error,
// which exercises the failure path of batch runners.
type Source struct {
	Gen  *Generator
	Fail map[int]bool
}

// Scans returns the scans of obsid.
func (s Source) Scans(ctx context.Context, obsid int) ([]*scanstats.Scan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.Fail[obsid] {
		return nil, fmt.Errorf("synth: obsid %d unavailable", obsid)
	}

	return s.Gen.Obsid(obsid), nil
}
