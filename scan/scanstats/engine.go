package scanstats

import (
	"errors"
	"io"
	"log/slog"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	gstat "gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-scanqc/internal/numeric"
	"github.com/cwbudde/algo-scanqc/mapping/binner"
	"github.com/cwbudde/algo-scanqc/mapping/grid"
	"github.com/cwbudde/algo-scanqc/mapping/hierarchy"
	"github.com/cwbudde/algo-scanqc/noise/onef"
	"github.com/cwbudde/algo-scanqc/scan/ephem"
	"github.com/cwbudde/algo-scanqc/scan/record"
	"github.com/cwbudde/algo-scanqc/scan/spikes"
	"github.com/cwbudde/algo-scanqc/spectrum/chisq"
	"github.com/cwbudde/algo-scanqc/spectrum/pschi2"
	"github.com/cwbudde/algo-scanqc/spectrum/transfer"
	"github.com/cwbudde/algo-scanqc/stats/moments"
)

const (
	// DefaultAzBins is the number of azimuth bins of the az chi-squared.
	DefaultAzBins = 15
	// FixedFieldFeature marks scans that track a fixed patch instead of the
	// catalogued field centre. Their field grid is recentred on the mean
	// pointing of the first feed.
	FixedFieldFeature = 128
)

// Saddlebags maps feed slots to the LNA saddlebag (1-4) that houses them.
var Saddlebags = [...]int{1, 3, 4, 1, 1, 2, 3, 4, 4, 4, 4, 1, 1, 2, 2, 2, 2, 3, 3, 3}

// Config holds engine settings.
type Config struct {
	Feeds          int
	Sidebands      int
	Channels       int
	AzBins         int
	SpikeThreshold float64
	LocalPixels    int
	LocalPixelDeg  float64
	Site           ephem.Site
	Logger         *slog.Logger
}

// Option mutates a Config.
type Option func(*Config)

// WithAzBins sets the number of azimuth bins.
func WithAzBins(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.AzBins = n
		}
	}
}

// WithSpikeThreshold sets the amplitude above which events are counted.
func WithSpikeThreshold(v float64) Option {
	return func(cfg *Config) {
		if v > 0 {
			cfg.SpikeThreshold = v
		}
	}
}

// WithSite sets the observatory location.
func WithSite(site ephem.Site) Option {
	return func(cfg *Config) {
		cfg.Site = site
	}
}

// WithLogger sets the logger for skipped statistics.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// Engine computes the statistics record of a scan and bins its accepted
// sidebands onto the field grid. It owns a spectral engine and a noise
// fitter and is not safe for concurrent use.
type Engine struct {
	cfg    Config
	schema *record.Schema
	grid   *grid.Grid
	ps     *pschi2.Engine
	noise  *onef.Fitter
}

// New returns an Engine for scans of the given receiver layout on field
// grid g.
func New(schema *record.Schema, g *grid.Grid, ps *pschi2.Engine, noise *onef.Fitter, feeds, sidebands, channels int, opts ...Option) *Engine {
	cfg := Config{
		Feeds:          feeds,
		Sidebands:      sidebands,
		Channels:       channels,
		AzBins:         DefaultAzBins,
		SpikeThreshold: spikes.DefaultThreshold,
		LocalPixels:    grid.LocalPixels,
		LocalPixelDeg:  grid.LocalPixelDeg,
		Site:           ephem.OVRO,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &Engine{cfg: cfg, schema: schema, grid: g, ps: ps, noise: noise}
}

// Grid returns the field grid the maps are binned on.
func (e *Engine) Grid() *grid.Grid { return e.grid }

// Process computes the record and the field-grid maps of s. A malformed
// scan yields an all-missing record, maps with no accepted sideband and
// ErrMalformedScan.
func (e *Engine) Process(s *Scan) (*record.Record, hierarchy.ScanMaps, error) {
	rec := record.New(e.schema, s.ObsID, s.ScanID, e.cfg.Feeds, e.cfg.Sidebands)
	maps := hierarchy.ScanMaps{Feeds: make([]hierarchy.FeedMaps, e.cfg.Feeds)}

	if err := s.validate(e.cfg.Feeds, e.cfg.Sidebands, e.cfg.Channels); err != nil {
		return rec, maps, err
	}

	w := writer{rec: rec, log: e.cfg.Logger.With("obsid", s.ObsID, "scan", s.ScanID)}

	w.all("obsid", float64(s.ObsID))
	w.all("scanid", float64(s.ScanID))
	w.all("fbit", float64(s.Feature))
	w.all("weather", s.Weather)

	mid := 0.5 * (s.MJD[0] + s.MJD[len(s.MJD)-1])
	w.all("mjd", mid)
	w.all("night", ephem.Night(mid))
	w.all("sidereal", ephem.Sidereal(mid))
	w.all("scan_length", (s.MJD[len(s.MJD)-1]-s.MJD[0])*24*60)

	az, el := e.pointing(s)
	w.perFeed("az", az)
	w.perFeed("el", el)

	w.grid("chi2", e.chi2(s))
	if s.AcceptRate != nil {
		w.grid("acceptrate", s.AcceptRate)
	}

	full, peak, med := e.azChi2(s)
	w.grid("az_chi2", full)
	w.grid("max_az_chi2", peak)
	w.grid("med_az_chi2", med)

	w.grid("az_amp", e.maskedMean(s.AzAmp, s.Mask))
	w.grid("el_amp", e.maskedMean(s.ElAmp, s.Mask))
	w.grid("tsys", e.maskedMean(s.Tsys, s.Mask))

	e.spikeCounts(w, s)

	kurt, skew := e.moments(s)
	w.grid("kurtosis", kurt)
	w.grid("skewness", skew)

	w.grid("ps_chi2", e.psChi2(w, s))
	maps = e.fieldMaps(w, s)

	e.saddlebags(w)
	e.noiseFits(w, s)
	e.housekeeping(w, s.Housekeeping)
	e.contamination(w, mid, az, el)

	return rec, maps, nil
}

// pointing returns the circular mean azimuth and the mean elevation of
// every feed.
func (e *Engine) pointing(s *Scan) (az, el []float64) {
	az = make([]float64, e.cfg.Feeds)
	el = make([]float64, e.cfg.Feeds)

	rad := make([]float64, s.Samples())
	for f := range e.cfg.Feeds {
		for i, a := range s.Az[f] {
			rad[i] = a * math.Pi / 180
		}
		az[f] = math.Mod(gstat.CircularMean(rad, nil)*180/math.Pi+360, 360)
		el[f] = gstat.Mean(s.El[f], nil)
	}

	return az, el
}

// chi2 returns the summed per-channel chi-squared scaled by the square
// root of the number of unmasked channels.
func (e *Engine) chi2(s *Scan) [][]float64 {
	out := e.missing()
	if s.Chi2 == nil {
		return out
	}

	for f := range e.cfg.Feeds {
		for b := range e.cfg.Sidebands {
			n := nanSum(s.Mask[f][b])
			if n == 0 {
				continue
			}
			out[f][b] = nanSum(s.Chi2[f][b]) / math.Sqrt(n)
		}
	}

	return out
}

// azChi2 bins each unmasked channel's normalized timestream by azimuth and
// returns, per sideband, the combined, largest and median channel
// statistics.
func (e *Engine) azChi2(s *Scan) (full, peak, med [][]float64) {
	full, peak, med = e.missing(), e.missing(), e.missing()

	for f := range e.cfg.Feeds {
		lo, hi, ok := extent(s.Az[f])
		if !ok {
			continue
		}
		if lo == hi {
			lo, hi = lo-0.5, hi+0.5
		}
		edges := numeric.Linspace(lo, hi, e.cfg.AzBins+1)

		bins := make([]int, len(s.Az[f]))
		nhit := make([]float64, e.cfg.AzBins)
		for i, a := range s.Az[f] {
			bins[i] = numeric.BinIndex(a, edges)
			if bins[i] >= 0 {
				nhit[bins[i]]++
			}
		}

		for b := range e.cfg.Sidebands {
			if !s.Accepted(f, b) {
				continue
			}

			perChannel := make([]float64, e.cfg.Channels)
			sum := make([]float64, e.cfg.AzBins)
			for k := range e.cfg.Channels {
				sigma := s.Sigma0[f][b][k]
				if s.Mask[f][b][k] == 0 || !(sigma > 0) {
					continue
				}

				numeric.Fill(sum, 0)
				for i, x := range s.TOD[f][b][k] {
					if bins[i] >= 0 {
						sum[bins[i]] += finiteOrZero(x) / sigma
					}
				}

				var q float64
				var n int
				for j, h := range nhit {
					if h == 0 {
						continue
					}
					v := sum[j] / math.Sqrt(h)
					q += v * v
					n++
				}
				if n > 0 {
					perChannel[k] = (q - float64(n)) / math.Sqrt(2*float64(n))
				}
			}

			full[f][b] = floats.Sum(perChannel) / math.Sqrt(nanSum(s.Mask[f][b]))
			peak[f][b] = floats.Max(perChannel)
			med[f][b], _ = stats.Median(perChannel)
		}
	}

	return full, peak, med
}

// maskedMean returns Σ v·mask / Σ mask per sideband, skipping NaN values.
func (e *Engine) maskedMean(v, mask [][][]float64) [][]float64 {
	out := e.missing()
	if v == nil {
		return out
	}

	for f := range e.cfg.Feeds {
		for b := range e.cfg.Sidebands {
			var num, den float64
			for k, m := range mask[f][b] {
				if math.IsNaN(m) || m == 0 {
					continue
				}
				if x := v[f][b][k]; !math.IsNaN(x) {
					num += x * m
				}
				den += m
			}
			if den > 0 {
				out[f][b] = num / den
			}
		}
	}

	return out
}

func (e *Engine) spikeCounts(w writer, s *Scan) {
	sorted := s.Spikes.Sorted()
	for kind, name := range map[spikes.Kind]string{
		spikes.Spike:   "n_spikes",
		spikes.Jump:    "n_jumps",
		spikes.Anomaly: "n_anomalies",
	} {
		counts := spikes.CountAbove(sorted[kind], e.cfg.SpikeThreshold, e.cfg.Feeds, e.cfg.Sidebands)
		out := e.missing()
		for f := range out {
			for b := range out[f] {
				out[f][b] = float64(counts[f][b])
			}
		}
		w.grid(name, out)
	}
}

// moments returns the excess kurtosis and skewness of tod/sigma0 over the
// unmasked channels of accepted sidebands.
func (e *Engine) moments(s *Scan) (kurt, skew [][]float64) {
	kurt, skew = e.missing(), e.missing()

	var acc moments.Accumulator
	for f := range e.cfg.Feeds {
		for b := range e.cfg.Sidebands {
			if !s.Accepted(f, b) {
				continue
			}

			acc.Reset()
			for k := range e.cfg.Channels {
				sigma := s.Sigma0[f][b][k]
				if !(s.Mask[f][b][k] > 0) || !(sigma > 0) {
					continue
				}
				for _, x := range s.TOD[f][b][k] {
					acc.Add(finiteOrZero(x) / sigma)
				}
			}

			m := acc.Result()
			kurt[f][b], skew[f][b] = m.Kurtosis, m.Skewness
		}
	}

	return kurt, skew
}

// psChi2 evaluates the spectral statistic of each accepted sideband on a
// small grid centred on the feed's own pointing.
func (e *Engine) psChi2(w writer, s *Scan) [][]float64 {
	out := e.missing()

	for f := range e.cfg.Feeds {
		raEdges, decEdges, err := grid.Local(s.RA[f], s.Dec[f], e.cfg.LocalPixels, e.cfg.LocalPixelDeg)
		if err != nil {
			w.log.Debug("no local grid", "feed", f, "error", err)
			continue
		}

		for b := range e.cfg.Sidebands {
			if !s.Accepted(f, b) {
				continue
			}

			m, err := binner.Bin(s.RA[f], s.Dec[f], s.TOD[f][b], s.Mask[f][b], raEdges, decEdges)
			if err != nil {
				w.log.Debug("sideband not binned", "feed", f, "sideband", b, "error", err)
				continue
			}

			rms, err := binner.RMS(m.Hits, s.Sigma0[f][b])
			if err != nil {
				w.log.Debug("sideband rms", "feed", f, "sideband", b, "error", err)
				continue
			}

			v, err := e.ps.Chi2(m.Signal, rms, e.cfg.LocalPixelDeg, transfer.DefaultAnalytic())
			if err != nil && !errors.Is(err, chisq.ErrInsufficientData) {
				w.log.Debug("ps_chi2 missing", "feed", f, "sideband", b, "error", err)
			}
			out[f][b] = v
		}
	}

	return out
}

// fieldMaps bins every accepted sideband over the feed's pixel range of
// the field grid.
func (e *Engine) fieldMaps(w writer, s *Scan) hierarchy.ScanMaps {
	maps := hierarchy.ScanMaps{Feeds: make([]hierarchy.FeedMaps, e.cfg.Feeds)}

	g := e.grid
	if s.Feature == FixedFieldFeature {
		ra0, dec0, err := grid.MeanCenter(s.RA[0], s.Dec[0])
		if err != nil {
			w.log.Debug("fixed-field scan without pointing", "error", err)
			return maps
		}
		g = g.Recenter(ra0, dec0)
	}

	for f := range e.cfg.Feeds {
		r, err := g.FeedRange(s.RA[f], s.Dec[f])
		if err != nil {
			w.log.Debug("feed outside field", "feed", f, "error", err)
			continue
		}

		feed := hierarchy.FeedMaps{Range: r, Sidebands: make([]*hierarchy.SidebandMap, e.cfg.Sidebands)}
		for b := range e.cfg.Sidebands {
			if !s.Accepted(f, b) {
				continue
			}

			m, err := binner.Bin(s.RA[f], s.Dec[f], s.TOD[f][b], s.Mask[f][b], r.RAEdges, r.DecEdges)
			if err != nil {
				w.log.Debug("sideband skipped on field grid", "feed", f, "sideband", b, "error", err)
				continue
			}

			rms, err := binner.RMS(m.Hits, s.Sigma0[f][b])
			if err != nil {
				w.log.Debug("sideband rms on field grid", "feed", f, "sideband", b, "error", err)
				continue
			}

			feed.Sidebands[b] = &hierarchy.SidebandMap{Map: m.Signal, RMS: rms}
		}
		maps.Feeds[f] = feed
	}

	return maps
}

func (e *Engine) saddlebags(w writer) {
	for f := range e.cfg.Feeds {
		v := math.NaN()
		if f < len(Saddlebags) {
			v = float64(Saddlebags[f])
		}
		w.feed(f, "saddlebag", v)
	}
}

// noiseFits fits the one-over-f model to the polynomial filter
// coefficients and to the sideband mean of each accepted sideband.
func (e *Engine) noiseFits(w writer, s *Scan) {
	type series struct {
		sigma, fknee, alpha string
	}
	poly := []series{
		{"sigma_poly0", "fknee_poly0", "alpha_poly0"},
		{"sigma_poly1", "fknee_poly1", "alpha_poly1"},
	}

	for f := range e.cfg.Feeds {
		for b := range e.cfg.Sidebands {
			if !s.Accepted(f, b) {
				continue
			}

			if s.PolyCoeff != nil {
				for l, names := range poly {
					if l >= len(s.PolyCoeff[f][b]) {
						break
					}
					p := e.fit(w, s.PolyCoeff[f][b][l], "feed", f, "sideband", b, "order", l)
					w.one(f, b, names.sigma, p.Sigma0)
					w.one(f, b, names.fknee, p.Fknee)
					w.one(f, b, names.alpha, p.Alpha)
				}
			}

			if s.SBMean != nil {
				mean, err := stats.Mean(s.SBMean[f][b])
				if err != nil {
					mean = math.NaN()
				}
				w.one(f, b, "power_mean", mean)

				p := e.fit(w, s.SBMean[f][b], "feed", f, "sideband", b, "series", "sb_mean")
				w.one(f, b, "sigma_mean", p.Sigma0)
				w.one(f, b, "fknee_mean", p.Fknee)
				w.one(f, b, "alpha_mean", p.Alpha)
			}
		}
	}
}

func (e *Engine) fit(w writer, tod []float64, attrs ...any) onef.Params {
	p, err := e.noise.Fit(tod)
	switch {
	case errors.Is(err, onef.ErrBadData):
		w.log.Warn("noise fit on unusable timestream", append(attrs, "error", err)...)
	case err != nil:
		w.log.Debug("noise model not fitted", append(attrs, "error", err)...)
	}

	return p
}

func (e *Engine) housekeeping(w writer, hk Housekeeping) {
	for name, v := range map[string][]float64{
		"airtemp":   hk.AirTemp,
		"dewtemp":   hk.DewTemp,
		"humidity":  hk.Humidity,
		"pressure":  hk.Pressure,
		"rain":      hk.Rain,
		"winddir":   hk.WindDir,
		"windspeed": hk.WindSpeed,
	} {
		mean, err := stats.Mean(v)
		if err != nil {
			mean = math.NaN()
		}
		w.all(name, mean)
	}
}

// contamination places the sun and moon relative to each feed's mean
// pointing at the scan midpoint.
func (e *Engine) contamination(w writer, mjd float64, az, el []float64) {
	sun := ephem.Sun(mjd, e.cfg.Site)
	moon := ephem.Moon(mjd, e.cfg.Site)
	w.all("sun_el", sun.Alt)

	for f := range e.cfg.Feeds {
		bore := ephem.Horizontal{Alt: el[f], Az: az[f]}

		so := ephem.Relative(bore, sun)
		w.feed(f, "sun_dist", so.Dist)
		w.feed(f, "sun_angle", so.Angle)
		w.feed(f, "sun_cent_sl", so.Central)
		w.feed(f, "sun_outer_sl", so.Outer)

		mo := ephem.Relative(bore, moon)
		w.feed(f, "moon_dist", mo.Dist)
		w.feed(f, "moon_angle", mo.Angle)
		w.feed(f, "moon_cent_sl", mo.Central)
		w.feed(f, "moon_outer_sl", mo.Outer)
	}
}

func (e *Engine) missing() [][]float64 {
	out := make([][]float64, e.cfg.Feeds)
	for f := range out {
		out[f] = make([]float64, e.cfg.Sidebands)
		numeric.Fill(out[f], math.NaN())
	}

	return out
}

// extent returns the smallest and largest finite value.
func extent(v []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		lo, hi, ok = math.Min(lo, x), math.Max(hi, x), true
	}

	return lo, hi, ok
}

func nanSum(v []float64) float64 {
	var s float64
	for _, x := range v {
		if !math.IsNaN(x) {
			s += x
		}
	}

	return s
}

func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}

	return x
}
