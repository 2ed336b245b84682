package hierarchy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cwbudde/algo-scanqc/mapping/cube"
	"github.com/cwbudde/algo-scanqc/mapping/grid"
	"github.com/cwbudde/algo-scanqc/spectrum/chisq"
	"github.com/cwbudde/algo-scanqc/spectrum/pschi2"
	"github.com/cwbudde/algo-scanqc/spectrum/transfer"
)

// ErrLayout is returned when the maps of an obsid do not match the
// combiner's feed, sideband or channel counts.
var ErrLayout = errors.New("hierarchy: map layout mismatch")

// Level is one stage of the aggregation.
type Level int

const (
	Sideband Level = iota
	Feed
	Scan
	Obsid
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case Sideband:
		return "sideband"
	case Feed:
		return "feed"
	case Scan:
		return "scan"
	case Obsid:
		return "obsid"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// SidebandMap is the binned map and noise of one accepted sideband.
type SidebandMap struct {
	Map *cube.Cube
	RMS *cube.Cube
}

// FeedMaps holds one feed's sideband maps over its pixel range of the field
// grid. A nil sideband was not accepted.
type FeedMaps struct {
	Range     grid.Range
	Sidebands []*SidebandMap
}

// Accepted reports whether any sideband of the feed was accepted.
func (f FeedMaps) Accepted() bool {
	for _, sb := range f.Sidebands {
		if sb != nil {
			return true
		}
	}

	return false
}

// ScanMaps holds the maps of every feed of one scan.
type ScanMaps struct {
	Feeds []FeedMaps
}

// ObsidMaps holds the maps of every scan of one obsid.
type ObsidMaps struct {
	Scans []ScanMaps
}

// Result holds the statistics of every level. Missing values are NaN.
type Result struct {
	ScanSideband  [][][]float64 // [scan][feed][sideband]
	ScanLine      [][][]float64
	ScanAngular   [][][]float64
	ScanFeed      [][]float64 // [scan][feed]
	Scan          []float64
	ObsidSideband [][]float64 // [feed][sideband]
	ObsidFeed     []float64
	Obsid         float64
	// Map and RMS are the obsid map cropped to Range, with sidebands stacked
	// along frequency. Nil when no feed was accepted.
	Map   *cube.Cube
	RMS   *cube.Cube
	Range grid.Range
}

// Config holds combiner settings.
type Config struct {
	Feeds     int
	Sidebands int
	Channels  int
	Logger    *slog.Logger
}

// Option mutates a Config.
type Option func(*Config)

// WithLogger sets the logger for statistics that could not be computed.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// Combiner walks an obsid from sidebands up to the obsid map and evaluates
// the spectral statistic at each level.
type Combiner struct {
	cfg    Config
	engine *pschi2.Engine
	grid   *grid.Grid
}

// New returns a Combiner for maps on g with the given receiver layout.
func New(engine *pschi2.Engine, g *grid.Grid, feeds, sidebands, channels int, opts ...Option) *Combiner {
	cfg := Config{
		Feeds:     feeds,
		Sidebands: sidebands,
		Channels:  channels,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &Combiner{cfg: cfg, engine: engine, grid: g}
}

// NewResult returns a Result of the given shape with every value missing.
func NewResult(scans, feeds, sidebands int) Result {
	r := Result{
		ScanSideband:  make([][][]float64, scans),
		ScanLine:      make([][][]float64, scans),
		ScanAngular:   make([][][]float64, scans),
		ScanFeed:      make([][]float64, scans),
		Scan:          missing(scans),
		ObsidSideband: make([][]float64, feeds),
		ObsidFeed:     missing(feeds),
		Obsid:         chisq.Missing(),
	}

	for s := range scans {
		r.ScanSideband[s] = make([][]float64, feeds)
		r.ScanLine[s] = make([][]float64, feeds)
		r.ScanAngular[s] = make([][]float64, feeds)
		r.ScanFeed[s] = missing(feeds)
		for f := range feeds {
			r.ScanSideband[s][f] = missing(sidebands)
			r.ScanLine[s][f] = missing(sidebands)
			r.ScanAngular[s][f] = missing(sidebands)
		}
	}

	for f := range feeds {
		r.ObsidSideband[f] = missing(sidebands)
	}

	return r
}

// Process evaluates every level of obs. Only a malformed layout is returned
// as an error; statistics that cannot be computed are left missing.
func (c *Combiner) Process(obs ObsidMaps) (Result, error) {
	if err := c.validate(obs); err != nil {
		return NewResult(len(obs.Scans), c.cfg.Feeds, c.cfg.Sidebands), err
	}

	nx, ny := c.grid.NX(), c.grid.NY()
	nz := c.cfg.Sidebands * c.cfg.Channels
	pix := c.grid.PixelDeg()

	res := NewResult(len(obs.Scans), c.cfg.Feeds, c.cfg.Sidebands)
	obsidAcc := NewAccumulator(nx, ny, nz)
	feedAcc := make([]*Accumulator, c.cfg.Feeds)
	feedRanges := make([][]grid.Range, c.cfg.Feeds)
	var allRanges []grid.Range

	for s, scan := range obs.Scans {
		scanAcc := NewAccumulator(nx, ny, nz)
		var scanRanges []grid.Range

		for f, feed := range scan.Feeds {
			if !feed.Accepted() {
				continue
			}

			r := feed.Range
			feedMap := cube.New(r.NX(), r.NY(), nz)
			feedRMS := cube.New(r.NX(), r.NY(), nz)

			for b, sb := range feed.Sidebands {
				if sb == nil {
					continue
				}

				z0 := b * c.cfg.Channels
				if err := feedMap.PasteZ(sb.Map, z0); err != nil {
					return res, err
				}
				if err := feedRMS.PasteZ(sb.RMS, z0); err != nil {
					return res, err
				}

				res.ScanSideband[s][f][b] = c.stat(Sideband, sb.Map, sb.RMS, pix, transfer.DefaultAnalytic(), "scan", s, "feed", f, "sideband", b)

				line, ang, err := c.engine.LineAngular(sb.Map, sb.RMS, pix)
				if err != nil {
					c.cfg.Logger.Debug("line/angular statistic missing", "scan", s, "feed", f, "sideband", b, "error", err)
				}
				res.ScanLine[s][f][b], res.ScanAngular[s][f][b] = line, ang
			}

			res.ScanFeed[s][f] = c.stat(Feed, feedMap, feedRMS, pix, transfer.Feed(), "scan", s, "feed", f)

			if err := scanAcc.Add(feedMap, feedRMS, r.X0, r.Y0, 0); err != nil {
				return res, err
			}

			if feedAcc[f] == nil {
				feedAcc[f] = NewAccumulator(nx, ny, nz)
			}
			if err := feedAcc[f].Add(feedMap, feedRMS, r.X0, r.Y0, 0); err != nil {
				return res, err
			}

			scanRanges = append(scanRanges, r)
			feedRanges[f] = append(feedRanges[f], r)
		}

		if len(scanRanges) == 0 {
			continue
		}

		u, _ := c.grid.Union(scanRanges...)
		m, rms, err := crop(scanAcc, u)
		if err != nil {
			return res, err
		}
		res.Scan[s] = c.stat(Scan, m, rms, pix, transfer.Feed(), "scan", s)
		if err := obsidAcc.Merge(scanAcc); err != nil {
			return res, err
		}
		allRanges = append(allRanges, scanRanges...)
	}

	if len(allRanges) == 0 {
		return res, nil
	}

	u, _ := c.grid.Union(allRanges...)
	m, rms, err := crop(obsidAcc, u)
	if err != nil {
		return res, err
	}
	res.Map, res.RMS, res.Range = m, rms, u
	res.Obsid = c.stat(Obsid, res.Map, res.RMS, pix, transfer.Feed())

	for f, acc := range feedAcc {
		if acc == nil {
			continue
		}

		u, _ := c.grid.Union(feedRanges[f]...)
		m, rms, err := crop(acc, u)
		if err != nil {
			return res, err
		}

		res.ObsidFeed[f] = c.stat(Feed, m, rms, pix, transfer.Feed(), "obsid_feed", f)

		for b := range c.cfg.Sidebands {
			z0, z1 := b*c.cfg.Channels, (b+1)*c.cfg.Channels
			sbMap, err := m.SliceZ(z0, z1)
			if err != nil {
				return res, err
			}
			sbRMS, err := rms.SliceZ(z0, z1)
			if err != nil {
				return res, err
			}
			if sbRMS.CountPositive() == 0 {
				continue
			}

			res.ObsidSideband[f][b] = c.stat(Sideband, sbMap, sbRMS, pix, transfer.DefaultAnalytic(), "obsid_feed", f, "sideband", b)
		}
	}

	return res, nil
}

// crop combines acc and crops both cubes to r.
func crop(acc *Accumulator, r grid.Range) (m, rms *cube.Cube, err error) {
	m, rms = acc.Combine()

	if m, err = m.Crop(r.X0, r.X1, r.Y0, r.Y1); err != nil {
		return nil, nil, err
	}
	if rms, err = rms.Crop(r.X0, r.X1, r.Y0, r.Y1); err != nil {
		return nil, nil, err
	}

	return m, rms, nil
}

func (c *Combiner) stat(level Level, m, rms *cube.Cube, pix float64, tf transfer.Function, attrs ...any) float64 {
	v, err := c.engine.Chi2(m, rms, pix, tf)
	if err != nil {
		c.cfg.Logger.Debug("spectral statistic missing", append([]any{"level", level.String(), "error", err}, attrs...)...)
	}

	return v
}

func (c *Combiner) validate(obs ObsidMaps) error {
	nx, ny := c.grid.NX(), c.grid.NY()

	for s, scan := range obs.Scans {
		if len(scan.Feeds) != c.cfg.Feeds {
			return fmt.Errorf("%w: scan %d has %d feeds, want %d", ErrLayout, s, len(scan.Feeds), c.cfg.Feeds)
		}

		for f, feed := range scan.Feeds {
			if !feed.Accepted() {
				continue
			}

			r := feed.Range
			if r.X0 < 0 || r.Y0 < 0 || r.X1 > nx || r.Y1 > ny || r.NX() < 1 || r.NY() < 1 {
				return fmt.Errorf("%w: scan %d feed %d range %+v outside %dx%d grid", ErrLayout, s, f, r, nx, ny)
			}

			if len(feed.Sidebands) != c.cfg.Sidebands {
				return fmt.Errorf("%w: scan %d feed %d has %d sidebands, want %d", ErrLayout, s, f, len(feed.Sidebands), c.cfg.Sidebands)
			}

			for b, sb := range feed.Sidebands {
				if sb == nil {
					continue
				}

				for _, cb := range []*cube.Cube{sb.Map, sb.RMS} {
					if cb == nil || cb.NX != r.NX() || cb.NY != r.NY() || cb.NZ != c.cfg.Channels {
						return fmt.Errorf("%w: scan %d feed %d sideband %d shape does not match range %dx%dx%d",
							ErrLayout, s, f, b, r.NX(), r.NY(), c.cfg.Channels)
					}
				}
			}
		}
	}

	return nil
}

func missing(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = chisq.Missing()
	}

	return out
}
