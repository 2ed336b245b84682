package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-scanqc/mapping/grid"
	"github.com/cwbudde/algo-scanqc/mapping/hierarchy"
	"github.com/cwbudde/algo-scanqc/noise/onef"
	"github.com/cwbudde/algo-scanqc/scan/record"
	"github.com/cwbudde/algo-scanqc/scan/scanstats"
	"github.com/cwbudde/algo-scanqc/spectrum/nullsim"
	"github.com/cwbudde/algo-scanqc/spectrum/pschi2"
)

// DefaultWorkers is the number of obsids processed concurrently.
const DefaultWorkers = 4

var (
	// ErrNoScans is returned for an obsid whose source yields no scans.
	ErrNoScans = errors.New("pipeline: obsid has no scans")
	// ErrLayout is returned for a non-positive receiver layout.
	ErrLayout = errors.New("pipeline: invalid receiver layout")
)

// Source supplies the scans of one obsid.
type Source interface {
	Scans(ctx context.Context, obsid int) ([]*scanstats.Scan, error)
}

// Result is the outcome of one obsid. Records holds one record per scan in
// source order; Err is set when the unit failed, in which case Records and
// Hier are empty.
type Result struct {
	ObsID   int
	Records []*record.Record
	Hier    hierarchy.Result
	Err     error
}

// Config holds runner settings.
type Config struct {
	Feeds        int
	Sidebands    int
	Channels     int
	Workers      int
	Realizations int
	SampleRate   float64
	Seed         int64
	Seeded       bool
	Schema       *record.Schema
	Logger       *slog.Logger
}

// Option mutates a Config.
type Option func(*Config)

// WithWorkers sets the number of obsids processed concurrently.
func WithWorkers(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.Workers = n
		}
	}
}

// WithRealizations sets the null ensemble size.
func WithRealizations(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.Realizations = n
		}
	}
}

// WithSampleRate sets the timestream sample rate in Hz.
func WithSampleRate(hz float64) Option {
	return func(cfg *Config) {
		if hz > 0 {
			cfg.SampleRate = hz
		}
	}
}

// WithSeed makes every unit reproducible. Unit seeds are derived from seed
// and the obsid, so results do not depend on scheduling.
func WithSeed(seed int64) Option {
	return func(cfg *Config) {
		cfg.Seed = seed
		cfg.Seeded = true
	}
}

// WithSchema sets the record schema.
func WithSchema(s *record.Schema) Option {
	return func(cfg *Config) {
		if s != nil {
			cfg.Schema = s
		}
	}
}

// WithLogger sets the logger shared by the runner and its engines.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// Runner processes obsids of one field.
type Runner struct {
	cfg  Config
	src  Source
	grid *grid.Grid
}

// New returns a Runner reading scans of field from src.
func New(src Source, field grid.Field, feeds, sidebands, channels int, opts ...Option) (*Runner, error) {
	if feeds < 1 || sidebands < 1 || channels < 1 {
		return nil, fmt.Errorf("%w: %d feeds, %d sidebands, %d channels", ErrLayout, feeds, sidebands, channels)
	}

	cfg := Config{
		Feeds:        feeds,
		Sidebands:    sidebands,
		Channels:     channels,
		Workers:      DefaultWorkers,
		Realizations: nullsim.DefaultRealizations,
		SampleRate:   onef.DefaultSampleRate,
		Schema:       record.DefaultSchema(),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	g, err := grid.New(field)
	if err != nil {
		return nil, fmt.Errorf("pipeline: field %q: %w", field.Name, err)
	}

	return &Runner{cfg: cfg, src: src, grid: g}, nil
}

// Config returns the runner settings.
func (r *Runner) Config() Config { return r.cfg }

// Grid returns the field grid the maps are combined on.
func (r *Runner) Grid() *grid.Grid { return r.grid }

// Run processes obsids with at most Workers units in flight. A failing unit
// is logged and reported in its Result; it never stops the batch. When ctx
// is cancelled no further units are started and the undispatched ones carry
// ctx.Err(), which Run also returns.
func (r *Runner) Run(ctx context.Context, obsids []int) ([]Result, error) {
	results := make([]Result, len(obsids))

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)

	for i, id := range obsids {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(obsids); j++ {
				results[j] = Result{ObsID: obsids[j], Err: err}
			}

			break
		}

		g.Go(func() error {
			results[i] = r.Process(ctx, id)
			return nil
		})
	}

	_ = g.Wait()

	return results, ctx.Err()
}

// Process runs one obsid: statistics of every scan, the hierarchical
// spectra of the obsid and the broadcast of those spectra into the scan
// records. Each call owns its simulator and fitters.
func (r *Runner) Process(ctx context.Context, obsid int) Result {
	log := r.cfg.Logger.With("obsid", obsid)
	res := Result{ObsID: obsid}

	scans, err := r.src.Scans(ctx, obsid)
	if err == nil && len(scans) == 0 {
		err = ErrNoScans
	}
	if err != nil {
		log.Warn("obsid skipped", "error", err)
		res.Err = fmt.Errorf("pipeline: obsid %d: %w", obsid, err)
		return res
	}

	simOpts := []nullsim.Option{nullsim.WithRealizations(r.cfg.Realizations)}
	fitOpts := []onef.Option{onef.WithSampleRate(r.cfg.SampleRate)}
	if r.cfg.Seeded {
		seed := r.cfg.Seed + int64(obsid)
		simOpts = append(simOpts, nullsim.WithSeed(seed))
		fitOpts = append(fitOpts, onef.WithSeed(seed))
	}

	ps := pschi2.New(nullsim.New(simOpts...))
	engine := scanstats.New(r.cfg.Schema, r.grid, ps, onef.New(fitOpts...),
		r.cfg.Feeds, r.cfg.Sidebands, r.cfg.Channels, scanstats.WithLogger(log))

	obs := hierarchy.ObsidMaps{Scans: make([]hierarchy.ScanMaps, len(scans))}
	res.Records = make([]*record.Record, len(scans))

	for i, s := range scans {
		if err := ctx.Err(); err != nil {
			return Result{ObsID: obsid, Err: err}
		}

		rec, maps, err := engine.Process(s)
		if err != nil {
			log.Warn("scan skipped", "scan", s.ScanID, "error", err)
		}
		res.Records[i] = rec
		obs.Scans[i] = maps
	}

	combiner := hierarchy.New(ps, r.grid, r.cfg.Feeds, r.cfg.Sidebands, r.cfg.Channels, hierarchy.WithLogger(log))

	res.Hier, err = combiner.Process(obs)
	if err != nil {
		log.Warn("hierarchical spectra skipped", "error", err)
	}

	if err := Broadcast(res.Records, res.Hier); err != nil {
		log.Warn("broadcast failed", "error", err)
		return Result{ObsID: obsid, Err: fmt.Errorf("pipeline: obsid %d: %w", obsid, err)}
	}

	log.Info("obsid processed", "scans", len(scans), "ps_o_chi2", res.Hier.Obsid)

	return res
}
