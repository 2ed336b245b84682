// Package record holds the fixed-shape statistics record of one scan: one
// value per feed, sideband and named statistic.
package record

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownStat is returned for a name missing from the schema.
	ErrUnknownStat = errors.New("record: unknown statistic")
	// ErrDuplicateStat is returned when a schema lists a name twice.
	ErrDuplicateStat = errors.New("record: duplicate statistic")
	// ErrIndex is returned for a feed or sideband outside the record.
	ErrIndex = errors.New("record: index out of range")
)

// Names of the statistics produced by the scan engine and the hierarchical
// power-spectrum stage, in output order.
var DefaultNames = []string{
	"obsid", "scanid", "mjd", "night", "sidereal", "scan_length",
	"az", "el", "chi2", "acceptrate", "az_chi2", "max_az_chi2", "med_az_chi2",
	"fbit", "az_amp", "el_amp", "n_spikes", "n_jumps", "n_anomalies",
	"tsys", "weather", "kurtosis", "skewness", "ps_chi2", "saddlebag",
	"sigma_poly0", "fknee_poly0", "alpha_poly0",
	"sigma_poly1", "fknee_poly1", "alpha_poly1",
	"power_mean", "sigma_mean", "fknee_mean", "alpha_mean",
	"airtemp", "dewtemp", "humidity", "pressure", "rain", "winddir", "windspeed",
	"moon_dist", "moon_angle", "moon_cent_sl", "moon_outer_sl",
	"sun_dist", "sun_angle", "sun_cent_sl", "sun_outer_sl", "sun_el",
	"ps_s_sb_chi2", "ps_s_feed_chi2", "ps_s_chi2",
	"ps_o_sb_chi2", "ps_o_feed_chi2", "ps_o_chi2",
	"ps_z_s_sb_chi2", "ps_xy_s_sb_chi2",
}

// Schema maps statistic names to record columns. It is immutable once
// built and may be shared between goroutines.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema builds a schema from names in column order.
func NewSchema(names ...string) (*Schema, error) {
	s := &Schema{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}

	for i, n := range names {
		if _, dup := s.index[n]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateStat, n)
		}
		s.index[n] = i
	}

	return s, nil
}

// DefaultSchema returns the schema of DefaultNames.
func DefaultSchema() *Schema {
	s, err := NewSchema(DefaultNames...)
	if err != nil {
		panic(err)
	}

	return s
}

// Len returns the number of statistics.
func (s *Schema) Len() int { return len(s.names) }

// Names returns the statistic names in column order.
func (s *Schema) Names() []string { return append([]string(nil), s.names...) }

// Index returns the column of name.
func (s *Schema) Index(name string) (int, error) {
	i, ok := s.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStat, name)
	}

	return i, nil
}

// Record is the statistics of one scan. Values start as NaN, the missing
// value marker.
type Record struct {
	Schema    *Schema
	ObsID     int
	ScanID    int
	Feeds     int
	Sidebands int
	// Data is laid out as [feed][sideband][stat].
	Data []float64
}

// New allocates a record filled with NaN.
func New(schema *Schema, obsID, scanID, feeds, sidebands int) *Record {
	r := &Record{
		Schema:    schema,
		ObsID:     obsID,
		ScanID:    scanID,
		Feeds:     feeds,
		Sidebands: sidebands,
		Data:      make([]float64, feeds*sidebands*schema.Len()),
	}
	for i := range r.Data {
		r.Data[i] = math.NaN()
	}

	return r
}

func (r *Record) offset(feed, sb, stat int) int {
	return (feed*r.Sidebands+sb)*r.Schema.Len() + stat
}

func (r *Record) checkFeed(feed int) error {
	if feed < 0 || feed >= r.Feeds {
		return fmt.Errorf("%w: feed %d of %d", ErrIndex, feed, r.Feeds)
	}

	return nil
}

func (r *Record) checkSideband(sb int) error {
	if sb < 0 || sb >= r.Sidebands {
		return fmt.Errorf("%w: sideband %d of %d", ErrIndex, sb, r.Sidebands)
	}

	return nil
}

// Set stores v for one feed and sideband.
func (r *Record) Set(feed, sb int, name string, v float64) error {
	stat, err := r.Schema.Index(name)
	if err != nil {
		return err
	}

	if err := r.checkFeed(feed); err != nil {
		return err
	}

	if err := r.checkSideband(sb); err != nil {
		return err
	}

	r.Data[r.offset(feed, sb, stat)] = v

	return nil
}

// SetFeed stores v for every sideband of one feed.
func (r *Record) SetFeed(feed int, name string, v float64) error {
	stat, err := r.Schema.Index(name)
	if err != nil {
		return err
	}

	if err := r.checkFeed(feed); err != nil {
		return err
	}

	for b := 0; b < r.Sidebands; b++ {
		r.Data[r.offset(feed, b, stat)] = v
	}

	return nil
}

// SetAll stores v for every feed and sideband.
func (r *Record) SetAll(name string, v float64) error {
	stat, err := r.Schema.Index(name)
	if err != nil {
		return err
	}

	for f := 0; f < r.Feeds; f++ {
		for b := 0; b < r.Sidebands; b++ {
			r.Data[r.offset(f, b, stat)] = v
		}
	}

	return nil
}

// SetGrid stores v[feed][sideband]. Missing entries of a ragged v are left
// untouched.
func (r *Record) SetGrid(name string, v [][]float64) error {
	stat, err := r.Schema.Index(name)
	if err != nil {
		return err
	}

	if len(v) > r.Feeds {
		return fmt.Errorf("%w: %d feeds of %d", ErrIndex, len(v), r.Feeds)
	}

	for f := range v {
		if len(v[f]) > r.Sidebands {
			return fmt.Errorf("%w: %d sidebands of %d", ErrIndex, len(v[f]), r.Sidebands)
		}
		for b, x := range v[f] {
			r.Data[r.offset(f, b, stat)] = x
		}
	}

	return nil
}

// Get returns the value for one feed and sideband.
func (r *Record) Get(feed, sb int, name string) (float64, error) {
	stat, err := r.Schema.Index(name)
	if err != nil {
		return math.NaN(), err
	}

	if err := r.checkFeed(feed); err != nil {
		return math.NaN(), err
	}

	if err := r.checkSideband(sb); err != nil {
		return math.NaN(), err
	}

	return r.Data[r.offset(feed, sb, stat)], nil
}

// Column returns the values of one statistic as [feed][sideband].
func (r *Record) Column(name string) ([][]float64, error) {
	stat, err := r.Schema.Index(name)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, r.Feeds)
	for f := range out {
		out[f] = make([]float64, r.Sidebands)
		for b := range out[f] {
			out[f][b] = r.Data[r.offset(f, b, stat)]
		}
	}

	return out, nil
}
