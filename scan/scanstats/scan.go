package scanstats

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-scanqc/scan/spikes"
)

// ErrMalformedScan is returned when the arrays of a scan disagree in shape.
var ErrMalformedScan = errors.New("scanstats: malformed scan")

// Housekeeping holds the weather-station series recorded during a scan.
// Each statistic is the mean of its series; empty series are missing.
type Housekeeping struct {
	AirTemp   []float64
	DewTemp   []float64
	Humidity  []float64
	Pressure  []float64
	Rain      []float64
	WindDir   []float64
	WindSpeed []float64
}

// Scan is the level-2 data of one scan. Per-feed arrays are indexed by
// feed slot, per-sideband arrays by [feed][sideband] and per-channel arrays
// by [feed][sideband][channel]. Optional inputs may be nil, which leaves the
// statistics derived from them missing.
type Scan struct {
	ObsID   int
	ScanID  int
	Feature int

	// MJD holds the sample times.
	MJD []float64
	// TOD is the calibrated intensity [feed][sideband][channel][sample].
	TOD [][][][]float64
	// RA, Dec, Az and El are the pointing per [feed][sample] in degrees.
	RA  [][]float64
	Dec [][]float64
	Az  [][]float64
	El  [][]float64

	Mask   [][][]float64
	Sigma0 [][][]float64

	// Optional inputs.
	Tsys       [][][]float64
	Chi2       [][][]float64
	AzAmp      [][][]float64
	ElAmp      [][][]float64
	AcceptRate [][]float64
	// SBMean is the sideband-averaged timestream [feed][sideband][sample].
	SBMean [][][]float64
	// PolyCoeff holds the two frequency-filter polynomial coefficient
	// timestreams [feed][sideband][order][sample].
	PolyCoeff    [][][][]float64
	Spikes       spikes.List
	Housekeeping Housekeeping
	// Weather is the forecast quality of the scan; NaN when unknown.
	Weather float64
}

// Samples returns the number of samples per timestream.
func (s *Scan) Samples() int { return len(s.MJD) }

// Accepted reports whether the level-2 pipeline kept any data of the
// sideband.
func (s *Scan) Accepted(feed, sb int) bool {
	return s.AcceptRate != nil && s.AcceptRate[feed][sb] > 0
}

// validate checks the shapes the statistics rely on.
func (s *Scan) validate(feeds, sidebands, channels int) error {
	n := s.Samples()
	if n < 2 {
		return fmt.Errorf("%w: %d samples", ErrMalformedScan, n)
	}

	if feeds < 1 || sidebands < 1 || channels < 1 {
		return fmt.Errorf("%w: layout %dx%dx%d", ErrMalformedScan, feeds, sidebands, channels)
	}

	if len(s.TOD) != feeds {
		return fmt.Errorf("%w: %d feeds, want %d", ErrMalformedScan, len(s.TOD), feeds)
	}

	for name, p := range map[string][][]float64{"ra": s.RA, "dec": s.Dec, "az": s.Az, "el": s.El} {
		if err := checkFeedSeries(name, p, feeds, n); err != nil {
			return err
		}
	}

	for f := range feeds {
		if len(s.TOD[f]) != sidebands {
			return fmt.Errorf("%w: feed %d has %d sidebands, want %d", ErrMalformedScan, f, len(s.TOD[f]), sidebands)
		}

		for b := range sidebands {
			if len(s.TOD[f][b]) != channels {
				return fmt.Errorf("%w: feed %d sideband %d has %d channels, want %d",
					ErrMalformedScan, f, b, len(s.TOD[f][b]), channels)
			}

			for ch, x := range s.TOD[f][b] {
				if len(x) != n {
					return fmt.Errorf("%w: feed %d sideband %d channel %d has %d samples, want %d",
						ErrMalformedScan, f, b, ch, len(x), n)
				}
			}
		}
	}

	for name, c := range map[string][][][]float64{"mask": s.Mask, "sigma0": s.Sigma0} {
		if err := checkChannels(name, c, feeds, sidebands, channels, true); err != nil {
			return err
		}
	}

	for name, c := range map[string][][][]float64{"tsys": s.Tsys, "chi2": s.Chi2, "az_amp": s.AzAmp, "el_amp": s.ElAmp} {
		if err := checkChannels(name, c, feeds, sidebands, channels, false); err != nil {
			return err
		}
	}

	if s.AcceptRate != nil {
		if len(s.AcceptRate) != feeds {
			return fmt.Errorf("%w: acceptrate has %d feeds", ErrMalformedScan, len(s.AcceptRate))
		}
		for f, a := range s.AcceptRate {
			if len(a) != sidebands {
				return fmt.Errorf("%w: acceptrate feed %d has %d sidebands", ErrMalformedScan, f, len(a))
			}
		}
	}

	if s.SBMean != nil {
		if len(s.SBMean) != feeds {
			return fmt.Errorf("%w: sb_mean has %d feeds", ErrMalformedScan, len(s.SBMean))
		}
		for f := range s.SBMean {
			if len(s.SBMean[f]) != sidebands {
				return fmt.Errorf("%w: sb_mean feed %d has %d sidebands", ErrMalformedScan, f, len(s.SBMean[f]))
			}
		}
	}

	if s.PolyCoeff != nil {
		if len(s.PolyCoeff) != feeds {
			return fmt.Errorf("%w: poly coefficients have %d feeds", ErrMalformedScan, len(s.PolyCoeff))
		}
		for f := range s.PolyCoeff {
			if len(s.PolyCoeff[f]) != sidebands {
				return fmt.Errorf("%w: poly coefficients feed %d have %d sidebands", ErrMalformedScan, f, len(s.PolyCoeff[f]))
			}
		}
	}

	return nil
}

func checkFeedSeries(name string, p [][]float64, feeds, n int) error {
	if len(p) != feeds {
		return fmt.Errorf("%w: %s has %d feeds, want %d", ErrMalformedScan, name, len(p), feeds)
	}

	for f, x := range p {
		if len(x) != n {
			return fmt.Errorf("%w: %s feed %d has %d samples, want %d", ErrMalformedScan, name, f, len(x), n)
		}
	}

	return nil
}

func checkChannels(name string, c [][][]float64, feeds, sidebands, channels int, required bool) error {
	if c == nil && !required {
		return nil
	}

	if len(c) != feeds {
		return fmt.Errorf("%w: %s has %d feeds, want %d", ErrMalformedScan, name, len(c), feeds)
	}

	for f := range c {
		if len(c[f]) != sidebands {
			return fmt.Errorf("%w: %s feed %d has %d sidebands, want %d", ErrMalformedScan, name, f, len(c[f]), sidebands)
		}
		for b := range c[f] {
			if len(c[f][b]) != channels {
				return fmt.Errorf("%w: %s feed %d sideband %d has %d channels, want %d",
					ErrMalformedScan, name, f, b, len(c[f][b]), channels)
			}
		}
	}

	return nil
}
