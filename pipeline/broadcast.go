package pipeline

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-scanqc/mapping/hierarchy"
	"github.com/cwbudde/algo-scanqc/scan/record"
)

// Broadcast writes the hierarchical statistics into the scan records.
// Scan-level values go to the record of their scan, obsid-level values to
// every record. Feed values fill every sideband of the feed and scalar
// values every feed and sideband. Statistics absent from a record's schema
// are skipped.
func Broadcast(recs []*record.Record, h hierarchy.Result) error {
	if len(h.Scan) != len(recs) {
		return fmt.Errorf("%w: %d records, %d scans of spectra", record.ErrIndex, len(recs), len(h.Scan))
	}

	for s, rec := range recs {
		if rec == nil {
			continue
		}

		sets := []func() error{
			func() error { return rec.SetGrid("ps_s_sb_chi2", h.ScanSideband[s]) },
			func() error { return rec.SetGrid("ps_z_s_sb_chi2", h.ScanLine[s]) },
			func() error { return rec.SetGrid("ps_xy_s_sb_chi2", h.ScanAngular[s]) },
			func() error { return perFeed(rec, "ps_s_feed_chi2", h.ScanFeed[s]) },
			func() error { return rec.SetAll("ps_s_chi2", h.Scan[s]) },
			func() error { return rec.SetGrid("ps_o_sb_chi2", h.ObsidSideband) },
			func() error { return perFeed(rec, "ps_o_feed_chi2", h.ObsidFeed) },
			func() error { return rec.SetAll("ps_o_chi2", h.Obsid) },
		}

		for _, set := range sets {
			if err := set(); err != nil && !errors.Is(err, record.ErrUnknownStat) {
				return fmt.Errorf("scan %d: %w", rec.ScanID, err)
			}
		}
	}

	return nil
}

func perFeed(rec *record.Record, name string, v []float64) error {
	for f, x := range v {
		if err := rec.SetFeed(f, name, x); err != nil {
			return err
		}
	}

	return nil
}
