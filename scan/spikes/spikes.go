// Package spikes models the transient events flagged by the level-2
// pipeline: spikes, jumps and anomalies. Each event carries its amplitude in
// every feed and sideband; the statistics only count how many events exceed
// a threshold per feed and sideband.
package spikes

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DefaultThreshold is the amplitude above which an event counts: five times
// the typical 0.0015 white-noise level of a sideband mean.
const DefaultThreshold = 0.0015 * 5

// ErrTableShape is returned when an event table is ragged.
var ErrTableShape = errors.New("spikes: malformed event table")

// Kind tags an event.
type Kind int

const (
	Spike Kind = iota
	Jump
	Anomaly

	numKinds
)

func (k Kind) String() string {
	switch k {
	case Spike:
		return "spike"
	case Jump:
		return "jump"
	case Anomaly:
		return "anomaly"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one detected transient.
type Event struct {
	Kind Kind
	// Amplitude is the value with the largest magnitude over all feeds and
	// sidebands.
	Amplitude float64
	Feed      int
	Sideband  int
	Sample    int
	MJD       float64
	// Sidebands holds the amplitude per [feed][sideband].
	Sidebands [][]float64
}

// List is a collection of events of any kind.
type List []Event

// Sorted groups the events by kind, each group ordered by descending
// absolute amplitude. Events of unknown kind are dropped.
func (l List) Sorted() [numKinds][]Event {
	var out [numKinds][]Event
	for _, e := range l {
		if e.Kind < 0 || e.Kind >= numKinds {
			continue
		}
		out[e.Kind] = append(out[e.Kind], e)
	}

	for k := range out {
		sort.SliceStable(out[k], func(i, j int) bool {
			return math.Abs(out[k][i].Amplitude) > math.Abs(out[k][j].Amplitude)
		})
	}

	return out
}

// CountAbove returns, per [feed][sideband], how many events have an
// amplitude strictly above threshold in that feed and sideband.
func CountAbove(events []Event, threshold float64, nFeeds, nSB int) [][]int {
	out := make([][]int, nFeeds)
	for f := range out {
		out[f] = make([]int, nSB)
	}

	for _, e := range events {
		for f := 0; f < nFeeds && f < len(e.Sidebands); f++ {
			for b := 0; b < nSB && b < len(e.Sidebands[f]); b++ {
				if e.Sidebands[f][b] > threshold {
					out[f][b]++
				}
			}
		}
	}

	return out
}

// Table is the fixed-slot event table written by the level-2 pipeline:
// Amp[kind][slot][feed][sideband] and the one-based sample index of the
// event in each feed and sideband, Index[kind][slot][feed][sideband]. The
// slots of a kind end at the first slot whose amplitudes are all zero.
type Table struct {
	Amp   [][][][]float64
	Index [][][][]int
}

// Events converts the table into a list. mjd maps sample indices to times;
// indices outside it leave MJD as NaN.
func (t Table) Events(mjd []float64) (List, error) {
	if len(t.Amp) != len(t.Index) || len(t.Amp) > int(numKinds) {
		return nil, fmt.Errorf("%w: %d amplitude and %d index kinds", ErrTableShape, len(t.Amp), len(t.Index))
	}

	var out List
	for k := range t.Amp {
		if len(t.Amp[k]) != len(t.Index[k]) {
			return nil, fmt.Errorf("%w: kind %d has %d amplitude and %d index slots",
				ErrTableShape, k, len(t.Amp[k]), len(t.Index[k]))
		}

		for s, sbs := range t.Amp[k] {
			feed, sb, amp, ok := argmaxAbs(sbs)
			if !ok {
				break
			}

			if feed >= len(t.Index[k][s]) || sb >= len(t.Index[k][s][feed]) {
				return nil, fmt.Errorf("%w: kind %d slot %d has no index for feed %d sideband %d",
					ErrTableShape, k, s, feed, sb)
			}

			sample := t.Index[k][s][feed][sb] - 1
			e := Event{
				Kind:      Kind(k),
				Amplitude: amp,
				Feed:      feed,
				Sideband:  sb,
				Sample:    sample,
				MJD:       math.NaN(),
				Sidebands: sbs,
			}
			if sample >= 0 && sample < len(mjd) {
				e.MJD = mjd[sample]
			}
			out = append(out, e)
		}
	}

	return out, nil
}

// argmaxAbs returns the position and value of the largest-magnitude entry.
// ok is false when every entry is zero.
func argmaxAbs(v [][]float64) (feed, sb int, amp float64, ok bool) {
	best := -1.0
	for f := range v {
		for b, x := range v[f] {
			if x != 0 {
				ok = true
			}
			if a := math.Abs(x); a > best {
				best, feed, sb, amp = a, f, b, x
			}
		}
	}

	return feed, sb, amp, ok
}
