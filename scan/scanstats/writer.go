package scanstats

import (
	"errors"
	"log/slog"

	"github.com/cwbudde/algo-scanqc/scan/record"
)

// writer stores statistics into a record. Names the record's schema does
// not carry are skipped, so callers may run with a reduced schema.
type writer struct {
	rec *record.Record
	log *slog.Logger
}

func (w writer) check(name string, err error) {
	if err == nil {
		return
	}

	if errors.Is(err, record.ErrUnknownStat) {
		w.log.Debug("statistic not in schema", "stat", name)
		return
	}

	w.log.Error("statistic not stored", "stat", name, "error", err)
}

func (w writer) all(name string, v float64) {
	w.check(name, w.rec.SetAll(name, v))
}

func (w writer) feed(f int, name string, v float64) {
	w.check(name, w.rec.SetFeed(f, name, v))
}

func (w writer) one(f, b int, name string, v float64) {
	w.check(name, w.rec.Set(f, b, name, v))
}

func (w writer) perFeed(name string, v []float64) {
	for f, x := range v {
		w.feed(f, name, x)
	}
}

func (w writer) grid(name string, v [][]float64) {
	w.check(name, w.rec.SetGrid(name, v))
}
