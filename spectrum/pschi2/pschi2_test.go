package pschi2

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-scanqc/internal/testutil"
	"github.com/cwbudde/algo-scanqc/mapping/cube"
	"github.com/cwbudde/algo-scanqc/spectrum/chisq"
	"github.com/cwbudde/algo-scanqc/spectrum/nullsim"
	"github.com/cwbudde/algo-scanqc/spectrum/powerspec"
	"github.com/cwbudde/algo-scanqc/spectrum/transfer"
)

const pixDeg = 8.0 / 60

func uniformRMS(nx, ny, nz int, v float64) *cube.Cube {
	rms := cube.New(nx, ny, nz)
	for i := range rms.Data {
		rms.Data[i] = v
	}

	return rms
}

func noiseMap(seed int64, rms *cube.Cube, scale float64) *cube.Cube {
	m := cube.NewLike(rms)
	g := testutil.DeterministicGaussian(seed, 1, m.Len())
	for i := range m.Data {
		m.Data[i] = scale * g[i] * rms.Data[i]
	}

	return m
}

func TestNullMapGivesSmallChi2(t *testing.T) {
	rms := uniformRMS(16, 16, 64, 0.5)

	var sumAbs float64
	for seed := int64(1); seed <= 5; seed++ {
		e := New(nullsim.New(nullsim.WithSeed(100 + seed)))

		got, err := e.Chi2(noiseMap(seed, rms, 1), rms, pixDeg, transfer.Identity{})
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}

		if math.IsNaN(got) || math.Abs(got) > 6 {
			t.Fatalf("seed %d: chi2 = %v, want near 0", seed, got)
		}
		sumAbs += math.Abs(got)
	}

	if mean := sumAbs / 5; mean > 2.5 {
		t.Fatalf("mean |chi2| = %v, want < 2.5", mean)
	}
}

// An all-zero map has no positive observed bins, so the statistic is
// missing rather than near zero.
func TestZeroMapIsMissing(t *testing.T) {
	rms := uniformRMS(16, 16, 64, 0.5)
	e := New(nullsim.New(nullsim.WithSeed(3), nullsim.WithRealizations(10)))

	got, err := e.Chi2(cube.NewLike(rms), rms, pixDeg, transfer.Identity{})
	if !errors.Is(err, chisq.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	testutil.RequireNaN(t, "chi2", got)

	got, err = e.Chi2(cube.NewLike(rms), rms, pixDeg, transfer.DefaultAnalytic())
	if !errors.Is(err, chisq.ErrInsufficientData) {
		t.Fatalf("analytic: expected ErrInsufficientData, got %v", err)
	}
	testutil.RequireNaN(t, "chi2 analytic", got)
}

func TestExcessPowerGivesLargePositiveChi2(t *testing.T) {
	rms := uniformRMS(16, 16, 64, 0.5)
	e := New(nullsim.New(nullsim.WithSeed(9)))

	for _, tf := range []transfer.Function{transfer.Identity{}, transfer.DefaultAnalytic(), transfer.Feed()} {
		got, err := e.Chi2(noiseMap(4, rms, 3), rms, pixDeg, tf)
		if err != nil {
			t.Fatalf("%T: %v", tf, err)
		}

		if !(got > 10) {
			t.Fatalf("%T: chi2 = %v, want large positive", tf, got)
		}
	}
}

func TestSpectrum3DDetail(t *testing.T) {
	rms := uniformRMS(16, 16, 64, 1)
	e := New(nullsim.New(nullsim.WithSeed(2), nullsim.WithRealizations(20)))

	r, err := e.Spectrum3D(noiseMap(5, rms, 1), rms, pixDeg, transfer.DefaultAnalytic())
	if err != nil {
		t.Fatalf("Spectrum3D error: %v", err)
	}

	if len(r.K) != powerspec.NumEdges-1 || len(r.Factors) != len(r.K) {
		t.Fatalf("unexpected result shape %d/%d", len(r.K), len(r.Factors))
	}

	for i := range r.K {
		if !(r.Pk[i] > 0) || !(r.Std[i] > 0) || !(r.Mean[i] > 0) {
			t.Fatalf("bin %d: pk %v mean %v std %v", i, r.Pk[i], r.Mean[i], r.Std[i])
		}
	}
}

func TestLineAngularOnLocalGrid(t *testing.T) {
	rms := uniformRMS(16, 16, 64, 1)
	e := New(nullsim.New(nullsim.WithSeed(11)))

	line, angular, err := e.LineAngular(noiseMap(6, rms, 1), rms, pixDeg)
	if err != nil {
		t.Fatalf("LineAngular error: %v", err)
	}

	if math.IsNaN(line) || math.IsNaN(angular) {
		t.Fatalf("line %v angular %v", line, angular)
	}

	line, angular, err = e.LineAngular(noiseMap(6, rms, 3), rms, pixDeg)
	if err != nil {
		t.Fatalf("LineAngular error: %v", err)
	}

	if !(line > 10) || !(angular > 10) {
		t.Fatalf("scaled map: line %v angular %v, want large positive", line, angular)
	}
}

func TestMissingInputs(t *testing.T) {
	e := New(nullsim.New(nullsim.WithSeed(1), nullsim.WithRealizations(5)))
	rms := cube.New(8, 8, 16)

	got, err := e.Chi2(cube.NewLike(rms), rms, pixDeg, transfer.Identity{})
	if !errors.Is(err, chisq.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	testutil.RequireNaN(t, "chi2", got)

	line, angular, err := e.LineAngular(cube.NewLike(rms), rms, pixDeg)
	if !errors.Is(err, chisq.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	testutil.RequireNaN(t, "line", line)
	testutil.RequireNaN(t, "angular", angular)

	if _, err := e.Chi2(cube.New(8, 8, 8), rms, pixDeg, transfer.Identity{}); !errors.Is(err, cube.ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
}

func TestFeedTableNeedsStandardBins(t *testing.T) {
	rms := uniformRMS(8, 8, 32, 1)
	e := New(nullsim.New(nullsim.WithSeed(1), nullsim.WithRealizations(5)),
		WithEdges3D([]float64{0.02, 0.05, 0.1, 0.5}))

	if _, err := e.Chi2(noiseMap(1, rms, 1), rms, pixDeg, transfer.Feed()); !errors.Is(err, transfer.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}
