package onef

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-scanqc/internal/testutil"
)

func TestFitRecoversSyntheticParameters(t *testing.T) {
	const (
		n      = 1 << 18
		fs     = 1000.0
		sigma0 = 1.0
		fknee  = 2.0
		alpha  = -1.5
	)

	x := testutil.OneOverF(7, n, fs, sigma0, fknee, alpha)
	// The guard samples continue the periodic realization.
	tod := append(append([]float64(nil), x...), x[:DefaultGuard]...)

	p, err := New(WithSampleRate(fs), WithSeed(1)).Fit(tod)
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}

	testutil.RequireRelativeNear(t, "sigma0", p.Sigma0, sigma0, 0.05)
	testutil.RequireRelativeNear(t, "fknee", p.Fknee, fknee, 0.05)
	testutil.RequireRelativeNear(t, "alpha", p.Alpha, alpha, 0.05)

	if p.Attempt != 0 {
		t.Fatalf("Attempt=%d want=0", p.Attempt)
	}
}

func TestFitRepairsMissingSamples(t *testing.T) {
	tod := testutil.OneOverF(3, 1<<14, DefaultSampleRate, 0.5, 1, -1.5)
	for _, i := range []int{0, 1, 100, 101, 102, 5000} {
		tod[i] = math.NaN()
	}
	tod[7000] = math.Inf(1)

	p, err := New(WithSeed(11)).Fit(tod)
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}

	if math.IsNaN(p.Sigma0) || math.IsInf(p.Sigma0, 0) {
		t.Fatalf("sigma0=%v", p.Sigma0)
	}

	testutil.RequireRelativeNear(t, "sigma0", p.Sigma0, 0.5, 0.1)

	if !math.IsNaN(tod[0]) {
		t.Fatalf("input was modified")
	}
}

func TestFitShortInputIsBadData(t *testing.T) {
	p, err := New().Fit(make([]float64, DefaultGuard+2))
	if !errors.Is(err, ErrBadData) {
		t.Fatalf("expected ErrBadData, got %v", err)
	}

	testutil.RequireNaN(t, "sigma0", p.Sigma0)
	testutil.RequireNaN(t, "fknee", p.Fknee)
	testutil.RequireNaN(t, "alpha", p.Alpha)
}

func TestFitAllMissingIsBadData(t *testing.T) {
	tod := make([]float64, 200)
	for i := range tod {
		tod[i] = math.NaN()
	}

	p, err := New(WithSeed(1)).Fit(tod)
	if !errors.Is(err, ErrBadData) {
		t.Fatalf("expected ErrBadData, got %v", err)
	}

	testutil.RequireNaN(t, "sigma0", p.Sigma0)
}

func TestFitConstantIsUnfittable(t *testing.T) {
	p, err := New().Fit(testutil.Constant(3, 4096))
	if !errors.Is(err, ErrUnfittable) {
		t.Fatalf("expected ErrUnfittable, got %v", err)
	}

	for name, v := range map[string]float64{"sigma0": p.Sigma0, "fknee": p.Fknee, "alpha": p.Alpha} {
		if !math.IsInf(v, 1) {
			t.Fatalf("%s=%v want=+Inf", name, v)
		}
	}
}

func TestFixedIndexAttemptWhenTooFewBins(t *testing.T) {
	b := Binned{Freq: []float64{1}, Power: []float64{2}, NModes: []int{10}}

	p, err := fitAttempts(1, b)
	if err != nil {
		t.Fatalf("fitAttempts error: %v", err)
	}

	if p.Attempt != 1 || p.Alpha != -1 {
		t.Fatalf("Attempt=%d Alpha=%v want 1 and -1", p.Attempt, p.Alpha)
	}

	testutil.RequireRelativeNear(t, "fknee", p.Fknee, 1, 1e-3)
}

func TestRepairLeavesIsolatedGapsWhenWindowEmpty(t *testing.T) {
	f := New(WithSeed(1))
	x := []float64{math.NaN(), math.NaN(), math.NaN()}
	f.Repair(x)

	for i, v := range x {
		if !math.IsNaN(v) {
			t.Fatalf("x[%d]=%v want NaN", i, v)
		}
	}
}

func TestPeriodogramOfWhiteNoise(t *testing.T) {
	x := testutil.OneOverF(5, 1<<12, DefaultSampleRate, 2, 1e-9, -1)
	b := New().Periodogram(x)

	if len(b.Freq) == 0 || len(b.Freq) != len(b.Power) || len(b.Power) != len(b.NModes) {
		t.Fatalf("inconsistent binned periodogram: %d %d %d", len(b.Freq), len(b.Power), len(b.NModes))
	}

	for i, p := range b.Power {
		testutil.RequireRelativeNear(t, "power", p, 4, 1e-6)

		if i > 0 && !(b.Freq[i] > b.Freq[i-1]) {
			t.Fatalf("frequencies not increasing at %d", i)
		}
	}
}
