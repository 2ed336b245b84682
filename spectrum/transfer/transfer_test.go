package transfer

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-scanqc/internal/numeric"
)

func TestAnalyticResponse(t *testing.T) {
	f, err := DefaultAnalytic().Factors([]float64{0.055, 0.5, 0.01})
	if err != nil {
		t.Fatalf("Factors error: %v", err)
	}

	if !numeric.NearlyEqual(f[0], math.Exp(-1), 1e-12) {
		t.Fatalf("f(k0) = %v, want 1/e", f[0])
	}

	if f[1] < 0.99 || f[1] > 1 {
		t.Fatalf("f(0.5) = %v, want ~1", f[1])
	}

	if f[2] > 1e-20 {
		t.Fatalf("f(0.01) = %v, want ~0", f[2])
	}
}

func TestFeedTable(t *testing.T) {
	k := make([]float64, len(FeedTable))
	f, err := Feed().Factors(k)
	if err != nil {
		t.Fatalf("Factors error: %v", err)
	}

	if f[0] != 7.08265320e-07 || f[8] != 8.03513664e-01 {
		t.Fatalf("unexpected table %v", f)
	}

	f[0] = 1
	if FeedTable[0] != 7.08265320e-07 {
		t.Fatal("Factors exposed the shared table")
	}

	if _, err := Feed().Factors(make([]float64, 3)); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestApplyLeavesMeanAlone(t *testing.T) {
	pk := []float64{2, 4}
	std := []float64{1, 1}
	f, _ := Table{0.5, 2}.Factors(pk)

	if err := Apply(pk, std, f); err != nil {
		t.Fatalf("Apply error: %v", err)
	}

	if pk[0] != 4 || pk[1] != 2 || std[0] != 2 || std[1] != 0.5 {
		t.Fatalf("pk=%v std=%v", pk, std)
	}

	if err := Apply(pk, std, []float64{1, 0}); !errors.Is(err, ErrInvalidFactor) {
		t.Fatalf("expected ErrInvalidFactor, got %v", err)
	}

	if pk[0] != 4 {
		t.Fatal("Apply modified input on error")
	}
}

func TestIdentity(t *testing.T) {
	f, _ := Identity{}.Factors([]float64{1, 2, 3})
	for i, v := range f {
		if v != 1 {
			t.Fatalf("f[%d] = %v", i, v)
		}
	}
}
