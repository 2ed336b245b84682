package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/dsp/fourier"
)

func TestDeterministicNoise(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
		if a[i] < -1 || a[i] >= 1 {
			t.Fatalf("a[%d] = %v out of range", i, a[i])
		}
	}
}

func TestDeterministicGaussianMoments(t *testing.T) {
	x := DeterministicGaussian(7, 2.0, 20000)

	var sum, sq float64
	for _, v := range x {
		sum += v
		sq += v * v
	}
	mean := sum / float64(len(x))
	std := math.Sqrt(sq/float64(len(x)) - mean*mean)

	if math.Abs(mean) > 0.05 {
		t.Fatalf("mean = %v, want ~0", mean)
	}
	if math.Abs(std-2) > 0.05 {
		t.Fatalf("std = %v, want ~2", std)
	}
}

func TestDeterministicGaussianDifferentSeeds(t *testing.T) {
	a := DeterministicGaussian(1, 1.0, 16)
	b := DeterministicGaussian(2, 1.0, 16)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical noise")
	}
}

func TestOneOverFPeriodogramMatchesModel(t *testing.T) {
	const (
		n  = 1024
		fs = 50.0
	)

	x := OneOverF(3, n, fs, 1.0, 2.0, -1.5)
	coeff := fourier.NewFFT(n).Coefficients(nil, x)

	for _, k := range []int{1, 10, 100, 511} {
		f := float64(k) * fs / n
		want := 1 + math.Pow(f/2.0, -1.5)
		re, im := real(coeff[k]), imag(coeff[k])
		got := (re*re + im*im) / n
		if math.Abs(got-want) > 1e-9*want {
			t.Fatalf("bin %d: periodogram %v, want %v", k, got, want)
		}
	}
}

func TestOnes(t *testing.T) {
	o := Ones(3)
	if len(o) != 3 {
		t.Fatalf("len = %d, want 3", len(o))
	}
	for i, v := range o {
		if v != 1 {
			t.Fatalf("Ones[%d] = %v, want 1", i, v)
		}
	}
}
