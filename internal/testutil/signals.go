package testutil

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DeterministicNoise generates uniform noise in [-amplitude, amplitude) with a
// fixed seed.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// DeterministicGaussian generates zero-mean Gaussian noise of standard
// deviation sigma with a fixed seed.
func DeterministicGaussian(seed int64, sigma float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = rng.NormFloat64() * sigma
	}
	return out
}

// OneOverF synthesizes a periodic timestream of n samples at sampleRate whose
// periodogram |rFFT|²/n equals sigma0²·(1+(f/fknee)^alpha) at every non-zero
// frequency. Amplitudes are exact; only the phases are random, so fits
// against the model are not limited by periodogram scatter.
func OneOverF(seed int64, n int, sampleRate, sigma0, fknee, alpha float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	fft := fourier.NewFFT(n)
	coeff := make([]complex128, n/2+1)

	for k := 1; k < len(coeff); k++ {
		f := float64(k) * sampleRate / float64(n)
		p := sigma0 * sigma0 * (1 + math.Pow(f/fknee, alpha))
		amp := math.Sqrt(float64(n) * p)

		if n%2 == 0 && k == n/2 {
			if rng.Intn(2) == 0 {
				amp = -amp
			}
			coeff[k] = complex(amp, 0)
			continue
		}

		phase := 2 * math.Pi * rng.Float64()
		coeff[k] = complex(amp*math.Cos(phase), amp*math.Sin(phase))
	}

	out := fft.Sequence(nil, coeff)
	scale := 1 / float64(n)
	for i := range out {
		out[i] *= scale
	}
	return out
}

// Constant returns a slice of length n filled with value.
func Constant(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

// Ones returns a slice of length n filled with 1.0.
func Ones(n int) []float64 {
	return Constant(1.0, n)
}
