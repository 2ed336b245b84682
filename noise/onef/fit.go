package onef

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// attempt is one parameterization of the least-squares fit. The optimizer
// works on log(fknee) so the knee stays positive.
type attempt struct {
	name   string
	start  []float64
	params func(x []float64) (alpha, fknee float64)
}

// attempts are tried in order until one succeeds.
var attempts = []attempt{
	{
		name:  "free index",
		start: []float64{-2, math.Log(5)},
		params: func(x []float64) (float64, float64) {
			return x[0], math.Exp(x[1])
		},
	},
	{
		name:  "fixed index",
		start: []float64{math.Log(10)},
		params: func(x []float64) (float64, float64) {
			return -1, math.Exp(x[0])
		},
	},
}

func fitAttempts(sigma0 float64, b Binned) (Params, error) {
	var errs []error
	for i, a := range attempts {
		p, err := a.run(sigma0, b)
		if err == nil {
			p.Attempt = i
			return p, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
	}

	return Unfittable(), fmt.Errorf("%w: %v", ErrUnfittable, errs)
}

// run minimizes Σ ((model_i - P_i)/σ_i)² with σ_i = P_i/sqrt(modes_i).
func (a attempt) run(sigma0 float64, b Binned) (Params, error) {
	if len(b.Power) < len(a.start) {
		return Params{}, fmt.Errorf("%d bins for %d parameters", len(b.Power), len(a.start))
	}

	if !(sigma0 > 0) || math.IsInf(sigma0, 0) {
		return Params{}, fmt.Errorf("white-noise level %v", sigma0)
	}

	weights := make([]float64, len(b.Power))
	for i, p := range b.Power {
		if !(p > 0) || math.IsInf(p, 0) {
			return Params{}, fmt.Errorf("bin %d has power %v", i, p)
		}
		weights[i] = float64(b.NModes[i]) / (p * p)
	}

	s2 := sigma0 * sigma0
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			alpha, fknee := a.params(x)
			var chi2 float64
			for i, f := range b.Freq {
				r := s2*(1+math.Pow(f/fknee, alpha)) - b.Power[i]
				chi2 += r * r * weights[i]
			}
			if math.IsNaN(chi2) {
				return math.Inf(1)
			}
			return chi2
		},
	}

	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 200,
		},
		MajorIterations: 10000,
	}

	res, err := optimize.Minimize(problem, append([]float64(nil), a.start...), settings, &optimize.NelderMead{})
	if err != nil {
		return Params{}, err
	}

	if err := res.Status.Err(); err != nil {
		return Params{}, err
	}

	alpha, fknee := a.params(res.X)
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) || !(fknee > 0) || math.IsInf(fknee, 0) || math.IsInf(res.F, 0) {
		return Params{}, fmt.Errorf("non-finite solution alpha=%v fknee=%v", alpha, fknee)
	}

	return Params{Sigma0: sigma0, Fknee: fknee, Alpha: alpha}, nil
}
