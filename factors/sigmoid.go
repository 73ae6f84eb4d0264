// sigmoid.go implements the update rules of the sigmoid factor
// switch ~ Sigmoid(xi, zeta): a logistic link between a Gaussian latent xi
// and a binary outcome, made tractable by the Jaakkola–Jordan quadratic
// bound with auxiliary tightening parameter zeta.

package factors

import (
	"math"

	"github.com/auralab/gosem/util"
)

// probClamp keeps categorical outputs away from degenerate 0/1 masses.
const probClamp = 1e-12

// Lambda is the bound curvature lambda(zeta) = (logistic(zeta)-1/2)/(2 zeta),
// with the zeta->0 limit 1/8 substituted to avoid 0/0.
func Lambda(zeta float64) float64 {
	if zeta == 0 {
		return 0.125
	}
	return (util.Logistic(zeta) - 0.5) / (2 * zeta)
}

// OptimalZeta tightens the variational bound given the current Gaussian
// belief over xi: zeta^2 = mean^2 + variance, zeta = sqrt(zeta^2).
//
// Non-finite inputs are an internal invariant violation (NonFiniteError);
// a negative variance or a zero zeta^2 (point mass at the origin) is a
// legitimate numerical degeneracy (DegeneracyError). Both are fatal to the
// current block.
func OptimalZeta(mean, variance float64) (float64, error) {
	if !isFinite(mean) || !isFinite(variance) {
		return 0, &NonFiniteError{
			Op:     "OptimalZeta",
			Values: map[string]float64{"mean": mean, "variance": variance},
		}
	}
	if variance < 0 {
		return 0, &DegeneracyError{
			Op:     "OptimalZeta",
			Detail: "negative variance",
			Values: map[string]float64{"mean": mean, "variance": variance},
		}
	}
	zetaSq := mean*mean + variance
	if zetaSq <= 0 {
		return 0, &DegeneracyError{
			Op:     "OptimalZeta",
			Detail: "non-positive zeta^2",
			Values: map[string]float64{"mean": mean, "variance": variance, "zeta_sq": zetaSq},
		}
	}
	return math.Sqrt(zetaSq), nil
}

// MessageToInput is the rule toward the continuous latent xi: given the
// discrete side's probability of the 1-outcome and the current zeta, the
// bound yields a Gaussian message with natural parameters
// (pSwitch - 1/2, 2*lambda(zeta)).
func MessageToInput(pSwitch, zeta float64) Gaussian {
	return GaussianFromNatural(pSwitch-0.5, 2*Lambda(zeta))
}

// MessageToOutput is the rule toward the discrete outcome: the logistic of
// the mean of the Gaussian belief over xi, clamped away from 0 and 1 and
// renormalized.
func MessageToOutput(mean float64) Bernoulli {
	p := util.Clamp(util.Logistic(mean), probClamp, 1-probClamp)
	q := util.Clamp(1-p, probClamp, 1-probClamp)
	z := p + q
	return Bernoulli{P1: p / z, P0: q / z}
}

// AverageEnergy is the sigmoid factor's contribution to the variational
// free energy:
//
//	U = -(mIn*mOut - softplus(-zeta) - (mIn+zeta)/2 - lambda*(mIn^2+vIn-zeta^2))
//
// where mIn, vIn summarize the belief over xi and mOut is the mean of the
// binary outcome. A non-finite term anywhere means the upstream state is
// already corrupt, so every intermediate is checked and reported.
func AverageEnergy(mIn, vIn, mOut, zeta float64) (float64, error) {
	lam := Lambda(zeta)
	sp := util.Softplus(-zeta)
	quad := mIn*mIn + vIn - zeta*zeta
	u := -(mIn*mOut - sp - 0.5*(mIn+zeta) - lam*quad)
	for name, v := range map[string]float64{
		"lambda": lam, "softplus": sp, "quad": quad, "energy": u,
	} {
		if !isFinite(v) {
			return 0, &NonFiniteError{
				Op: "AverageEnergy",
				Values: map[string]float64{
					"m_in": mIn, "v_in": vIn, "m_out": mOut, "zeta": zeta,
					name: v,
				},
			}
		}
	}
	return u, nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
