// numeric.go implements the scalar conversions shared by the filter bank
// and the SEM backend: time-constant/forgetting-factor mappings, dB/linear
// conversions, overflow-safe logistic helpers, and Gamma hyperparameter
// moment matching.

package util

import "math"

// Tau2FF converts a 90% rise time tau90 into the forgetting factor of a
// first-order leaky integrator running at rate fs: the update weight w such
// that (1-w)^(tau90*fs) = 0.1. The result lies in (0,1) and decreases
// monotonically in tau90 (slower sources update less per step).
//
// tau90 and fs must use reciprocal units (ms and 1/ms, or s and Hz).
func Tau2FF(tau90, fs float64) float64 {
	return 1 - math.Pow(0.1, 1/(tau90*fs))
}

// FF2ProcessVar converts a forgetting factor into the process variance of
// the transition driving the leaky integrator: lambda^2 / (1 - lambda).
func FF2ProcessVar(ff float64) float64 {
	return ff * ff / (1 - ff)
}

// FF2ProcessPrecision is the reciprocal of FF2ProcessVar.
func FF2ProcessPrecision(ff float64) float64 {
	return (1 - ff) / (ff * ff)
}

// DB2Lin converts an amplitude quantity from dB to linear: 10^(db/20).
func DB2Lin(db float64) float64 {
	return math.Pow(10, db/20)
}

// Lin2DB converts a linear amplitude quantity to dB: 20*log10(lin).
func Lin2DB(lin float64) float64 {
	return 20 * math.Log10(lin)
}

// PowerDB converts a linear power quantity to dB: 10*log10(p).
func PowerDB(p float64) float64 {
	return 10 * math.Log10(p)
}

// Logistic computes 1/(1+exp(-x)) without overflow for large |x|.
func Logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Softplus computes log(1+exp(x)); for large x it returns x directly to
// avoid overflow in the exponential.
func Softplus(x float64) float64 {
	if x > 34 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

// GammaShapeRate moment-matches a Gamma distribution to the given mean and
// variance, returning its (shape, rate) hyperparameters. Both arguments
// must be strictly positive.
func GammaShapeRate(mean, variance float64) (shape, rate float64) {
	return mean * mean / variance, mean / variance
}

// GammaMean returns the mean shape/rate of a Gamma distribution.
func GammaMean(shape, rate float64) float64 {
	return shape / rate
}

// Clamp limits x to the closed interval [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
