package factors

import "math"

// Gaussian is a univariate Gaussian message in mean/precision form.
// Precision 0 denotes an uninformative message.
type Gaussian struct {
	Mean      float64
	Precision float64
}

// GaussianFromNatural builds a Gaussian from natural parameters
// (weighted mean xi = precision*mean, precision w). A zero-precision
// message keeps Mean 0 by convention.
func GaussianFromNatural(weightedMean, precision float64) Gaussian {
	g := Gaussian{Precision: precision}
	if precision != 0 {
		g.Mean = weightedMean / precision
	}
	return g
}

// WeightedMean returns the natural weighted-mean parameter.
func (g Gaussian) WeightedMean() float64 {
	return g.Mean * g.Precision
}

// Variance returns 1/Precision (Inf for an uninformative message).
func (g Gaussian) Variance() float64 {
	if g.Precision == 0 {
		return math.Inf(1)
	}
	return 1 / g.Precision
}

// Combine multiplies two Gaussian messages (precision-weighted mean).
func (g Gaussian) Combine(h Gaussian) Gaussian {
	return GaussianFromNatural(g.WeightedMean()+h.WeightedMean(), g.Precision+h.Precision)
}

// Bernoulli is a two-outcome categorical message. P1 + P0 = 1 is an
// invariant maintained by the constructors.
type Bernoulli struct {
	P1 float64
	P0 float64
}

// NewBernoulli builds a Bernoulli from the probability of the 1-outcome.
func NewBernoulli(p1 float64) Bernoulli {
	return Bernoulli{P1: p1, P0: 1 - p1}
}

// Logit returns log(P1/P0).
func (b Bernoulli) Logit() float64 {
	return math.Log(b.P1) - math.Log(b.P0)
}
