package sem

import (
	"errors"
	"fmt"
	"math"

	"github.com/auralab/gosem/util"
)

// Public error values for parameter and state construction.
var (
	// ErrInvalidIterations indicates a non-positive inference iteration count.
	ErrInvalidIterations = errors.New("gosem/sem: invalid iteration count (must be > 0)")

	// ErrInvalidTimeConstant indicates a non-positive time constant.
	ErrInvalidTimeConstant = errors.New("gosem/sem: invalid time constant (must be > 0)")

	// ErrTimeConstantOrder indicates the speech time constant is not
	// strictly faster (smaller) than the noise time constant.
	ErrTimeConstantOrder = errors.New("gosem/sem: speech time constant must be smaller than noise time constant")

	// ErrInvalidPrecision indicates a non-positive precision.
	ErrInvalidPrecision = errors.New("gosem/sem: invalid precision (must be > 0)")

	// ErrInvalidSlope indicates a non-positive sigmoid slope.
	ErrInvalidSlope = errors.New("gosem/sem: invalid gain slope (must be > 0)")

	// ErrInvalidBlockRate indicates a non-positive algorithm block rate.
	ErrInvalidBlockRate = errors.New("gosem/sem: invalid block rate (must be > 0)")

	// ErrInvalidSmoothing indicates an unrecognised smoothing mode.
	ErrInvalidSmoothing = errors.New("gosem/sem: invalid smoothing mode")

	// ErrInvalidBands indicates a band count below 2.
	ErrInvalidBands = errors.New("gosem/sem: invalid band count (must be >= 2)")

	// ErrBandRange indicates a band index outside [0, nbands).
	ErrBandRange = errors.New("gosem/sem: band index out of range")

	// ErrEmptySignal indicates an empty power time series.
	ErrEmptySignal = errors.New("gosem/sem: empty power time series")

	// ErrNonFinitePower indicates NaN or Inf in the observed power.
	ErrNonFinitePower = errors.New("gosem/sem: non-finite value in power input")

	// ErrLengthMismatch indicates a per-band vector of the wrong length.
	ErrLengthMismatch = errors.New("gosem/sem: per-band vector length mismatch")
)

// Smoothing selects which historical model variant the backend runs.
type Smoothing int

const (
	// SmoothingNone is the base variant: the log-ratio xi is observed
	// directly with unit precision, no extra smoothing stage.
	SmoothingNone Smoothing = iota

	// SmoothingXi is the extended variant: xi passes through its own
	// leaky integrator before driving the sigmoid gates.
	SmoothingXi
)

// String implements fmt.Stringer.
func (s Smoothing) String() string {
	switch s {
	case SmoothingNone:
		return "none"
	case SmoothingXi:
		return "xi"
	}
	return fmt.Sprintf("Smoothing(%d)", int(s))
}

// Prior is the initial Gaussian belief over one source's log-power envelope.
type Prior struct {
	Mean      float64
	Precision float64
}

// GainParameters derives the gain decision threshold and the spectral
// floor from a configured dB threshold and sigmoid slope.
type GainParameters struct {
	// Slope multiplies the SNR-proxy argument of the gain sigmoid.
	Slope float64

	// ThresholdDB is the configured gain decision threshold (GMIN-style).
	ThresholdDB float64
}

// ThresholdLin returns the linear spectral floor derived from ThresholdDB
// via a deliberate double transform:
//
//	lin1 = 10^(-ThresholdDB/20)
//	dBr  = round(-20*log10(lin1))   // residual suppression, integer dB
//	lin  = 10^(-dBr/20)
//
// The rounding step snaps the effective threshold to an integer dB value,
// which keeps a threshold arbitrarily close to 0 dB from producing a floor
// that floating-point rounding could push above 1.0 or below 0.0. The
// effective threshold therefore differs from the literal configured value
// for non-integer inputs; do not simplify this to the naive single
// transform.
func (g GainParameters) ThresholdLin() float64 {
	lin1 := math.Pow(10, -g.ThresholdDB/20)
	dBr := math.Round(-20 * math.Log10(lin1))
	return math.Pow(10, -dBr/20)
}

// TimeConstants90 holds the 90% rise times, in milliseconds, of the three
// leaky integrators. S must be strictly smaller than N: the speech
// envelope tracks faster than the noise floor.
type TimeConstants90 struct {
	S   float64 // speech envelope
	N   float64 // noise envelope
	XNR float64 // smoothed log-ratio (SNR proxy)
}

// Parameters is the immutable configuration shared by every band of a
// Backend.
type Parameters struct {
	TimeConstants TimeConstants90

	// BlockRate is the algorithm rate in Hz: one power estimate per block.
	BlockRate float64

	SpeechPrior Prior
	NoisePrior  Prior

	Gain GainParameters

	// VADThresholdDB shifts the voice-activity sigmoid.
	VADThresholdDB float64

	// Iterations is the number of coordinate-ascent rounds per sample.
	Iterations int

	// Autostart feeds each block's posterior back as the next prior.
	// When false, ProcessBand restarts from the configured priors.
	Autostart bool

	// TrackFreeEnergy records the variational free energy per iteration
	// in the inference history.
	TrackFreeEnergy bool

	Smoothing Smoothing

	// Derived quantities, computed by Validate.
	ffSpeech, ffNoise, ffXi                      float64
	transPrecSpeech, transPrecNoise, transPrecXi float64
	gminLin                                      float64
}

// Validate checks every field eagerly and computes the derived forgetting
// factors, transition precisions and spectral floor. It must be called
// (directly or via NewBackend) before the parameters are used.
func (p *Parameters) Validate() error {
	if p.Iterations <= 0 {
		return fmt.Errorf("%w: inference.iterations = %d", ErrInvalidIterations, p.Iterations)
	}
	if p.BlockRate <= 0 || math.IsNaN(p.BlockRate) || math.IsInf(p.BlockRate, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidBlockRate, p.BlockRate)
	}
	for name, tc := range map[string]float64{
		"filters.time_constants90.s":   p.TimeConstants.S,
		"filters.time_constants90.n":   p.TimeConstants.N,
		"filters.time_constants90.xnr": p.TimeConstants.XNR,
	} {
		if tc <= 0 || math.IsNaN(tc) {
			return fmt.Errorf("%w: %s = %v", ErrInvalidTimeConstant, name, tc)
		}
	}
	if p.TimeConstants.S >= p.TimeConstants.N {
		return fmt.Errorf("%w: s = %v ms, n = %v ms", ErrTimeConstantOrder, p.TimeConstants.S, p.TimeConstants.N)
	}
	for name, prec := range map[string]float64{
		"priors.speech.precision": p.SpeechPrior.Precision,
		"priors.noise.precision":  p.NoisePrior.Precision,
	} {
		if prec <= 0 || math.IsNaN(prec) {
			return fmt.Errorf("%w: %s = %v", ErrInvalidPrecision, name, prec)
		}
	}
	if p.Gain.Slope <= 0 || math.IsNaN(p.Gain.Slope) {
		return fmt.Errorf("%w: gain.slope = %v", ErrInvalidSlope, p.Gain.Slope)
	}
	if p.Smoothing != SmoothingNone && p.Smoothing != SmoothingXi {
		return fmt.Errorf("%w: %d", ErrInvalidSmoothing, int(p.Smoothing))
	}

	// Time constants are in ms, so the leaky integrators run against the
	// block rate expressed per millisecond.
	ratePerMs := p.BlockRate / 1000
	p.ffSpeech = util.Tau2FF(p.TimeConstants.S, ratePerMs)
	p.ffNoise = util.Tau2FF(p.TimeConstants.N, ratePerMs)
	p.ffXi = util.Tau2FF(p.TimeConstants.XNR, ratePerMs)
	p.transPrecSpeech = util.FF2ProcessPrecision(p.ffSpeech)
	p.transPrecNoise = util.FF2ProcessPrecision(p.ffNoise)
	p.transPrecXi = util.FF2ProcessPrecision(p.ffXi)
	p.gminLin = p.Gain.ThresholdLin()
	return nil
}

// GMinLinear returns the linear spectral floor (valid after Validate).
func (p *Parameters) GMinLinear() float64 { return p.gminLin }
