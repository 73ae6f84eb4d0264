// state.go holds the mutable per-band posterior state of the SEM model:
// Gaussian source beliefs, Bernoulli switch beliefs and the variational
// bound parameters, plus the tagged state-update dispatch.

package sem

import (
	"fmt"
	"math"

	"github.com/auralab/gosem/util"
)

// SourceState is the posterior Gaussian over one source's log-power
// envelope, one entry per band. Precision must stay strictly positive.
type SourceState struct {
	Mean      []float64
	Precision []float64
}

// NewSourceState builds a SourceState with every band initialized from
// the given prior. A non-positive precision is a construction error.
func NewSourceState(nbands int, prior Prior) (SourceState, error) {
	if prior.Precision <= 0 || math.IsNaN(prior.Precision) {
		return SourceState{}, fmt.Errorf("%w: got %v", ErrInvalidPrecision, prior.Precision)
	}
	s := SourceState{
		Mean:      make([]float64, nbands),
		Precision: make([]float64, nbands),
	}
	for i := 0; i < nbands; i++ {
		s.Mean[i] = prior.Mean
		s.Precision[i] = prior.Precision
	}
	return s, nil
}

// SourceTransitionState is the process precision of the Markov transition
// driving a source, one entry per band.
type SourceTransitionState struct {
	Precision []float64
}

// NewSourceTransitionState derives the transition precision from a
// forgetting factor: process_var = ff^2/(1-ff), precision = 1/process_var.
func NewSourceTransitionState(nbands int, ff float64) SourceTransitionState {
	prec := util.FF2ProcessPrecision(ff)
	t := SourceTransitionState{Precision: make([]float64, nbands)}
	for i := range t.Precision {
		t.Precision[i] = prec
	}
	return t
}

// BLIState is the full basic-leaky-integrator state of one source: the
// posterior plus the transition that diffuses it between samples.
type BLIState struct {
	Source     SourceState
	Transition SourceTransitionState
}

// priorAt returns the leaky-integrator prior for band i: the previous
// posterior mean with its precision relaxed through the transition.
func (b *BLIState) priorAt(i int) (mean, precision float64) {
	post := b.Source.Precision[i]
	trans := b.Transition.Precision[i]
	return b.Source.Mean[i], 1 / (1/post + 1/trans)
}

// bernoulliTol is the tolerance on the P+Q=1 invariant.
const bernoulliTol = 1e-12

// VADState is the Bernoulli voice-activity belief per band, with the
// auxiliary bound parameter of the switch sigmoid.
type VADState struct {
	P    []float64
	Q    []float64
	Zeta []float64
}

// NewVADState builds a VADState with uninformative switches and unit
// bound parameters.
func NewVADState(nbands int) VADState {
	v := VADState{
		P:    make([]float64, nbands),
		Q:    make([]float64, nbands),
		Zeta: make([]float64, nbands),
	}
	for i := 0; i < nbands; i++ {
		v.P[i], v.Q[i], v.Zeta[i] = 0.5, 0.5, 1
	}
	return v
}

func (v *VADState) set(i int, p1 float64) {
	v.P[i] = p1
	v.Q[i] = 1 - p1
}

// GainState is the Bernoulli spectral-gain belief per band, its bound
// parameter, and the floored Wiener-style gain actually used for synthesis.
type GainState struct {
	P          []float64
	Q          []float64
	Zeta       []float64
	WienerGain []float64
}

// NewGainState builds a GainState with uninformative gains at the floor.
func NewGainState(nbands int, gminLin float64) GainState {
	g := GainState{
		P:          make([]float64, nbands),
		Q:          make([]float64, nbands),
		Zeta:       make([]float64, nbands),
		WienerGain: make([]float64, nbands),
	}
	for i := 0; i < nbands; i++ {
		g.P[i], g.Q[i], g.Zeta[i] = 0.5, 0.5, 1
		g.WienerGain[i] = math.Max(0.5, gminLin)
	}
	return g
}

func (g *GainState) set(i int, p1, gminLin float64) {
	g.P[i] = p1
	g.Q[i] = 1 - p1
	g.WienerGain[i] = math.Max(p1, gminLin)
}

// StateKind tags the coordinate update targets of the mean-field sweep.
// It replaces symbol-keyed dynamic dispatch with one switch in
// (*Backend).updateState.
type StateKind int

const (
	KindSpeech   StateKind = iota // q(s): speech envelope
	KindNoise                     // q(n): noise envelope
	KindXiSmooth                  // q(xi): smoothed log-ratio
	KindSwitch                    // q(z): mixture responsibility
	KindVad                       // zeta of the voice-activity sigmoid
	KindGain                      // zeta, q(w) and floored gain
)

// String implements fmt.Stringer.
func (k StateKind) String() string {
	switch k {
	case KindSpeech:
		return "speech"
	case KindNoise:
		return "noise"
	case KindXiSmooth:
		return "xi_smooth"
	case KindSwitch:
		return "switch"
	case KindVad:
		return "vad"
	case KindGain:
		return "gain"
	}
	return fmt.Sprintf("StateKind(%d)", int(k))
}

// updateOrder is the fixed coordinate-ascent sweep. Successive steps are
// sequentially dependent; the order must not change.
var updateOrder = []StateKind{KindSwitch, KindSpeech, KindNoise, KindXiSmooth, KindVad, KindGain}

// States bundles the full mutable backend state.
type States struct {
	Speech BLIState
	Noise  BLIState
	Xi     BLIState
	Gain   GainState
	VAD    VADState
}

// CheckInvariants verifies the structural invariants of every per-band
// state: consistent vector lengths, strictly positive precisions and
// bound parameters, P+Q=1 within tolerance.
func (s *States) CheckInvariants(nbands int) error {
	lengths := map[string]int{
		"speech.mean":      len(s.Speech.Source.Mean),
		"speech.precision": len(s.Speech.Source.Precision),
		"noise.mean":       len(s.Noise.Source.Mean),
		"noise.precision":  len(s.Noise.Source.Precision),
		"xi.mean":          len(s.Xi.Source.Mean),
		"xi.precision":     len(s.Xi.Source.Precision),
		"gain.p":           len(s.Gain.P),
		"gain.q":           len(s.Gain.Q),
		"gain.zeta":        len(s.Gain.Zeta),
		"gain.wiener":      len(s.Gain.WienerGain),
		"vad.p":            len(s.VAD.P),
		"vad.q":            len(s.VAD.Q),
		"vad.zeta":         len(s.VAD.Zeta),
	}
	for name, n := range lengths {
		if n != nbands {
			return fmt.Errorf("%w: %s has length %d, want %d", ErrLengthMismatch, name, n, nbands)
		}
	}
	for i := 0; i < nbands; i++ {
		if s.Speech.Source.Precision[i] <= 0 || s.Noise.Source.Precision[i] <= 0 || s.Xi.Source.Precision[i] <= 0 {
			return fmt.Errorf("%w: band %d", ErrInvalidPrecision, i)
		}
		if s.Gain.Zeta[i] <= 0 || s.VAD.Zeta[i] <= 0 {
			return fmt.Errorf("%w: band %d zeta", ErrInvalidPrecision, i)
		}
		if util.Abs(s.Gain.P[i]+s.Gain.Q[i]-1) > bernoulliTol {
			return fmt.Errorf("gosem/sem: gain p+q = %v at band %d, want 1", s.Gain.P[i]+s.Gain.Q[i], i)
		}
		if util.Abs(s.VAD.P[i]+s.VAD.Q[i]-1) > bernoulliTol {
			return fmt.Errorf("gosem/sem: vad p+q = %v at band %d, want 1", s.VAD.P[i]+s.VAD.Q[i], i)
		}
	}
	return nil
}
