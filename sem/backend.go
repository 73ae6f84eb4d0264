// backend.go implements the per-block inference driver: mean-field
// coordinate ascent over the per-band factor graph, and the gain
// extraction with spectral floor.

package sem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/auralab/gosem/factors"
	"github.com/auralab/gosem/util"
)

// Backend runs SEM inference for every band of one audio stream.
type Backend struct {
	params Parameters
	nbands int
	states States
}

// NewBackend validates params, derives the per-band transition precisions
// and builds the initial posterior state from the configured priors.
func NewBackend(params Parameters, nbands int) (*Backend, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if nbands < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBands, nbands)
	}

	speech, err := NewSourceState(nbands, params.SpeechPrior)
	if err != nil {
		return nil, fmt.Errorf("priors.speech: %w", err)
	}
	noise, err := NewSourceState(nbands, params.NoisePrior)
	if err != nil {
		return nil, fmt.Errorf("priors.noise: %w", err)
	}
	xi, err := NewSourceState(nbands, xiPrior(params))
	if err != nil {
		return nil, fmt.Errorf("priors.xi: %w", err)
	}

	b := &Backend{
		params: params,
		nbands: nbands,
		states: States{
			Speech: BLIState{Source: speech, Transition: NewSourceTransitionState(nbands, params.ffSpeech)},
			Noise:  BLIState{Source: noise, Transition: NewSourceTransitionState(nbands, params.ffNoise)},
			Xi:     BLIState{Source: xi, Transition: NewSourceTransitionState(nbands, params.ffXi)},
			Gain:   NewGainState(nbands, params.gminLin),
			VAD:    NewVADState(nbands),
		},
	}
	if err := b.states.CheckInvariants(nbands); err != nil {
		return nil, err
	}
	return b, nil
}

// xiPrior derives the initial belief over the log-ratio from the source
// priors: mean is the prior SNR, precision the series combination.
func xiPrior(p Parameters) Prior {
	return Prior{
		Mean:      p.SpeechPrior.Mean - p.NoisePrior.Mean,
		Precision: 1 / (1/p.SpeechPrior.Precision + 1/p.NoisePrior.Precision),
	}
}

// NBands returns the band count.
func (b *Backend) NBands() int { return b.nbands }

// Params returns the validated parameters.
func (b *Backend) Params() *Parameters { return &b.params }

// States exposes the mutable posterior state, mainly for tests and
// diagnostics.
func (b *Backend) States() *States { return &b.states }

// Reset restores every band to the configured priors.
func (b *Backend) Reset() {
	for i := 0; i < b.nbands; i++ {
		b.resetBand(i)
	}
}

func (b *Backend) resetBand(i int) {
	p := b.params
	b.states.Speech.Source.Mean[i] = p.SpeechPrior.Mean
	b.states.Speech.Source.Precision[i] = p.SpeechPrior.Precision
	b.states.Noise.Source.Mean[i] = p.NoisePrior.Mean
	b.states.Noise.Source.Precision[i] = p.NoisePrior.Precision
	xp := xiPrior(p)
	b.states.Xi.Source.Mean[i] = xp.Mean
	b.states.Xi.Source.Precision[i] = xp.Precision
	b.states.VAD.set(i, 0.5)
	b.states.VAD.Zeta[i] = 1
	b.states.Gain.set(i, 0.5, p.gminLin)
	b.states.Gain.Zeta[i] = 1
}

// History is the raw inference artifact of one ProcessBand call, kept for
// diagnostics and offline evaluation.
type History struct {
	Band       int
	GainP      []float64 // q(w=1) per time step, before the floor
	VADP       []float64 // q(z=1) per time step
	SpeechMean []float64
	NoiseMean  []float64
	XiMean     []float64
	FreeEnergy []float64 // per iteration, only when TrackFreeEnergy is set
}

// stepContext fixes the leaky-integrator priors for one time step; the
// coordinate sweep iterates against these.
type stepContext struct {
	y                                float64
	priorSpeech, priorNoise, priorXi factors.Gaussian
}

// ProcessBand runs filtering inference over one band's power time series
// (dB, one value per block) and returns the floored gain sequence plus
// the inference history. Input is validated eagerly: band range, empty
// series and non-finite values all fail before any state is touched.
func (b *Backend) ProcessBand(powerDB []float64, band int) ([]float64, *History, error) {
	if band < 0 || band >= b.nbands {
		return nil, nil, fmt.Errorf("%w: band %d, nbands %d", ErrBandRange, band, b.nbands)
	}
	if len(powerDB) == 0 {
		return nil, nil, fmt.Errorf("%w: band %d", ErrEmptySignal, band)
	}
	if floats.HasNaN(powerDB) {
		return nil, nil, fmt.Errorf("%w: NaN in band %d", ErrNonFinitePower, band)
	}
	for t, y := range powerDB {
		if math.IsInf(y, 0) {
			return nil, nil, fmt.Errorf("%w: Inf at step %d, band %d", ErrNonFinitePower, t, band)
		}
	}

	if !b.params.Autostart {
		b.resetBand(band)
	}

	n := len(powerDB)
	hist := &History{
		Band:       band,
		GainP:      make([]float64, 0, n),
		VADP:       make([]float64, 0, n),
		SpeechMean: make([]float64, 0, n),
		NoiseMean:  make([]float64, 0, n),
		XiMean:     make([]float64, 0, n),
	}
	gains := make([]float64, n)

	for t, y := range powerDB {
		ctx := b.newStep(band, y)
		for it := 0; it < b.params.Iterations; it++ {
			for _, kind := range updateOrder {
				if err := b.updateState(kind, band, ctx); err != nil {
					return nil, nil, fmt.Errorf("band %d, step %d, %v update: %w", band, t, kind, err)
				}
			}
			if b.params.TrackFreeEnergy {
				fe, err := b.freeEnergy(band, ctx)
				if err != nil {
					return nil, nil, fmt.Errorf("band %d, step %d free energy: %w", band, t, err)
				}
				hist.FreeEnergy = append(hist.FreeEnergy, fe)
			}
		}
		gains[t] = b.states.Gain.WienerGain[band]
		hist.GainP = append(hist.GainP, b.states.Gain.P[band])
		hist.VADP = append(hist.VADP, b.states.VAD.P[band])
		hist.SpeechMean = append(hist.SpeechMean, b.states.Speech.Source.Mean[band])
		hist.NoiseMean = append(hist.NoiseMean, b.states.Noise.Source.Mean[band])
		hist.XiMean = append(hist.XiMean, b.states.Xi.Source.Mean[band])
	}
	return gains, hist, nil
}

// BlockGains runs one inference step for every band of a single block's
// power estimate and returns the floored per-band gain vector.
func (b *Backend) BlockGains(powerDB []float64) ([]float64, error) {
	if len(powerDB) != b.nbands {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(powerDB), b.nbands)
	}
	gains := make([]float64, b.nbands)
	for band := 0; band < b.nbands; band++ {
		g, _, err := b.ProcessBand(powerDB[band:band+1], band)
		if err != nil {
			return nil, err
		}
		gains[band] = g[0]
	}
	return gains, nil
}

// newStep freezes the leaky-integrator priors for one observation.
func (b *Backend) newStep(band int, y float64) *stepContext {
	sm, sp := b.states.Speech.priorAt(band)
	nm, np := b.states.Noise.priorAt(band)
	xm, xp := b.states.Xi.priorAt(band)
	return &stepContext{
		y:           y,
		priorSpeech: factors.Gaussian{Mean: sm, Precision: sp},
		priorNoise:  factors.Gaussian{Mean: nm, Precision: np},
		priorXi:     factors.Gaussian{Mean: xm, Precision: xp},
	}
}

// updateState performs one coordinate update for the tagged variable of
// one band, holding every other variable fixed.
func (b *Backend) updateState(kind StateKind, i int, ctx *stepContext) error {
	s := &b.states
	p := &b.params
	y := ctx.y

	ms, vs := s.Speech.Source.Mean[i], 1/s.Speech.Source.Precision[i]
	mn, vn := s.Noise.Source.Mean[i], 1/s.Noise.Source.Precision[i]
	mx, vx := s.Xi.Source.Mean[i], 1/s.Xi.Source.Precision[i]
	kappa := p.VADThresholdDB
	theta := p.Gain.ThresholdDB
	eta := p.Gain.Slope

	switch kind {
	case KindSwitch:
		// q(z) combines the sigmoid prior on xi-kappa with the mixture
		// observation evidence under unit component precision.
		prior := factors.MessageToOutput(mx - kappa)
		obsLogOdds := -0.5*((y-ms)*(y-ms)+vs) + 0.5*((y-mn)*(y-mn)+vn)
		pz := util.Clamp(util.Logistic(prior.Logit()+obsLogOdds), probFloor, 1-probFloor)
		s.VAD.set(i, pz)

	case KindSpeech:
		pz := s.VAD.P[i]
		// Message through the subtraction factor s = xi + n: variances add.
		chain := 1 / (vx + vn + 1)
		post := ctx.priorSpeech.
			Combine(factors.GaussianFromNatural(pz*y, pz)).
			Combine(factors.GaussianFromNatural(chain*(mx+mn), chain))
		s.Speech.Source.Mean[i] = post.Mean
		s.Speech.Source.Precision[i] = post.Precision

	case KindNoise:
		qz := s.VAD.Q[i]
		// Message through the subtraction factor n = s - xi: variances add.
		chain := 1 / (vs + vx + 1)
		post := ctx.priorNoise.
			Combine(factors.GaussianFromNatural(qz*y, qz)).
			Combine(factors.GaussianFromNatural(chain*(ms-mx), chain))
		s.Noise.Source.Mean[i] = post.Mean
		s.Noise.Source.Precision[i] = post.Precision

	case KindXiSmooth:
		// Subtraction factor xi ~ N(s-n, 1), both sigmoid messages, and
		// (extended variant only) the xi leaky-integrator prior.
		sub := 1 / (vs + vn + 1)
		post := factors.GaussianFromNatural(sub*(ms-mn), sub)
		if p.Smoothing == SmoothingXi {
			post = post.Combine(ctx.priorXi)
		}
		vadMsg := factors.MessageToInput(s.VAD.P[i], s.VAD.Zeta[i])
		post = post.Combine(factors.GaussianFromNatural(
			vadMsg.WeightedMean()+vadMsg.Precision*kappa, vadMsg.Precision))
		gainMsg := factors.MessageToInput(0.5, s.Gain.Zeta[i])
		post = post.Combine(factors.GaussianFromNatural(
			eta*gainMsg.WeightedMean()+eta*eta*gainMsg.Precision*theta, eta*eta*gainMsg.Precision))
		s.Xi.Source.Mean[i] = post.Mean
		s.Xi.Source.Precision[i] = post.Precision

	case KindVad:
		zeta, err := factors.OptimalZeta(mx-kappa, vx)
		if err != nil {
			return err
		}
		s.VAD.Zeta[i] = zeta

	case KindGain:
		zeta, err := factors.OptimalZeta(eta*(mx-theta), eta*eta*vx)
		if err != nil {
			return err
		}
		s.Gain.Zeta[i] = zeta
		// Uniform Categorical([0.5,0.5]) prior: the posterior over w is
		// the sigmoid message itself.
		w := factors.MessageToOutput(eta * (mx - theta))
		s.Gain.set(i, w.P1, p.gminLin)

	default:
		return fmt.Errorf("gosem/sem: unknown state kind %d", int(kind))
	}
	return nil
}

// probFloor keeps mixture responsibilities away from 0/1 so the ungated
// source never stops observing the data entirely; without it a source
// parked far from the signal level can hold the SNR proxy, and the gain,
// open indefinitely.
const probFloor = 0.01

// freeEnergy evaluates the tracked part of the variational free energy:
// both sigmoid average energies, the mixture observation energy, minus
// the Gaussian entropies. Used as a convergence diagnostic.
func (b *Backend) freeEnergy(i int, ctx *stepContext) (float64, error) {
	s := &b.states
	p := &b.params
	y := ctx.y

	ms, vs := s.Speech.Source.Mean[i], 1/s.Speech.Source.Precision[i]
	mn, vn := s.Noise.Source.Mean[i], 1/s.Noise.Source.Precision[i]
	mx, vx := s.Xi.Source.Mean[i], 1/s.Xi.Source.Precision[i]
	eta := p.Gain.Slope

	uVad, err := factors.AverageEnergy(mx-p.VADThresholdDB, vx, s.VAD.P[i], s.VAD.Zeta[i])
	if err != nil {
		return 0, err
	}
	uGain, err := factors.AverageEnergy(eta*(mx-p.Gain.ThresholdDB), eta*eta*vx, s.Gain.P[i], s.Gain.Zeta[i])
	if err != nil {
		return 0, err
	}
	pz := s.VAD.P[i]
	uObs := pz*0.5*((y-ms)*(y-ms)+vs) + (1-pz)*0.5*((y-mn)*(y-mn)+vn)
	entropy := 0.5 * (math.Log(2*math.Pi*math.E*vs) + math.Log(2*math.Pi*math.E*vn) + math.Log(2*math.Pi*math.E*vx))

	fe := uVad + uGain + uObs - entropy
	if math.IsNaN(fe) || math.IsInf(fe, 0) {
		return 0, &factors.NonFiniteError{
			Op: "freeEnergy",
			Values: map[string]float64{
				"u_vad": uVad, "u_gain": uGain, "u_obs": uObs, "entropy": entropy,
				"y": y, "m_s": ms, "v_s": vs, "m_n": mn, "v_n": vn, "m_xi": mx, "v_xi": vx,
			},
		}
	}
	return fe, nil
}

// WienerGainSpectralFloor clamps each gain from below by the linear
// spectral floor. The clamp is monotone, hence idempotent.
func WienerGainSpectralFloor(gains []float64, gminLin float64) []float64 {
	out := make([]float64, len(gains))
	for i, g := range gains {
		out[i] = math.Max(g, gminLin)
	}
	return out
}
