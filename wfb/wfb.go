// Package wfb implements the warped-frequency filter bank front-end: a
// first-order all-pass cascade that produces a perceptually warped
// per-band power spectrum from a sliding sample buffer, and the matching
// synthesis path that folds per-band gains back into a time-domain block.
//
// A Frontend instance maintains sequential filter state and is NOT safe
// for concurrent use. Each audio stream needs its own instance.
package wfb

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// edgeBandAdjustDB compensates the one-sided spectrum folding at DC and
// Nyquist: 10*log10(2).
const edgeBandAdjustDB = 3.0103

// Public error values for frontend construction and processing.
var (
	// ErrInvalidBands indicates an unsupported band count.
	// At least 2 bands are required: the edge-band calibration addresses
	// the first and last band separately.
	ErrInvalidBands = errors.New("gosem/wfb: invalid band count (must be >= 2)")

	// ErrInvalidSampleRate indicates a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("gosem/wfb: invalid sample rate (must be > 0)")

	// ErrInvalidAPCoefficient indicates an unstable all-pass coefficient.
	// Stability requires |a| < 1.
	ErrInvalidAPCoefficient = errors.New("gosem/wfb: invalid all-pass coefficient (must satisfy |a| < 1)")

	// ErrInvalidBufferSize indicates a block duration that rounds to zero samples.
	ErrInvalidBufferSize = errors.New("gosem/wfb: invalid buffer size (must span at least one sample)")

	// ErrInvalidBlockLength indicates an input block whose length does not
	// match the configured buffer size.
	ErrInvalidBlockLength = errors.New("gosem/wfb: input block length does not match buffer size")

	// ErrInvalidGainCount indicates a gain vector whose length is not nbands.
	ErrInvalidGainCount = errors.New("gosem/wfb: gain vector length does not match band count")
)

// Config holds the frontend construction parameters.
type Config struct {
	// NBands is the number of analysis bands; the warped FFT length is
	// 2*(NBands-1).
	NBands int

	// SampleRate in Hz.
	SampleRate float64

	// APCoefficient is the all-pass warping coefficient, |a| < 1.
	// Positive values stretch low frequencies (Bark-like warping).
	APCoefficient float64

	// BufferSizeS is the block duration in seconds; the sample buffer
	// holds exactly one block.
	BufferSizeS float64

	// SPLReferenceDB calibrates digital full scale to a reference SPL.
	SPLReferenceDB float64

	// SPLPowerFloorDB is the lower clamp on the per-band power estimate.
	SPLPowerFloorDB float64
}

// Frontend is the warped filter bank for one audio stream.
type Frontend struct {
	nbands int
	nfft   int
	fs     float64
	a      float64

	buffer   []float64 // most recent block of raw samples
	blockLen int

	state []float64 // per-stage all-pass delay state, carried across blocks
	taps  *mat.Dense

	window        []float64
	calibrationDB []float64
	powerFloorDB  float64

	synthMatrix *mat.Dense // [nfft/2 x nbands]
	weights     *mat.VecDense

	fft      *fourier.FFT
	spectrum []complex128
	windowed []float64
}

// NewFrontend validates cfg and builds the filter bank. The analysis
// window, calibration offsets and synthesis basis are computed once here.
func NewFrontend(cfg Config) (*Frontend, error) {
	if cfg.NBands < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBands, cfg.NBands)
	}
	if cfg.SampleRate <= 0 || math.IsNaN(cfg.SampleRate) || math.IsInf(cfg.SampleRate, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSampleRate, cfg.SampleRate)
	}
	if !(math.Abs(cfg.APCoefficient) < 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidAPCoefficient, cfg.APCoefficient)
	}
	blockLen := int(math.Round(cfg.BufferSizeS * cfg.SampleRate))
	if blockLen < 1 {
		return nil, fmt.Errorf("%w: %v s at %v Hz", ErrInvalidBufferSize, cfg.BufferSizeS, cfg.SampleRate)
	}

	nfft := 2 * (cfg.NBands - 1)
	f := &Frontend{
		nbands:       cfg.NBands,
		nfft:         nfft,
		fs:           cfg.SampleRate,
		a:            cfg.APCoefficient,
		buffer:       make([]float64, blockLen),
		blockLen:     blockLen,
		state:        make([]float64, nfft),
		taps:         mat.NewDense(blockLen, nfft, nil),
		powerFloorDB: cfg.SPLPowerFloorDB,
		weights:      mat.NewVecDense(nfft, nil),
		fft:          fourier.NewFFT(nfft),
		spectrum:     make([]complex128, nfft/2+1),
		windowed:     make([]float64, nfft),
	}
	f.window = analysisWindow(nfft)
	f.calibrationDB = calibration(cfg.NBands, cfg.SPLReferenceDB)
	f.synthMatrix = synthesisMatrix(cfg.NBands, nfft)

	// Start with unity gains so Synthesize before the first backend call
	// passes the input through.
	unity := make([]float64, cfg.NBands)
	for i := range unity {
		unity[i] = 1
	}
	f.UpdateWeights(unity)
	return f, nil
}

// NBands returns the number of analysis bands.
func (f *Frontend) NBands() int { return f.nbands }

// NFFT returns the warped FFT length 2*(nbands-1).
func (f *Frontend) NFFT() int { return f.nfft }

// BlockLength returns the number of samples per block.
func (f *Frontend) BlockLength() int { return f.blockLen }

// SampleRate returns the sample rate in Hz.
func (f *Frontend) SampleRate() float64 { return f.fs }

// BlockRate returns the algorithm rate in Hz: one power estimate per block.
func (f *Frontend) BlockRate() float64 { return f.fs / float64(f.blockLen) }

// Window returns the fixed analysis window (peak 1).
func (f *Frontend) Window() []float64 {
	out := make([]float64, len(f.window))
	copy(out, f.window)
	return out
}

// Weights returns a copy of the current synthesis FIR weight vector.
func (f *Frontend) Weights() []float64 {
	out := make([]float64, f.nfft)
	copy(out, f.weights.RawVector().Data)
	return out
}

// ProcessBlock pushes one block of raw samples through the all-pass
// cascade and returns the calibrated per-band power estimate in dB.
//
// The cascade applies, per sample n and stage k (stage 0 is the raw
// sample):
//
//	taps[n,k] = state[k] - a*taps[n,k-1]
//	state[k]  = a*taps[n,k] + taps[n,k-1]
//
// so state[k] is the delay element of the k-th transposed direct-form
// all-pass section and survives from block to block.
func (f *Frontend) ProcessBlock(block []float64) ([]float64, error) {
	if len(block) != f.blockLen {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidBlockLength, len(block), f.blockLen)
	}
	copy(f.buffer, block)

	for n := 0; n < f.blockLen; n++ {
		f.taps.Set(n, 0, f.buffer[n])
		for k := 1; k < f.nfft; k++ {
			prev := f.taps.At(n, k-1)
			out := f.state[k] - f.a*prev
			f.state[k] = f.a*out + prev
			f.taps.Set(n, k, out)
		}
	}

	return f.power(), nil
}

// power computes the one-sided warped power spectrum of the most recent
// fully filtered sample row.
func (f *Frontend) power() []float64 {
	last := f.taps.RawRowView(f.blockLen - 1)
	for i := range f.windowed {
		f.windowed[i] = last[i] * f.window[i]
	}
	f.fft.Coefficients(f.spectrum, f.windowed)

	powerDB := make([]float64, f.nbands)
	for b := 0; b < f.nbands; b++ {
		p := cmplx.Abs(f.spectrum[b])
		p *= p
		if b != 0 && b != f.nbands-1 {
			p *= 2 // one-sided spectrum energy correction
		}
		db := 10*math.Log10(p) + f.calibrationDB[b]
		if db < f.powerFloorDB || math.IsNaN(db) {
			db = f.powerFloorDB
		}
		powerDB[b] = db
	}
	return powerDB
}

// analysisWindow builds the fixed Hann analysis window, normalized to
// peak 1.
func analysisWindow(nfft int) []float64 {
	w := make([]float64, nfft)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(nfft))
	}
	if peak := floats.Max(w); peak > 0 && peak != 1 {
		floats.Scale(1/peak, w)
	}
	return w
}

// calibration builds the fixed per-band dB offset. The edge bands carry
// only half the energy of the interior bands after one-sided folding, so
// their offset is reduced by 10*log10(2).
func calibration(nbands int, referenceDB float64) []float64 {
	cal := make([]float64, nbands)
	for i := range cal {
		cal[i] = referenceDB
	}
	cal[0] -= edgeBandAdjustDB
	cal[nbands-1] -= edgeBandAdjustDB
	return cal
}
