// synthesis.go builds the gain-dependent synthesis FIR from the fixed
// inverse-DFT basis and projects the warped tap matrix back to a
// time-domain block.

package wfb

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// synthesisMatrix builds the fixed [nfft/2 x nbands] map from per-band
// linear gains to the first half of the synthesis FIR. Column b is the
// inverse real DFT basis for bin b (interior bins doubled for the
// one-sided spectrum), tapered by a half-cosine so the FIR decays to the
// forced zero mid tap. With unity gains the product is a unit impulse at
// tap 0, making analysis+synthesis an exact passthrough.
func synthesisMatrix(nbands, nfft int) *mat.Dense {
	half := nfft / 2
	m := mat.NewDense(half, nbands, nil)
	for t := 0; t < half; t++ {
		taper := 0.5 * (1 + math.Cos(2*math.Pi*float64(t)/float64(nfft)))
		for b := 0; b < nbands; b++ {
			c := 2.0
			if b == 0 || b == nbands-1 {
				c = 1.0
			}
			m.Set(t, b, c/float64(nfft)*math.Cos(2*math.Pi*float64(b)*float64(t)/float64(nfft))*taper)
		}
	}
	return m
}

// UpdateWeights rebuilds the synthesis FIR weight vector from per-band
// linear gains. The first nfft/2 weights come from the synthesis matrix;
// the rest mirror them so that weights[i] == weights[nfft-i] for every
// valid i, with the mid tap forced to zero.
//
// Gains are conceptually in [0,1] but are not clamped here; the backend
// owns the spectral floor and ceiling.
func (f *Frontend) UpdateWeights(gains []float64) error {
	if len(gains) != f.nbands {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidGainCount, len(gains), f.nbands)
	}
	half := f.nfft / 2
	var w mat.VecDense
	w.MulVec(f.synthMatrix, mat.NewVecDense(f.nbands, gains))

	for t := 0; t < half; t++ {
		f.weights.SetVec(t, w.AtVec(t))
	}
	f.weights.SetVec(half, 0)
	for j := 1; j < half; j++ {
		f.weights.SetVec(half+j, w.AtVec(half-j))
	}
	return nil
}

// Synthesize projects the current tap matrix through the synthesis FIR,
// returning one output block. The orchestration layer must have called
// UpdateWeights with this block's gains first; the frontend does not
// enforce that ordering.
func (f *Frontend) Synthesize() []float64 {
	var out mat.VecDense
	out.MulVec(f.taps, f.weights)
	block := make([]float64, f.blockLen)
	copy(block, out.RawVector().Data)
	return block
}
