// hearingaid.go composes the warped filter bank and the SEM backend into
// a block or whole-signal processing pipeline.

package gosem

import (
	"fmt"

	"github.com/auralab/gosem/wfb"
)

// Strategy selects the gain computation of a HearingAid. It is an
// explicit per-instance field, mutable between blocks.
type Strategy int

const (
	// StrategySEM applies the spectral enhancement model's inferred gains.
	StrategySEM Strategy = iota

	// StrategyBaseline applies unity gain: analysis and synthesis only.
	StrategyBaseline
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case StrategySEM:
		return "sem"
	case StrategyBaseline:
		return "baseline"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// GainBackend computes per-band linear gains from one block's per-band
// power estimate in dB. sem.Backend implements it.
type GainBackend interface {
	BlockGains(powerDB []float64) ([]float64, error)
	NBands() int
}

// HearingAid processes one audio stream block by block. It is NOT safe
// for concurrent use; create one instance per stream.
type HearingAid struct {
	frontend *wfb.Frontend
	backend  GainBackend
	strategy Strategy
	clip     SoftClipper
	unity    []float64
}

// NewHearingAid builds the pipeline. backend may be nil only for
// StrategyBaseline; with a backend present its band count must match the
// frontend's.
func NewHearingAid(frontend *wfb.Frontend, backend GainBackend, strategy Strategy) (*HearingAid, error) {
	if frontend == nil {
		return nil, ErrNilFrontend
	}
	if strategy != StrategySEM && strategy != StrategyBaseline {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStrategy, int(strategy))
	}
	if strategy == StrategySEM && backend == nil {
		return nil, ErrNilBackend
	}
	if backend != nil && backend.NBands() != frontend.NBands() {
		return nil, fmt.Errorf("%w: frontend %d, backend %d",
			ErrBandCountMismatch, frontend.NBands(), backend.NBands())
	}
	unity := make([]float64, frontend.NBands())
	for i := range unity {
		unity[i] = 1
	}
	return &HearingAid{
		frontend: frontend,
		backend:  backend,
		strategy: strategy,
		unity:    unity,
	}, nil
}

// Strategy returns the current processing strategy.
func (h *HearingAid) Strategy() Strategy { return h.strategy }

// SetStrategy switches the gain computation for subsequent blocks.
func (h *HearingAid) SetStrategy(s Strategy) error {
	if s != StrategySEM && s != StrategyBaseline {
		return fmt.Errorf("%w: %d", ErrInvalidStrategy, int(s))
	}
	if s == StrategySEM && h.backend == nil {
		return ErrNilBackend
	}
	h.strategy = s
	return nil
}

// BlockLength returns the number of samples ProcessBlock expects.
func (h *HearingAid) BlockLength() int { return h.frontend.BlockLength() }

// ProcessBlock runs one block through analysis, gain computation and
// synthesis, returning the enhanced block. The frontend's weights are
// always updated with the current block's gains before synthesis.
func (h *HearingAid) ProcessBlock(block []float64) ([]float64, error) {
	powerDB, err := h.frontend.ProcessBlock(block)
	if err != nil {
		return nil, err
	}

	gains := h.unity
	if h.strategy == StrategySEM {
		gains, err = h.backend.BlockGains(powerDB)
		if err != nil {
			return nil, err
		}
	}
	if err := h.frontend.UpdateWeights(gains); err != nil {
		return nil, err
	}

	out := h.frontend.Synthesize()
	h.clip.Process(out)
	return out, nil
}

// ProcessSignal runs a whole signal block by block. A trailing partial
// block is zero-padded; the output has the same length as the input.
func (h *HearingAid) ProcessSignal(signal []float64) ([]float64, error) {
	if len(signal) == 0 {
		return nil, ErrEmptySignal
	}
	blockLen := h.frontend.BlockLength()
	out := make([]float64, 0, len(signal))
	block := make([]float64, blockLen)

	for off := 0; off < len(signal); off += blockLen {
		end := off + blockLen
		if end > len(signal) {
			end = len(signal)
		}
		n := copy(block, signal[off:end])
		for i := n; i < blockLen; i++ {
			block[i] = 0
		}
		processed, err := h.ProcessBlock(block)
		if err != nil {
			return nil, fmt.Errorf("block at sample %d: %w", off, err)
		}
		out = append(out, processed[:n]...)
	}
	return out, nil
}
