package sem

import (
	"errors"
	"math"
	"testing"
)

func validParameters() Parameters {
	return Parameters{
		TimeConstants:  TimeConstants90{S: 5, N: 700, XNR: 10},
		BlockRate:      666.7,
		SpeechPrior:    Prior{Mean: -30, Precision: 0.01},
		NoisePrior:     Prior{Mean: -30, Precision: 0.01},
		Gain:           GainParameters{Slope: 1, ThresholdDB: 12},
		VADThresholdDB: 3,
		Iterations:     5,
		Autostart:      true,
		Smoothing:      SmoothingXi,
	}
}

func TestParametersValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Parameters)
		wantErr error
	}{
		{"zero_iterations", func(p *Parameters) { p.Iterations = 0 }, ErrInvalidIterations},
		{"negative_iterations", func(p *Parameters) { p.Iterations = -3 }, ErrInvalidIterations},
		{"zero_block_rate", func(p *Parameters) { p.BlockRate = 0 }, ErrInvalidBlockRate},
		{"nan_block_rate", func(p *Parameters) { p.BlockRate = math.NaN() }, ErrInvalidBlockRate},
		{"zero_speech_tc", func(p *Parameters) { p.TimeConstants.S = 0 }, ErrInvalidTimeConstant},
		{"negative_xnr_tc", func(p *Parameters) { p.TimeConstants.XNR = -1 }, ErrInvalidTimeConstant},
		{"speech_not_faster", func(p *Parameters) { p.TimeConstants.S = 700 }, ErrTimeConstantOrder},
		{"speech_slower", func(p *Parameters) { p.TimeConstants.S = 900 }, ErrTimeConstantOrder},
		{"zero_speech_precision", func(p *Parameters) { p.SpeechPrior.Precision = 0 }, ErrInvalidPrecision},
		{"negative_noise_precision", func(p *Parameters) { p.NoisePrior.Precision = -1 }, ErrInvalidPrecision},
		{"zero_slope", func(p *Parameters) { p.Gain.Slope = 0 }, ErrInvalidSlope},
		{"bad_smoothing", func(p *Parameters) { p.Smoothing = Smoothing(7) }, ErrInvalidSmoothing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParameters()
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParametersDerived(t *testing.T) {
	p := validParameters()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for name, ff := range map[string]float64{"speech": p.ffSpeech, "noise": p.ffNoise, "xnr": p.ffXi} {
		if !(ff > 0 && ff < 1) {
			t.Errorf("forgetting factor %s = %v, want in (0,1)", name, ff)
		}
	}
	// Faster source, larger update weight.
	if p.ffSpeech <= p.ffNoise {
		t.Errorf("ffSpeech = %v should exceed ffNoise = %v", p.ffSpeech, p.ffNoise)
	}
	// Slower source, stiffer transition.
	if p.transPrecNoise <= p.transPrecSpeech {
		t.Errorf("transPrecNoise = %v should exceed transPrecSpeech = %v", p.transPrecNoise, p.transPrecSpeech)
	}
	if p.GMinLinear() <= 0 || p.GMinLinear() > 1 {
		t.Errorf("GMinLinear() = %v, want in (0,1]", p.GMinLinear())
	}
}

func TestGainParametersThresholdLin(t *testing.T) {
	// Integer thresholds survive the double transform unchanged.
	g := GainParameters{Slope: 1.0, ThresholdDB: 12.0}
	lin := g.ThresholdLin()
	if want := math.Pow(10, -12.0/20); math.Abs(lin-want) > 1e-12 {
		t.Errorf("ThresholdLin() = %v, want %v", lin, want)
	}
	// Round-trip must reproduce the recalculated (rounded) threshold, not
	// the literal configured value.
	back := -20 * math.Log10(lin)
	if math.Abs(back-12.0) > 1e-9 {
		t.Errorf("-20*log10(ThresholdLin()) = %v, want 12", back)
	}
}

func TestGainParametersThresholdLinRounds(t *testing.T) {
	tests := []struct {
		thresholdDB float64
		wantDB      float64
	}{
		{12.4, 12},
		{12.6, 13},
		{0.4, 0}, // near-zero threshold snaps to 0 dB, floor exactly 1.0
		{0.6, 1},
	}
	for _, tt := range tests {
		g := GainParameters{Slope: 1.0, ThresholdDB: tt.thresholdDB}
		lin := g.ThresholdLin()
		back := -20 * math.Log10(lin)
		if math.Abs(back-tt.wantDB) > 1e-9 {
			t.Errorf("ThresholdDB %v: recalculated dB = %v, want %v", tt.thresholdDB, back, tt.wantDB)
		}
		if lin > 1 || lin < 0 {
			t.Errorf("ThresholdDB %v: floor %v outside [0,1]", tt.thresholdDB, lin)
		}
	}
}

func TestSmoothingString(t *testing.T) {
	if SmoothingNone.String() != "none" || SmoothingXi.String() != "xi" {
		t.Error("Smoothing String() mismatch")
	}
}
