package wfb

import (
	"errors"
	"math"
	"testing"
)

func testConfig(nbands int) Config {
	return Config{
		NBands:          nbands,
		SampleRate:      16000,
		APCoefficient:   0.5,
		BufferSizeS:     0.0015,
		SPLReferenceDB:  100,
		SPLPowerFloorDB: -20,
	}
}

func TestNewFrontendValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"one_band", func(c *Config) { c.NBands = 1 }, ErrInvalidBands},
		{"zero_bands", func(c *Config) { c.NBands = 0 }, ErrInvalidBands},
		{"zero_fs", func(c *Config) { c.SampleRate = 0 }, ErrInvalidSampleRate},
		{"negative_fs", func(c *Config) { c.SampleRate = -8000 }, ErrInvalidSampleRate},
		{"nan_fs", func(c *Config) { c.SampleRate = math.NaN() }, ErrInvalidSampleRate},
		{"ap_one", func(c *Config) { c.APCoefficient = 1 }, ErrInvalidAPCoefficient},
		{"ap_large_negative", func(c *Config) { c.APCoefficient = -1.5 }, ErrInvalidAPCoefficient},
		{"ap_nan", func(c *Config) { c.APCoefficient = math.NaN() }, ErrInvalidAPCoefficient},
		{"zero_buffer", func(c *Config) { c.BufferSizeS = 0 }, ErrInvalidBufferSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(17)
			tt.mutate(&cfg)
			_, err := NewFrontend(cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewFrontend error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFrontendDimensions(t *testing.T) {
	f, err := NewFrontend(testConfig(17))
	if err != nil {
		t.Fatalf("NewFrontend: %v", err)
	}
	if f.NBands() != 17 {
		t.Errorf("NBands() = %d, want 17", f.NBands())
	}
	if f.NFFT() != 32 {
		t.Errorf("NFFT() = %d, want 32", f.NFFT())
	}
	if f.BlockLength() != 24 {
		t.Errorf("BlockLength() = %d, want 24 (1.5 ms at 16 kHz)", f.BlockLength())
	}
	if got := f.BlockRate(); math.Abs(got-16000.0/24.0) > 1e-9 {
		t.Errorf("BlockRate() = %v, want %v", got, 16000.0/24.0)
	}
}

func TestAnalysisWindowPeakOne(t *testing.T) {
	f, err := NewFrontend(testConfig(9))
	if err != nil {
		t.Fatalf("NewFrontend: %v", err)
	}
	w := f.Window()
	peak := 0.0
	for _, v := range w {
		if v > peak {
			peak = v
		}
	}
	if math.Abs(peak-1) > 1e-12 {
		t.Errorf("window peak = %v, want 1", peak)
	}
}

func TestCalibrationEdgeBands(t *testing.T) {
	cal := calibration(5, 100)
	for i, want := range []float64{100 - 3.0103, 100, 100, 100, 100 - 3.0103} {
		if math.Abs(cal[i]-want) > 1e-12 {
			t.Errorf("calibration[%d] = %v, want %v", i, cal[i], want)
		}
	}
}

func TestWeightsPalindromeInvariant(t *testing.T) {
	f, err := NewFrontend(testConfig(17))
	if err != nil {
		t.Fatalf("NewFrontend: %v", err)
	}
	gains := make([]float64, 17)
	for i := range gains {
		gains[i] = 0.1 + 0.05*float64(i)
	}
	if err := f.UpdateWeights(gains); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}
	w := f.Weights()
	nfft := f.NFFT()
	if w[nfft/2] != 0 {
		t.Errorf("weights[%d] = %v, want forced zero mid tap", nfft/2, w[nfft/2])
	}
	for i := 1; i < nfft; i++ {
		if math.Abs(w[i]-w[nfft-i]) > 1e-15 {
			t.Errorf("weights[%d] = %v, weights[%d] = %v, want palindrome", i, w[i], nfft-i, w[nfft-i])
		}
	}
}

func TestUpdateWeightsGainCount(t *testing.T) {
	f, err := NewFrontend(testConfig(9))
	if err != nil {
		t.Fatalf("NewFrontend: %v", err)
	}
	if err := f.UpdateWeights(make([]float64, 4)); !errors.Is(err, ErrInvalidGainCount) {
		t.Errorf("UpdateWeights error = %v, want ErrInvalidGainCount", err)
	}
}

func TestProcessBlockLengthCheck(t *testing.T) {
	f, err := NewFrontend(testConfig(9))
	if err != nil {
		t.Fatalf("NewFrontend: %v", err)
	}
	if _, err := f.ProcessBlock(make([]float64, f.BlockLength()+1)); !errors.Is(err, ErrInvalidBlockLength) {
		t.Errorf("ProcessBlock error = %v, want ErrInvalidBlockLength", err)
	}
}

func TestProcessBlockPowerFloor(t *testing.T) {
	f, err := NewFrontend(testConfig(9))
	if err != nil {
		t.Fatalf("NewFrontend: %v", err)
	}
	// Silence must clamp every band to the configured floor, not -Inf.
	db, err := f.ProcessBlock(make([]float64, f.BlockLength()))
	if err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}
	for b, v := range db {
		if v != -20 {
			t.Errorf("band %d power = %v dB, want floor -20", b, v)
		}
	}
}

func TestUnityGainPassthrough(t *testing.T) {
	cfg := testConfig(17)
	cfg.BufferSizeS = 0.004 // 64 samples
	f, err := NewFrontend(cfg)
	if err != nil {
		t.Fatalf("NewFrontend: %v", err)
	}
	block := make([]float64, f.BlockLength())
	for i := range block {
		block[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/cfg.SampleRate)
	}
	if _, err := f.ProcessBlock(block); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}
	unity := make([]float64, cfg.NBands)
	for i := range unity {
		unity[i] = 1
	}
	if err := f.UpdateWeights(unity); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}
	out := f.Synthesize()
	for i := range block {
		if math.Abs(out[i]-block[i]) > 1e-12 {
			t.Fatalf("sample %d: out = %v, in = %v; unity gains should pass through", i, out[i], block[i])
		}
	}
}

func TestZeroGainSilence(t *testing.T) {
	f, err := NewFrontend(testConfig(9))
	if err != nil {
		t.Fatalf("NewFrontend: %v", err)
	}
	block := make([]float64, f.BlockLength())
	for i := range block {
		block[i] = math.Sin(2 * math.Pi * float64(i) / 8)
	}
	if _, err := f.ProcessBlock(block); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}
	if err := f.UpdateWeights(make([]float64, 9)); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}
	for i, v := range f.Synthesize() {
		if v != 0 {
			t.Fatalf("sample %d = %v, want 0 with all-zero gains", i, v)
		}
	}
}

func TestTonePowerConcentration(t *testing.T) {
	// A loud low-frequency tone should put more power in the low bands
	// than in the top band, given a positive (low-stretching) warp.
	cfg := testConfig(17)
	cfg.BufferSizeS = 0.02 // 320 samples, enough to settle the cascade
	f, err := NewFrontend(cfg)
	if err != nil {
		t.Fatalf("NewFrontend: %v", err)
	}
	block := make([]float64, f.BlockLength())
	for i := range block {
		block[i] = math.Sin(2 * math.Pi * 250 * float64(i) / cfg.SampleRate)
	}
	var db []float64
	for blockIdx := 0; blockIdx < 4; blockIdx++ {
		db, err = f.ProcessBlock(block)
		if err != nil {
			t.Fatalf("ProcessBlock: %v", err)
		}
	}
	low := math.Max(db[1], db[2])
	if low <= db[len(db)-1] {
		t.Errorf("low-band power %v dB not above top band %v dB", low, db[len(db)-1])
	}
}
