package config

import (
	"errors"
	"strings"
	"testing"
)

const validYAML = `
frontend:
  nbands: 17
  fs: 16000
  spl_reference_db: 100
  spl_power_estimate_lower_bound_db: -20
  apcoefficient: 0.5
  buffer_size_s: 0.0015
inference:
  iterations: 5
  autostart: true
  free_energy: false
filters:
  time_constants90:
    s: 5
    n: 700
    xnr: 10
priors:
  speech:
    mean: 60
    precision: 0.01
  noise:
    mean: 40
    precision: 0.01
gain:
  threshold: 12
  slope: 1
switch:
  threshold: 3
smoothing: xi
`

func loadValid(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cfg
}

func TestLoadValidConfig(t *testing.T) {
	cfg := loadValid(t)
	if cfg.Frontend.NBands != 17 {
		t.Errorf("frontend.nbands = %d, want 17", cfg.Frontend.NBands)
	}
	if cfg.Filters.TimeConstants90.N != 700 {
		t.Errorf("filters.time_constants90.n = %v, want 700", cfg.Filters.TimeConstants90.N)
	}
	if !cfg.Inference.Autostart {
		t.Error("inference.autostart = false, want true")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	yaml := strings.Replace(validYAML, "smoothing: xi", "smooothing: xi", 1)
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("unknown key must be rejected")
	}
}

func TestValidateNamesOffendingField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"nbands_too_small", func(c *Config) { c.Frontend.NBands = 1 }, "frontend.nbands"},
		{"fs_zero", func(c *Config) { c.Frontend.FS = 0 }, "frontend.fs"},
		{"apcoefficient_out_of_range", func(c *Config) { c.Frontend.APCoefficient = 1 }, "frontend.apcoefficient"},
		{"buffer_too_short", func(c *Config) { c.Frontend.BufferSizeS = 0 }, "frontend.buffer_size_s"},
		{"floor_above_reference", func(c *Config) { c.Frontend.SPLPowerEstimateLowerBoundDB = 200 }, "frontend.spl_power_estimate_lower_bound_db"},
		{"iterations_zero", func(c *Config) { c.Inference.Iterations = 0 }, "inference.iterations"},
		{"tc_s_zero", func(c *Config) { c.Filters.TimeConstants90.S = 0 }, "filters.time_constants90.s"},
		{"tc_order", func(c *Config) { c.Filters.TimeConstants90.S = 1000 }, "filters.time_constants90"},
		{"speech_precision", func(c *Config) { c.Priors.Speech.Precision = -1 }, "priors.speech.precision"},
		{"noise_precision", func(c *Config) { c.Priors.Noise.Precision = 0 }, "priors.noise.precision"},
		{"gain_slope", func(c *Config) { c.Gain.Slope = 0 }, "gain.slope"},
		{"smoothing_unknown", func(c *Config) { c.Smoothing = "heavy" }, "smoothing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadValid(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidField) {
				t.Fatalf("Validate() = %v, want ErrInvalidField", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name field %q", err, tt.field)
			}
		})
	}
}

func TestSmoothingDefault(t *testing.T) {
	cfg := loadValid(t)
	cfg.Smoothing = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty smoothing must default to xi, got %v", err)
	}
}

func TestBuild(t *testing.T) {
	cfg := loadValid(t)
	frontend, backend, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if frontend.NBands() != backend.NBands() {
		t.Errorf("band mismatch: frontend %d, backend %d", frontend.NBands(), backend.NBands())
	}
	if frontend.BlockLength() != 24 {
		t.Errorf("block length = %d, want 24 for 1.5 ms at 16 kHz", frontend.BlockLength())
	}
	if got := backend.Params().GMinLinear(); got <= 0 || got >= 1 {
		t.Errorf("GMinLinear() = %v, want in (0, 1)", got)
	}
}

func TestBuildRejectsInvalid(t *testing.T) {
	cfg := loadValid(t)
	cfg.Frontend.NBands = 0
	if _, _, err := cfg.Build(); !errors.Is(err, ErrInvalidField) {
		t.Errorf("Build with invalid config = %v, want ErrInvalidField", err)
	}
}
