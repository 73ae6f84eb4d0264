// Package config provides the YAML configuration schema, loader and
// validation for the gosem processing pipeline. Validation is eager:
// every malformed or missing field is rejected at load time with an
// error naming the field, before any processing object is built.
package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/auralab/gosem/sem"
	"github.com/auralab/gosem/wfb"
)

// ErrInvalidField is wrapped by every validation failure; the message
// names the offending field and value.
var ErrInvalidField = errors.New("gosem/config: invalid or missing field")

// Config is the root configuration structure, typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Frontend  FrontendConfig  `yaml:"frontend"`
	Inference InferenceConfig `yaml:"inference"`
	Filters   FiltersConfig   `yaml:"filters"`
	Priors    PriorsConfig    `yaml:"priors"`
	Gain      GainConfig      `yaml:"gain"`
	Switch    SwitchConfig    `yaml:"switch"`

	// Smoothing selects the model variant: "none" or "xi".
	// Empty defaults to "xi".
	Smoothing string `yaml:"smoothing"`
}

// FrontendConfig configures the warped filter bank.
type FrontendConfig struct {
	NBands                       int     `yaml:"nbands"`
	FS                           float64 `yaml:"fs"`
	SPLReferenceDB               float64 `yaml:"spl_reference_db"`
	SPLPowerEstimateLowerBoundDB float64 `yaml:"spl_power_estimate_lower_bound_db"`
	APCoefficient                float64 `yaml:"apcoefficient"`
	BufferSizeS                  float64 `yaml:"buffer_size_s"`
}

// InferenceConfig configures the variational inference loop.
type InferenceConfig struct {
	Iterations int  `yaml:"iterations"`
	Autostart  bool `yaml:"autostart"`
	FreeEnergy bool `yaml:"free_energy"`
}

// FiltersConfig holds the leaky-integrator time constants.
type FiltersConfig struct {
	TimeConstants90 TimeConstantsConfig `yaml:"time_constants90"`
}

// TimeConstantsConfig holds the 90% rise times in milliseconds.
type TimeConstantsConfig struct {
	S   float64 `yaml:"s"`
	N   float64 `yaml:"n"`
	XNR float64 `yaml:"xnr"`
}

// PriorsConfig holds the initial source beliefs.
type PriorsConfig struct {
	Speech PriorConfig `yaml:"speech"`
	Noise  PriorConfig `yaml:"noise"`
}

// PriorConfig is one Gaussian prior.
type PriorConfig struct {
	Mean      float64 `yaml:"mean"`
	Precision float64 `yaml:"precision"`
}

// GainConfig configures the spectral gain sigmoid and floor.
type GainConfig struct {
	ThresholdDB float64 `yaml:"threshold"`
	Slope       float64 `yaml:"slope"`
}

// SwitchConfig configures the voice-activity sigmoid.
type SwitchConfig struct {
	ThresholdDB float64 `yaml:"threshold"`
}

func fieldErr(name string, value any) error {
	return fmt.Errorf("%w: %s = %v", ErrInvalidField, name, value)
}

// Validate checks every field eagerly.
func (c *Config) Validate() error {
	f := c.Frontend
	if f.NBands < 2 {
		return fieldErr("frontend.nbands", f.NBands)
	}
	if f.FS <= 0 || math.IsNaN(f.FS) || math.IsInf(f.FS, 0) {
		return fieldErr("frontend.fs", f.FS)
	}
	if !(math.Abs(f.APCoefficient) < 1) {
		return fieldErr("frontend.apcoefficient", f.APCoefficient)
	}
	if f.BufferSizeS <= 0 || f.BufferSizeS*f.FS < 1 {
		return fieldErr("frontend.buffer_size_s", f.BufferSizeS)
	}
	if f.SPLPowerEstimateLowerBoundDB >= f.SPLReferenceDB {
		return fieldErr("frontend.spl_power_estimate_lower_bound_db", f.SPLPowerEstimateLowerBoundDB)
	}

	if c.Inference.Iterations <= 0 {
		return fieldErr("inference.iterations", c.Inference.Iterations)
	}

	tc := c.Filters.TimeConstants90
	if tc.S <= 0 {
		return fieldErr("filters.time_constants90.s", tc.S)
	}
	if tc.N <= 0 {
		return fieldErr("filters.time_constants90.n", tc.N)
	}
	if tc.XNR <= 0 {
		return fieldErr("filters.time_constants90.xnr", tc.XNR)
	}
	if tc.S >= tc.N {
		return fmt.Errorf("%w: filters.time_constants90: s (%v ms) must be smaller than n (%v ms)",
			ErrInvalidField, tc.S, tc.N)
	}

	if c.Priors.Speech.Precision <= 0 {
		return fieldErr("priors.speech.precision", c.Priors.Speech.Precision)
	}
	if c.Priors.Noise.Precision <= 0 {
		return fieldErr("priors.noise.precision", c.Priors.Noise.Precision)
	}

	if c.Gain.Slope <= 0 {
		return fieldErr("gain.slope", c.Gain.Slope)
	}
	if math.IsNaN(c.Gain.ThresholdDB) {
		return fieldErr("gain.threshold", c.Gain.ThresholdDB)
	}
	if math.IsNaN(c.Switch.ThresholdDB) {
		return fieldErr("switch.threshold", c.Switch.ThresholdDB)
	}

	if _, err := c.smoothing(); err != nil {
		return err
	}
	return nil
}

func (c *Config) smoothing() (sem.Smoothing, error) {
	switch c.Smoothing {
	case "", "xi":
		return sem.SmoothingXi, nil
	case "none":
		return sem.SmoothingNone, nil
	}
	return 0, fieldErr("smoothing", c.Smoothing)
}

// Build validates c and constructs the frontend/backend pair. The
// backend's block rate is derived from the frontend's buffer size.
func (c *Config) Build() (*wfb.Frontend, *sem.Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	frontend, err := wfb.NewFrontend(wfb.Config{
		NBands:          c.Frontend.NBands,
		SampleRate:      c.Frontend.FS,
		APCoefficient:   c.Frontend.APCoefficient,
		BufferSizeS:     c.Frontend.BufferSizeS,
		SPLReferenceDB:  c.Frontend.SPLReferenceDB,
		SPLPowerFloorDB: c.Frontend.SPLPowerEstimateLowerBoundDB,
	})
	if err != nil {
		return nil, nil, err
	}

	smoothing, err := c.smoothing()
	if err != nil {
		return nil, nil, err
	}
	backend, err := sem.NewBackend(sem.Parameters{
		TimeConstants: sem.TimeConstants90{
			S:   c.Filters.TimeConstants90.S,
			N:   c.Filters.TimeConstants90.N,
			XNR: c.Filters.TimeConstants90.XNR,
		},
		BlockRate:       frontend.BlockRate(),
		SpeechPrior:     sem.Prior(c.Priors.Speech),
		NoisePrior:      sem.Prior(c.Priors.Noise),
		Gain:            sem.GainParameters{Slope: c.Gain.Slope, ThresholdDB: c.Gain.ThresholdDB},
		VADThresholdDB:  c.Switch.ThresholdDB,
		Iterations:      c.Inference.Iterations,
		Autostart:       c.Inference.Autostart,
		TrackFreeEnergy: c.Inference.FreeEnergy,
		Smoothing:       smoothing,
	}, c.Frontend.NBands)
	if err != nil {
		return nil, nil, err
	}
	return frontend, backend, nil
}
