// Package testsignal generates deterministic mono test signals for the
// filter bank and enhancement tests.
package testsignal

import (
	"fmt"
	"math"
)

const (
	VariantSine       = "sine_v1"
	VariantToneNoise  = "tone_noise_v1"
	VariantSpeechLike = "speech_like_v1"
)

var variants = []string{VariantSine, VariantToneNoise, VariantSpeechLike}

// Variants returns the known signal variant names.
func Variants() []string {
	out := make([]string, len(variants))
	copy(out, variants)
	return out
}

// Generate produces `samples` mono float64 samples of the named variant.
func Generate(variant string, sampleRate float64, samples int) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %v", sampleRate)
	}
	if samples <= 0 {
		return nil, fmt.Errorf("invalid sample count: %d", samples)
	}
	switch variant {
	case VariantSine:
		return Sine(sampleRate, 440, 0.5, samples), nil
	case VariantToneNoise:
		return toneNoise(sampleRate, samples), nil
	case VariantSpeechLike:
		return speechLike(sampleRate, samples), nil
	default:
		return nil, fmt.Errorf("unknown signal variant %q", variant)
	}
}

// Sine generates amp*sin(2*pi*freq*t).
func Sine(sampleRate, freq, amp float64, samples int) []float64 {
	out := make([]float64, samples)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return out
}

// toneNoise mixes a 1 kHz tone with deterministic pseudo-random noise at
// roughly -20 dB relative to the tone.
func toneNoise(sampleRate float64, samples int) []float64 {
	out := Sine(sampleRate, 1000, 0.5, samples)
	rng := newLCG(0x5eed)
	for i := range out {
		out[i] += 0.05 * (rng.next()*2 - 1)
	}
	return out
}

// speechLike alternates voiced-like harmonic bursts with near-silent
// gaps, mimicking the on/off envelope structure of speech.
func speechLike(sampleRate float64, samples int) []float64 {
	out := make([]float64, samples)
	rng := newLCG(0xfeed)
	burst := int(sampleRate * 0.12)
	gap := int(sampleRate * 0.08)
	if burst < 1 {
		burst = 1
	}
	if gap < 1 {
		gap = 1
	}
	period := burst + gap
	f0 := 140.0
	for i := range out {
		pos := i % period
		if pos < burst {
			env := math.Sin(math.Pi * float64(pos) / float64(burst))
			t := float64(i) / sampleRate
			v := 0.5*math.Sin(2*math.Pi*f0*t) +
				0.25*math.Sin(2*math.Pi*2*f0*t) +
				0.12*math.Sin(2*math.Pi*3*f0*t)
			out[i] = env * v
		} else {
			out[i] = 0.01 * (rng.next()*2 - 1)
		}
	}
	return out
}

// lcg is a small deterministic generator so tests never depend on
// math/rand ordering across Go versions.
type lcg struct{ state uint64 }

func newLCG(seed uint64) *lcg { return &lcg{state: seed} }

func (l *lcg) next() float64 {
	l.state = l.state*6364136223846793005 + 1442695040888963407
	return float64(l.state>>11) / float64(1<<53)
}
