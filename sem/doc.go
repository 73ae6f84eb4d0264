// Package sem implements the Spectral Enhancement Model backend: a
// per-band generative model with two leaky-integrator power envelopes
// (speech, noise), a smoothed log-ratio SNR proxy, and two sigmoid-gated
// binary variables (voice activity, spectral gain), observed through a
// two-component Gaussian mixture over the per-band power in dB.
//
// Inference is mean-field coordinate ascent with the closed-form rules
// from package factors, run for a fixed iteration count per sample. The
// output is the posterior gain probability per band, clamped below by the
// spectral floor.
//
// A Backend instance is mutated in place band-by-band and block-by-block
// and is NOT safe for concurrent use; concurrent streams need independent
// instances.
package sem
