// Package gosem implements a real-time-capable monaural speech enhancer:
// a warped-frequency filter bank front-end (all-pass cascade analysis and
// FIR synthesis) driven by a per-band probabilistic spectral enhancement
// model inferred with variational message passing.
//
// The processing pipeline per audio block is:
//
//	raw block -> wfb analysis (per-band power, dB)
//	          -> sem backend (variational inference, per-band gain)
//	          -> wfb synthesis (gain-weighted reconstruction)
//	          -> soft clip -> output block
//
// HearingAid composes the stages; the Strategy field selects the SEM
// backend or a unity-gain baseline. One HearingAid (and its frontend and
// backend) is exclusively owned by one stream's processing loop;
// concurrent streams require independent instances.
//
// # Packages
//
//   - wfb: warped filter bank analysis/synthesis
//   - sem: spectral enhancement model and inference driver
//   - factors: sigmoid factor message-passing rules
//   - config: YAML configuration schema and validation
//   - util: scalar numeric helpers
package gosem
