// errors.go defines public error types for the gosem package.

package gosem

import "errors"

// Public error values for hearing-aid construction and processing.
var (
	// ErrNilFrontend indicates a missing filter bank frontend.
	ErrNilFrontend = errors.New("gosem: frontend must not be nil")

	// ErrNilBackend indicates the SEM strategy was selected without a backend.
	ErrNilBackend = errors.New("gosem: SEM strategy requires a backend")

	// ErrInvalidStrategy indicates an unrecognised processing strategy.
	ErrInvalidStrategy = errors.New("gosem: invalid strategy")

	// ErrBandCountMismatch indicates frontend and backend disagree on the
	// number of bands.
	ErrBandCountMismatch = errors.New("gosem: frontend and backend band counts differ")

	// ErrEmptySignal indicates an empty input signal.
	ErrEmptySignal = errors.New("gosem: empty input signal")
)
