package gosem

import "math"

// Float64ToInt16 converts a [-1, 1] sample to int16 full scale with
// round-to-even and saturation.
func Float64ToInt16(sample float64) int16 {
	scaled := sample * 32768.0
	if scaled > 32767.0 {
		return 32767
	}
	if scaled < -32768.0 {
		return -32768
	}
	return int16(math.RoundToEven(scaled))
}

// Int16ToFloat64 converts an int16 sample to [-1, 1) float.
func Int16ToFloat64(sample int16) float64 {
	return float64(sample) / 32768.0
}
