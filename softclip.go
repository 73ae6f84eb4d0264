package gosem

// SoftClipper applies a smooth quadratic non-linearity to samples that
// exceed [-1, 1], instead of hard truncation. The correction coefficient
// carries over between blocks so a clipped region split across a block
// boundary stays continuous. Samples already inside [-1, 1] pass through
// untouched when no clipping is in progress.
type SoftClipper struct {
	declipMem float64
}

// Process clips x in place.
func (c *SoftClipper) Process(x []float64) {
	n := len(x)
	if n == 0 {
		return
	}

	// Hard bound first: the quadratic correction only maps [-2, 2] into
	// [-1, 1].
	for i, v := range x {
		if v > 2 {
			x[i] = 2
		} else if v < -2 {
			x[i] = -2
		}
	}

	// Continue the previous block's non-linearity while the signal keeps
	// the same polarity relation to it.
	a := c.declipMem
	for i := 0; i < n; i++ {
		v := x[i]
		if v*a >= 0 {
			break
		}
		x[i] = v + a*v*v
	}

	curr := 0
	for {
		i := curr
		for i < n && x[i] >= -1 && x[i] <= 1 {
			i++
		}
		if i == n {
			a = 0
			break
		}

		// Expand to the full same-polarity region around the violation
		// and find its peak.
		vref := x[i]
		start, end := i, i
		maxval := abs64(vref)
		for start > 0 && vref*x[start-1] >= 0 {
			start--
		}
		for end < n && vref*x[end] >= 0 {
			if v := abs64(x[end]); v > maxval {
				maxval = v
			}
			end++
		}

		if maxval > 0 {
			a = (maxval - 1) / (maxval * maxval)
			if vref > 0 {
				a = -a
			}
		} else {
			a = 0
		}
		for j := start; j < end; j++ {
			v := x[j]
			x[j] = v + a*v*v
		}

		curr = end
		if curr == n {
			break
		}
	}

	c.declipMem = a
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
