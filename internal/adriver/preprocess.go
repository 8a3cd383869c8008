package adriver

// Preprocessor applies the optional per-sample transforms spec §4.2
// names: stripping leading zeros, DC-mean removal, and amplitude scaling.
// It is stateful (the DC mean and the strip scan carry across calls) so
// one Preprocessor is owned per driver instance, not shared.
type Preprocessor struct {
	stripLeadingZeros bool
	stripDone         bool

	removeDCMean bool
	dcSum        int64
	dcCount      int64

	scale    float64
	hasScale bool
}

// NewPreprocessor builds a chain from Params. Scaling is enabled only for
// a LevelScale other than 0.0 and 1.0: a zero LevelScale leaves samples
// unscaled, the same as 1.0, so it does not mute the input.
func NewPreprocessor(p Params) *Preprocessor {
	return &Preprocessor{
		stripLeadingZeros: p.StripLeadingZeros,
		removeDCMean:      p.RemoveDCMean,
		scale:             p.LevelScale,
		hasScale:          p.LevelScale != 0 && p.LevelScale != 1.0,
	}
}

// Apply transforms buf[:n] in place and returns the new length after
// leading-zero stripping (which can only shrink the buffer, and only
// until the first nonzero sample is ever seen).
func (p *Preprocessor) Apply(buf []int16, n int) int {
	if p.stripLeadingZeros && !p.stripDone {
		i := 0
		for i < n && buf[i] == 0 {
			i++
		}
		if i > 0 {
			copy(buf, buf[i:n])
			n -= i
		}
		if n > 0 {
			p.stripDone = true
		}
	}

	if p.removeDCMean {
		for i := 0; i < n; i++ {
			p.dcSum += int64(buf[i])
			p.dcCount++
		}
		if p.dcCount > 0 {
			mean := p.dcSum / p.dcCount
			for i := 0; i < n; i++ {
				buf[i] = clampInt16(int64(buf[i]) - mean)
			}
		}
	}

	if p.hasScale {
		for i := 0; i < n; i++ {
			buf[i] = clampInt16(int64(float64(buf[i]) * p.scale))
		}
	}

	return n
}

func clampInt16(v int64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
