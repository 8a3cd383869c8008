package adriver

import "math"

// Resampler48to16 converts a 48 kHz PCM stream to 16 kHz by low-pass
// filtering with a windowed-sinc FIR (cutoff at the 16 kHz Nyquist
// frequency to reject aliasing) followed by decimation by 3, the same
// windowed-sinc kernel design the teacher's filter generator
// (gen_lowpass in dsp.go) uses for its demodulator prefilters, generalized
// here to Hamming-windowed low-pass decimation instead of band-pass
// demod filtering.
//
// Resampler48to16 is stateful: it carries the filter's tail and the
// decimation phase across Feed calls so a caller can stream arbitrarily
// sized chunks and get byte-identical output to filtering the whole
// signal at once.
const decimationFactor = 3

type Resampler48to16 struct {
	taps  []float64
	delay []float64 // ring of the last len(taps) input samples
	pos   int
	phase int // next input sample index (mod 3) that produces an output sample
}

// NewResampler48to16 builds a resampler with a 31-tap Hamming-windowed
// low-pass filter with cutoff at 16 kHz / 2 expressed as a fraction of the
// 48 kHz input rate (1/6).
func NewResampler48to16() *Resampler48to16 {
	const numTaps = 31
	const cutoff = 1.0 / 6.0 // (16000/2) / 48000

	taps := make([]float64, numTaps)
	center := 0.5 * float64(numTaps-1)
	var gain float64
	for j := 0; j < numTaps; j++ {
		x := float64(j) - center
		var sinc float64
		if x == 0 {
			sinc = 2 * cutoff
		} else {
			sinc = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
		}
		w := 0.53836 - 0.46164*math.Cos((float64(j)*2*math.Pi)/float64(numTaps-1)) // Hamming
		taps[j] = sinc * w
		gain += taps[j]
	}
	for j := range taps {
		taps[j] /= gain
	}

	return &Resampler48to16{
		taps:  taps,
		delay: make([]float64, numTaps),
	}
}

// Feed filters and decimates in, appending produced 16 kHz samples to
// dst and returning the extended slice.
func (r *Resampler48to16) Feed(dst []int16, in []int16) []int16 {
	n := len(r.taps)
	for _, s := range in {
		r.delay[r.pos] = float64(s)
		r.pos = (r.pos + 1) % n

		if r.phase == 0 {
			var acc float64
			idx := r.pos
			for k := 0; k < n; k++ {
				idx--
				if idx < 0 {
					idx = n - 1
				}
				acc += r.taps[k] * r.delay[idx]
			}
			dst = append(dst, clampInt16(int64(math.Round(acc))))
		}
		r.phase = (r.phase + 1) % decimationFactor
	}
	return dst
}
