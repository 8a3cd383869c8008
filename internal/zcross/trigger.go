package zcross

// TriggerState is the speech/silence state machine layered on top of the
// raw zero-cross count: {idle, armed_positive, armed_negative} in spec
// terms maps onto the Detector's own sign-armed bookkeeping, while
// TriggerState tracks the higher-level is_valid_data transition that the
// segmenter (package segment) consumes.
type TriggerState struct {
	zeroCrossPerSec int // Z: zero-cross count threshold per second
	sampleRate      int

	valid        bool // is_valid_data
	silenceCount int  // consecutive samples held below trigger level once valid
}

// NewTriggerState configures the per-second zero-cross threshold Z used to
// decide whether a one-second window of zero-cross activity counts as
// speech.
func NewTriggerState(zeroCrossPerSec, sampleRate int) *TriggerState {
	return &TriggerState{zeroCrossPerSec: zeroCrossPerSec, sampleRate: sampleRate}
}

// Update feeds the zero-cross count and peak level for a chunk of
// chunkSamples newly admitted to the detector's ring and the ring's
// current valid length, returning whether is_valid_data holds afterward.
//
// is_valid_data becomes true once the zero-cross count within the last
// one-second window meets the Z threshold and at least one margin sample
// is available (ValidLen > 0); while the window holds less than a second,
// the threshold is scaled down to Z*validLen/sampleRate. Once true it stays
// true until Reset; meanwhile Update counts consecutive below-level samples
// (SilenceSamples), which the caller (the segmenter) uses to decide when
// the tail margin has passed.
func (t *TriggerState) Update(zeroCross, validLen int, belowLevel bool, chunkSamples int) bool {
	if !t.valid {
		// The ring may hold less than a full second yet (startup): scale
		// the threshold down proportionally so a short window isn't held
		// to the full-second count.
		window := t.sampleRate
		if validLen < window {
			window = validLen
		}
		threshold := t.zeroCrossPerSec
		if window < t.sampleRate {
			threshold = t.zeroCrossPerSec * window / t.sampleRate
		}
		if zeroCross >= threshold && validLen > 0 {
			t.valid = true
			t.silenceCount = 0
		}
		return t.valid
	}

	if belowLevel {
		t.silenceCount += chunkSamples
	} else {
		t.silenceCount = 0
	}
	return t.valid
}

// IsValid reports the current is_valid_data flag without mutating state.
func (t *TriggerState) IsValid() bool { return t.valid }

// SilenceSamples reports the number of consecutive below-threshold samples
// accumulated since the trigger was last valid.
func (t *TriggerState) SilenceSamples() int { return t.silenceCount }

// Reset returns the trigger to idle, e.g. once the segmenter has finalized
// a segment after tail_margin_msec of silence.
func (t *TriggerState) Reset() {
	t.valid = false
	t.silenceCount = 0
}
