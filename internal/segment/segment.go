// Package segment implements the speech/silence segmenter (spec
// component C3): it pulls chunks from an adriver.Driver, feeds them to a
// zcross.Detector, and drives a four-state machine — Silence, Speech,
// SilenceAfterTail, Paused — forwarding only the speech-bearing samples
// (plus head and tail margins) to a caller-supplied sink.
//
// The original names this loop adin_go (libsent/src/adin/adin_cut.c);
// this package keeps its state names but expresses the state machine as
// a Go type instead of a tangle of static globals and booleans.
package segment

import (
	"errors"

	"github.com/doismellburning/juliusgo/internal/adriver"
	"github.com/doismellburning/juliusgo/internal/zcross"
)

// State names the four segmenter states from spec §4.3.
type State int

const (
	StateSilence State = iota
	StateSpeech
	StateSilenceAfterTail
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateSilence:
		return "silence"
	case StateSpeech:
		return "speech"
	case StateSilenceAfterTail:
		return "silence-after-tail"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// ControlAction is what a poll of the output control channel reported.
type ControlAction int

const (
	ControlNone ControlAction = iota
	ControlPause
	ControlResume
	ControlTerminate
)

// Return codes from Run, mirroring the original adin_go's inner loop
// contract named in spec §4.3.
const (
	CodeTerminatedByRemote = -2
	CodeError              = -1
	CodeEndOfStream        = 0
	// Any value > 0 indicates a segment was produced and input continues.
)

var ErrAborted = errors.New("segment: aborted by control channel")

// Callbacks are supplied by the caller (typically package outsink and
// package transport) to move data and react to control-channel events;
// Run never touches a socket or a file directly.
type Callbacks struct {
	// Sink forwards one chunk of samples, in capture order, belonging to
	// the segment currently open. Called one or more times between the
	// implicit "segment open" (first head-margin chunk) and SegmentEnd.
	Sink func(samples []int16) error

	// SegmentEnd finalizes the sink for the segment just completed.
	SegmentEnd func() error

	// Control performs a non-blocking poll of the control channel,
	// called once per chunk while actively capturing.
	Control func() (ControlAction, error)

	// WaitResume blocks in the Paused state until the resume-ready
	// predicate holds (ok == true) or a terminate command arrives
	// (ok == false).
	WaitResume func() (ok bool, err error)
}

// Params configures margins and mode. HeadMarginSamples sizes the
// zcross.Detector's ring so trigger-up can recover exactly that many
// pre-trigger samples; TailMarginSamples bounds how long the segmenter
// keeps forwarding after level drops below threshold before finalizing.
type Params struct {
	HeadMarginSamples int
	TailMarginSamples int
	RewindSamples     int // spec §4.3 rewind-on-retrigger; 0 disables
	Continuous        bool
	ChunkSize         int
}

// Segmenter runs the pull/detect/forward loop described in spec §4.3.
type Segmenter struct {
	driver adriver.Driver
	det    *zcross.Detector
	trig   *zcross.TriggerState
	params Params

	level    int
	dcOffset int

	state       State
	speechLen   int
	silenceRun  int
	pendingStop bool // PAUSE received mid-segment: stop at the next tail-margin boundary

	savedHeadBuf []int16 // snapshot taken at Pause, for rewind-on-retrigger
}

// New builds a Segmenter reading from driver. zeroCrossPerSec and
// sampleRate configure the trigger state (spec §4.1's Z threshold);
// level and dcOffset configure the raw zero-cross detector.
func New(driver adriver.Driver, params Params, level, dcOffset, zeroCrossPerSec, sampleRate int) *Segmenter {
	det := zcross.New(params.HeadMarginSamples)
	det.Reset(level, params.HeadMarginSamples, dcOffset)
	return &Segmenter{
		driver:   driver,
		det:      det,
		trig:     zcross.NewTriggerState(zeroCrossPerSec, sampleRate),
		params:   params,
		state:    StateSilence,
		level:    level,
		dcOffset: dcOffset,
	}
}

// State reports the segmenter's current state, for diagnostics.
func (s *Segmenter) State() State { return s.state }

// Run drives the loop until end of stream, a fatal error, or a remote
// terminate, returning one of the codes named in spec §4.3.
func (s *Segmenter) Run(cb Callbacks) (int, error) {
	chunk := make([]int16, s.params.ChunkSize)

	for {
		if s.state == StatePaused {
			ok, err := cb.WaitResume()
			if err != nil {
				return CodeError, err
			}
			if !ok {
				_ = s.driver.Terminate()
				return CodeTerminatedByRemote, nil
			}
			if err := s.driver.Resume(); err != nil {
				return CodeError, err
			}
			s.state = StateSilence
			continue
		}

		n, status, err := s.driver.Read(chunk)

		switch status {
		case adriver.StatusTerminated:
			s.finalizeIfOpen(cb)
			return CodeTerminatedByRemote, err
		case adriver.StatusEOF:
			if n > 0 {
				if code, err := s.admit(chunk[:n], cb); err != nil {
					return CodeError, err
				} else if code != 0 {
					return code, nil
				}
			}
			s.finalizeIfOpen(cb)
			return CodeEndOfStream, nil
		case adriver.StatusWouldBlock:
			// Threaded driver has nothing ready; poll control and retry.
		}

		if err != nil && status != adriver.StatusEOF && status != adriver.StatusTerminated {
			return CodeError, err
		}

		action, cerr := cb.Control()
		if cerr != nil {
			return CodeError, cerr
		}
		switch action {
		case ControlTerminate:
			s.finalizeIfOpen(cb)
			_ = s.driver.Terminate()
			return CodeTerminatedByRemote, nil
		case ControlPause:
			switch s.state {
			case StateSilence:
				s.enterPaused()
			default:
				s.pendingStop = true
			}
		}

		if status == adriver.StatusWouldBlock || n == 0 {
			continue
		}

		if code, err := s.admit(chunk[:n], cb); err != nil {
			return CodeError, err
		} else if code != 0 {
			return code, nil
		}
	}
}

// finalizeIfOpen closes out the sink's current segment if one is open,
// swallowing the finalize error since the caller is already unwinding
// toward a terminal return code.
func (s *Segmenter) finalizeIfOpen(cb Callbacks) {
	if s.state == StateSpeech || s.state == StateSilenceAfterTail {
		_ = cb.SegmentEnd()
	}
}

// admit feeds one chunk through the detector and drives the state
// machine. A nonzero return signals Run to stop with that code.
func (s *Segmenter) admit(chunk []int16, cb Callbacks) (int, error) {
	zc, level := s.det.Push(chunk, len(chunk))
	silent := level < s.det.Trigger()

	valid := s.trig.Update(zc, s.det.ValidLen(), silent, len(chunk))

	switch s.state {
	case StateSilence:
		if valid {
			head := make([]int16, s.det.ValidLen())
			n := s.det.FlushBuffer(head)
			head = s.applyRewind(head[:n])
			if err := cb.Sink(head); err != nil {
				return 0, err
			}
			s.speechLen = len(head)
			s.state = StateSpeech
		}

	case StateSpeech:
		if err := cb.Sink(chunk); err != nil {
			return 0, err
		}
		s.speechLen += len(chunk)
		if silent {
			s.state = StateSilenceAfterTail
			s.silenceRun = len(chunk)
		}

	case StateSilenceAfterTail:
		if err := cb.Sink(chunk); err != nil {
			return 0, err
		}
		s.speechLen += len(chunk)
		if !silent {
			s.state = StateSpeech
			s.silenceRun = 0
			break
		}
		s.silenceRun += len(chunk)
		if s.silenceRun >= s.params.TailMarginSamples {
			if err := cb.SegmentEnd(); err != nil {
				return 0, err
			}
			completed := s.speechLen
			s.finishSegment()
			if s.pendingStop {
				s.pendingStop = false
				s.enterPaused()
			}
			if !s.params.Continuous {
				return completed, nil
			}
		}
	}
	return 0, nil
}

func (s *Segmenter) finishSegment() {
	s.speechLen = 0
	s.silenceRun = 0
	s.trig.Reset()
	s.det.Reset(s.level, s.params.HeadMarginSamples, s.dcOffset)
	if s.state != StatePaused {
		s.state = StateSilence
	}
}

func (s *Segmenter) enterPaused() {
	if s.params.RewindSamples > 0 {
		buf := make([]int16, s.det.ValidLen())
		n := s.det.FlushBuffer(buf)
		s.savedHeadBuf = buf[:n]
	}
	_ = s.driver.Pause()
	s.state = StatePaused
}

// applyRewind prepends up to RewindSamples of the pre-pause buffer when
// a trigger follows closely on resume (spec §4.3's rewind-on-retrigger),
// so stale buffered speech from before the pause isn't lost.
func (s *Segmenter) applyRewind(head []int16) []int16 {
	if s.params.RewindSamples <= 0 || len(s.savedHeadBuf) == 0 {
		return head
	}
	rewind := s.savedHeadBuf
	if len(rewind) > s.params.RewindSamples {
		rewind = rewind[len(rewind)-s.params.RewindSamples:]
	}
	s.savedHeadBuf = nil
	merged := make([]int16, 0, len(rewind)+len(head))
	merged = append(merged, rewind...)
	merged = append(merged, head...)
	return merged
}
