package segment

import (
	"testing"

	"github.com/doismellburning/juliusgo/internal/adriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkDriver replays a fixed sequence of chunks and then reports
// end of stream, the simplest stand-in for adriver.Driver a segmenter
// test needs: the state machine under test only ever calls Read,
// Pause, Resume and Terminate, never anything format-specific.
type chunkDriver struct {
	chunks     [][]int16
	pos        int
	paused     int
	resumed    int
	terminated int
}

func (d *chunkDriver) Read(buf []int16) (int, adriver.Status, error) {
	if d.pos >= len(d.chunks) {
		return 0, adriver.StatusEOF, adriver.ErrEndOfStream
	}
	c := d.chunks[d.pos]
	d.pos++
	n := copy(buf, c)
	return n, adriver.StatusOK, nil
}

func (d *chunkDriver) Pause() error                { d.paused++; return nil }
func (d *chunkDriver) Resume() error               { d.resumed++; return nil }
func (d *chunkDriver) Terminate() error            { d.terminated++; return nil }
func (d *chunkDriver) CurrentName() (string, bool) { return "", false }
func (d *chunkDriver) Threaded() bool              { return false }

// recordingCallbacks captures what the segmenter sent a sink, for
// assertion, plus a canned Control/WaitResume response queue.
type recordingCallbacks struct {
	sunk        [][]int16
	segmentEnds int
	controls    []ControlAction
	resumeOK    bool
}

func (c *recordingCallbacks) cb() Callbacks {
	return Callbacks{
		Sink: func(samples []int16) error {
			c.sunk = append(c.sunk, append([]int16(nil), samples...))
			return nil
		},
		SegmentEnd: func() error {
			c.segmentEnds++
			return nil
		},
		Control: func() (ControlAction, error) {
			if len(c.controls) == 0 {
				return ControlNone, nil
			}
			a := c.controls[0]
			c.controls = c.controls[1:]
			return a, nil
		},
		WaitResume: func() (bool, error) {
			return c.resumeOK, nil
		},
	}
}

func newTestSegmenter(d *chunkDriver, tailMargin int) *Segmenter {
	params := Params{
		HeadMarginSamples: 4,
		TailMarginSamples: tailMargin,
		ChunkSize:         4,
	}
	// zeroCrossPerSec=0 makes is_valid_data trip the instant any sample
	// is admitted (see TriggerState.Update), so tests can drive the
	// speech/silence transition purely off the level threshold.
	return New(d, params, 100 /* level */, 0 /* dcOffset */, 0, 8000)
}

func TestSegmenterEmitsSegmentAfterTailSilence(t *testing.T) {
	loud := []int16{200, 200, 200, 200}
	quiet := []int16{0, 0, 0, 0}
	d := &chunkDriver{chunks: [][]int16{loud, quiet, quiet}}
	cb := &recordingCallbacks{}

	seg := newTestSegmenter(d, 8) // two quiet chunks' worth of tail margin
	code, err := seg.Run(cb.cb())

	require.NoError(t, err)
	assert.Equal(t, 12, code, "speechLen accumulated across all three admitted chunks")
	assert.Equal(t, 1, cb.segmentEnds)
	require.Len(t, cb.sunk, 3)
	assert.Equal(t, loud, cb.sunk[0], "head-margin flush reproduces the triggering chunk")
	assert.Equal(t, quiet, cb.sunk[1])
	assert.Equal(t, quiet, cb.sunk[2])
	assert.Equal(t, StateSilence, seg.State(), "finishSegment returns to silence once not paused")
}

func TestSegmenterReturnsEndOfStreamWhenDriverExhausted(t *testing.T) {
	d := &chunkDriver{chunks: nil}
	cb := &recordingCallbacks{}

	seg := newTestSegmenter(d, 8)
	code, err := seg.Run(cb.cb())

	require.NoError(t, err)
	assert.Equal(t, CodeEndOfStream, code)
	assert.Empty(t, cb.sunk)
}

func TestSegmenterPausesOnControlPauseDuringSilenceThenTerminatesWithoutResume(t *testing.T) {
	quiet := []int16{0, 0, 0, 0}
	d := &chunkDriver{chunks: [][]int16{quiet, quiet, quiet}}
	cb := &recordingCallbacks{controls: []ControlAction{ControlPause}, resumeOK: false}

	seg := newTestSegmenter(d, 8)
	code, err := seg.Run(cb.cb())

	require.NoError(t, err)
	assert.Equal(t, CodeTerminatedByRemote, code)
	assert.Equal(t, 1, d.paused)
	assert.Equal(t, 1, d.terminated)
	assert.Empty(t, cb.sunk, "the chunk that triggered the pause was discarded, not sunk")
}

func TestSegmenterResumesFromPausedBackToSilence(t *testing.T) {
	quiet := []int16{0, 0, 0, 0}
	loud := []int16{200, 200, 200, 200}
	d := &chunkDriver{chunks: [][]int16{quiet, loud, quiet, quiet}}
	cb := &recordingCallbacks{controls: []ControlAction{ControlPause}, resumeOK: true}

	seg := newTestSegmenter(d, 8)
	code, err := seg.Run(cb.cb())

	require.NoError(t, err)
	assert.Equal(t, 1, d.paused)
	assert.Equal(t, 1, d.resumed)
	// after resuming, the loud chunk re-triggers a fresh segment that
	// then closes out on the two trailing quiet chunks.
	assert.Equal(t, 12, code)
	require.Len(t, cb.sunk, 3)
	assert.Equal(t, loud, cb.sunk[0])
}
