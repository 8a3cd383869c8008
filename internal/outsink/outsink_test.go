package outsink

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	writes      [][]int16
	segmentEnds int
	sessionEnds int
	writeErr    error
	segmentErr  error
}

func (r *recordingSink) Write(samples []int16) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	cp := append([]int16(nil), samples...)
	r.writes = append(r.writes, cp)
	return nil
}

func (r *recordingSink) EndSegment() error {
	r.segmentEnds++
	return r.segmentErr
}

func (r *recordingSink) EndSession() error {
	r.sessionEnds++
	return nil
}

func TestMultiSinkFansOutToEveryWrappedSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := NewMultiSink(a, b)

	require.NoError(t, m.Write([]int16{1, 2}))
	require.NoError(t, m.EndSegment())
	require.NoError(t, m.EndSession())

	assert.Equal(t, [][]int16{{1, 2}}, a.writes)
	assert.Equal(t, [][]int16{{1, 2}}, b.writes)
	assert.Equal(t, 1, a.segmentEnds)
	assert.Equal(t, 1, b.segmentEnds)
	assert.Equal(t, 1, a.sessionEnds)
	assert.Equal(t, 1, b.sessionEnds)
}

func TestMultiSinkContinuesPastAFailingSinkAndReportsFirstError(t *testing.T) {
	failing := &recordingSink{writeErr: errors.New("disk full")}
	healthy := &recordingSink{}
	m := NewMultiSink(failing, healthy)

	err := m.Write([]int16{9})
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, [][]int16{{9}}, healthy.writes, "a failing sink must not block delivery to the others")
}

func TestStdoutSinkWritesLittleEndianPCMAndFlushesOnEnd(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdoutSink(&buf)

	require.NoError(t, s.Write([]int16{1, -2}))
	assert.Equal(t, 0, buf.Len(), "bufio.Writer should not flush before EndSegment")

	require.NoError(t, s.EndSegment())
	require.Len(t, buf.Bytes(), 4)
	assert.Equal(t, int16(1), int16(binary.LittleEndian.Uint16(buf.Bytes()[0:2])))
	assert.Equal(t, int16(-2), int16(binary.LittleEndian.Uint16(buf.Bytes()[2:4])))
}
