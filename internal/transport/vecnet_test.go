package transport

import (
	"encoding/binary"
	"io"
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialVecNetSink(t *testing.T, addr string, veclen int) *VecNetSink {
	t.Helper()
	v, err := NewVecNetSink(addr, veclen, 10, false)
	require.NoError(t, err)
	return v
}

func TestVecNetSinkSendsHeaderOnceThenVectors(t *testing.T) {
	addr, conns := acceptOne(t)
	v := dialVecNetSink(t, addr, 3)
	server := <-conns
	defer server.Close()

	require.NoError(t, v.SendVector([]float32{1, 2, 3}))
	require.NoError(t, v.SendVector([]float32{4, 5, 6}))

	header := make([]byte, 9)
	_, err := io.ReadFull(server, header)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(header[0:4]), "veclen")
	assert.Equal(t, uint32(10), binary.BigEndian.Uint32(header[4:8]), "frame shift")
	assert.Equal(t, byte(0), header[8], "outProb off")

	for _, want := range [][]float32{{1, 2, 3}, {4, 5, 6}} {
		frame := make([]byte, 4+len(want)*4)
		_, err := io.ReadFull(server, frame)
		require.NoError(t, err)
		assert.Equal(t, uint32(len(want)), binary.BigEndian.Uint32(frame[0:4]))
		for i, f := range want {
			got := math.Float32frombits(binary.BigEndian.Uint32(frame[4+i*4:]))
			assert.Equal(t, f, got)
		}
	}
}

func TestVecNetSinkEndSegmentWritesZeroLengthMarker(t *testing.T) {
	addr, conns := acceptOne(t)
	v := dialVecNetSink(t, addr, 2)
	server := <-conns
	defer server.Close()

	require.NoError(t, v.EndSegment())

	buf := make([]byte, 9+4)
	_, err := io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), binary.BigEndian.Uint32(buf[9:13]))
}

func TestVecNetSinkEndSessionWritesNegativeOneMarkerAndCloses(t *testing.T) {
	addr, conns := acceptOne(t)
	v := dialVecNetSink(t, addr, 2)
	server := <-conns
	defer server.Close()

	require.NoError(t, v.EndSession())

	buf := make([]byte, 4)
	_, err := io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, buf)

	// the connection should now be closed from the sink's side
	server.SetReadDeadline(time.Now().Add(time.Second))
	n, _ := server.Read(make([]byte, 1))
	assert.Equal(t, 0, n)
}

var _ net.Conn // keeps the net import honest if future edits drop other uses
