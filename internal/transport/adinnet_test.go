package transport

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// acceptOne starts a loopback listener and returns the dial address plus
// a channel that delivers the first accepted server-side connection, so
// tests can drive both ends of a real TCP socket the way a live adinnet
// server/client pair would, rather than faking the wire format.
func acceptOne(t *testing.T) (addr string, conns <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	ch := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			ch <- c
		}
	}()
	return ln.Addr().String(), ch
}

func dialSink(t *testing.T, addr string, mode SyncMode) *AdinNetSink {
	t.Helper()
	peers, err := DialPeers([]string{addr}, time.Second)
	require.NoError(t, err)
	require.Len(t, peers, 1)
	return NewAdinNetSink(peers, mode, nil)
}

func TestAdinNetSinkSendWritesLengthPrefixedLittleEndianSamples(t *testing.T) {
	addr, conns := acceptOne(t)
	sink := dialSink(t, addr, SyncStrict)
	server := <-conns
	defer server.Close()

	require.NoError(t, sink.Send([]int16{1, 2, -3}))

	buf := make([]byte, 4+6)
	_, err := io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, int16(1), int16(binary.LittleEndian.Uint16(buf[4:6])))
	assert.Equal(t, int16(2), int16(binary.LittleEndian.Uint16(buf[6:8])))
	assert.Equal(t, int16(-3), int16(binary.LittleEndian.Uint16(buf[8:10])))
}

func TestAdinNetSinkEndSegmentWritesZeroLengthMarker(t *testing.T) {
	addr, conns := acceptOne(t)
	sink := dialSink(t, addr, SyncStrict)
	server := <-conns
	defer server.Close()

	require.NoError(t, sink.EndSegment())

	buf := make([]byte, 4)
	_, err := io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf))
}

func TestAdinNetSinkEndSessionWritesSentinelByteAndCloses(t *testing.T) {
	addr, conns := acceptOne(t)
	sink := dialSink(t, addr, SyncStrict)
	server := <-conns
	defer server.Close()

	require.NoError(t, sink.EndSession())

	buf := make([]byte, 1)
	_, err := io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), buf[0])
}

func TestAdinNetSinkPollControlReportsMostUrgentAction(t *testing.T) {
	addr, conns := acceptOne(t)
	sink := dialSink(t, addr, SyncStrict)
	server := <-conns
	defer server.Close()

	_, err := server.Write([]byte{cmdResume, cmdPause})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond) // let the bytes land in the client's socket buffer

	result, err := sink.PollControl()
	require.NoError(t, err)
	assert.Equal(t, ActionPause, result.Action)
}

func TestAdinNetSinkPollControlReturnsNoneWithoutTraffic(t *testing.T) {
	addr, conns := acceptOne(t)
	sink := dialSink(t, addr, SyncStrict)
	server := <-conns
	defer server.Close()

	result, err := sink.PollControl()
	require.NoError(t, err)
	assert.Equal(t, ActionNone, result.Action)
}

func TestReadyForResumeStrictRequiresEveryPeerToMatch(t *testing.T) {
	addrA, connsA := acceptOne(t)
	addrB, connsB := acceptOne(t)
	peers, err := DialPeers([]string{addrA, addrB}, time.Second)
	require.NoError(t, err)
	require.Len(t, peers, 2)
	sink := NewAdinNetSink(peers, SyncStrict, nil)

	serverA := <-connsA
	serverB := <-connsB
	defer serverA.Close()
	defer serverB.Close()

	_, err = serverA.Write([]byte{cmdResume})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = sink.PollControl()
	require.NoError(t, err)
	assert.False(t, sink.ReadyForResume(), "only one of two peers has resumed")

	_, err = serverB.Write([]byte{cmdResume})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = sink.PollControl()
	require.NoError(t, err)
	assert.True(t, sink.ReadyForResume(), "both peers resumed once, strict sync satisfied")
}

func TestReadyForResumeLooseAcceptsAtLeastOnceEach(t *testing.T) {
	addrA, connsA := acceptOne(t)
	addrB, connsB := acceptOne(t)
	peers, err := DialPeers([]string{addrA, addrB}, time.Second)
	require.NoError(t, err)
	sink := NewAdinNetSink(peers, SyncLoose, nil)

	serverA := <-connsA
	serverB := <-connsB
	defer serverA.Close()
	defer serverB.Close()

	_, err = serverA.Write([]byte{cmdResume, cmdResume, cmdResume})
	require.NoError(t, err)
	_, err = serverB.Write([]byte{cmdResume})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	_, err = sink.PollControl()
	require.NoError(t, err)
	assert.True(t, sink.ReadyForResume(), "loose sync only needs at least one resume per peer")
}
