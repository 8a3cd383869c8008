// Package transport implements the output multiplexer and control
// channel (spec component C4): it fans a segmented chunk stream out to
// one or more adinnet/vecnet TCP sinks, reads pause/resume/terminate
// commands back from those same sockets, and implements the strict and
// loose N-server resume-synchronization predicates.
//
// Grounded on mainloop.c's get_now_status/wait_for_resume functions
// (original_source/adintool/mainloop.c) for the control-byte protocol
// and the strict-vs-loose counter semantics.
package transport

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"
)

// Control bytes read back from a connected adinnet/vecnet peer.
const (
	cmdPause     = '0'
	cmdResume    = '1'
	cmdTerminate = '2'
)

// maxUnknownCommands aborts the process after this many consecutive
// unrecognized control bytes from any one peer (adintool.h's constant).
const maxUnknownCommands = 100

// endOfSessionByte is one of the two adinnet int16-stream sentinels
// from spec §6: a zero-length "write" (here: an explicit zero count
// header, written by AdinNetSink.EndSegment) ends a segment, and a
// one-byte 0xFF ends the whole session.
const endOfSessionByte = 0xFF

// SyncMode selects the resume-ready predicate (spec §4.4).
type SyncMode int

const (
	SyncStrict SyncMode = iota // every server's resume counter must match
	SyncLoose                  // every server must have resumed at least once
)

// Peer is one connected adinnet/vecnet output socket plus its inbound
// control-byte reader.
type Peer struct {
	Addr string

	conn net.Conn
	w    *bufio.Writer
	r    *bufio.Reader

	mu             sync.Mutex
	resumeCount    int
	unknownCount   int
	pauseRequested bool
}

// DialPeers connects to every host:port pair, returning partial results
// and a combined error if any single dial failed — spec §4.4's
// best-effort fan-out applies from first connection onward.
func DialPeers(endpoints []string, timeout time.Duration) ([]*Peer, error) {
	peers := make([]*Peer, 0, len(endpoints))
	var firstErr error
	for _, ep := range endpoints {
		conn, err := net.DialTimeout("tcp", ep, timeout)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("transport: dial %s: %w", ep, err)
			}
			continue
		}
		peers = append(peers, &Peer{
			Addr: ep,
			conn: conn,
			w:    bufio.NewWriter(conn),
			r:    bufio.NewReader(conn),
		})
	}
	return peers, firstErr
}

func (p *Peer) Close() error { return p.conn.Close() }
