package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/charmbracelet/log"
)

// AdinNetSink fans segmented int16 samples out to N adinnet servers and
// answers the control channel those same sockets carry back (spec §4.4).
type AdinNetSink struct {
	peers []*Peer
	mode  SyncMode
	log   *log.Logger
}

// NewAdinNetSink wraps already-connected peers. logger may be nil, in
// which case a discarding logger is used.
func NewAdinNetSink(peers []*Peer, mode SyncMode, logger *log.Logger) *AdinNetSink {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &AdinNetSink{peers: peers, mode: mode, log: logger}
}

// Send writes samples as a length-prefixed little-endian int16 block to
// every peer: a 4-byte sample count followed by that many raw int16 LE
// samples, matching spec §6's "int16 little-endian samples, no framing"
// data convention (the length is the record framing; the samples inside
// it are unframed raw PCM). A send failure to one peer is logged and
// that peer is skipped for the rest of the session; it does not abort
// delivery to the others (spec §4.4's best-effort fan-out).
func (s *AdinNetSink) Send(samples []int16) error {
	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, uint32(len(samples)))
	payload := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(payload[i*2:], uint16(v))
	}

	for _, p := range s.livePeers() {
		if _, err := p.w.Write(header); err != nil {
			s.dropPeer(p, err)
			continue
		}
		if _, err := p.w.Write(payload); err != nil {
			s.dropPeer(p, err)
			continue
		}
		if err := p.w.Flush(); err != nil {
			s.dropPeer(p, err)
		}
	}
	return nil
}

// EndSegment writes the zero-length marker that tells every peer this
// utterance is over.
func (s *AdinNetSink) EndSegment() error {
	zero := make([]byte, 4)
	for _, p := range s.livePeers() {
		if _, err := p.w.Write(zero); err != nil {
			s.dropPeer(p, err)
			continue
		}
		if err := p.w.Flush(); err != nil {
			s.dropPeer(p, err)
		}
	}
	return nil
}

// EndSession writes the 0xFF end-of-session byte and closes every peer.
func (s *AdinNetSink) EndSession() error {
	for _, p := range s.livePeers() {
		_, _ = p.w.Write([]byte{endOfSessionByte})
		_ = p.w.Flush()
		_ = p.Close()
	}
	return nil
}

func (s *AdinNetSink) livePeers() []*Peer {
	out := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (s *AdinNetSink) dropPeer(p *Peer, err error) {
	s.log.Warn("adinnet send failed, dropping peer", "addr", p.Addr, "err", err)
	_ = p.Close()
	for i, cand := range s.peers {
		if cand == p {
			s.peers[i] = nil
		}
	}
}

// PollControl performs a zero-timeout multiplex over every live peer's
// inbound byte stream (a short read deadline standing in for the
// original's select() with a zero timeval), applying PAUSE/RESUME/
// TERMINATE semantics in place and returning the most urgent action
// observed this round (TERMINATE beats PAUSE beats RESUME beats none).
func (s *AdinNetSink) PollControl() (action ControlResult, err error) {
	result := ControlResult{}
	for _, p := range s.livePeers() {
		if err := p.conn.SetReadDeadline(time.Now()); err != nil {
			s.dropPeer(p, err)
			continue
		}
		for {
			b, rerr := p.r.ReadByte()
			if rerr != nil {
				if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
					break // no command waiting, move to next peer
				}
				s.dropPeer(p, rerr)
				break
			}
			switch b {
			case cmdPause:
				p.mu.Lock()
				p.pauseRequested = true
				p.unknownCount = 0
				p.mu.Unlock()
				if result.Action < ActionPause {
					result.Action = ActionPause
				}
			case cmdResume:
				p.mu.Lock()
				p.resumeCount++
				p.unknownCount = 0
				p.mu.Unlock()
				if result.Action < ActionResume {
					result.Action = ActionResume
				}
			case cmdTerminate:
				p.mu.Lock()
				p.unknownCount = 0
				p.mu.Unlock()
				result.Action = ActionTerminate
			default:
				p.mu.Lock()
				p.unknownCount++
				count := p.unknownCount
				p.mu.Unlock()
				if count >= maxUnknownCommands {
					return result, fmt.Errorf("transport: peer %s sent %d consecutive unknown commands, aborting", p.Addr, count)
				}
			}
		}
		_ = p.conn.SetReadDeadline(time.Time{})
	}
	return result, nil
}

// ReadyForResume reports whether every live peer satisfies the
// configured sync mode's resume predicate, and resets counters when it
// does (spec §4.4's "when satisfied, counters are reset").
func (s *AdinNetSink) ReadyForResume() bool {
	peers := s.livePeers()
	if len(peers) == 0 {
		return true
	}

	switch s.mode {
	case SyncStrict:
		first := -1
		for _, p := range peers {
			p.mu.Lock()
			c := p.resumeCount
			p.mu.Unlock()
			if c == 0 {
				return false
			}
			if first == -1 {
				first = c
			} else if c != first {
				return false
			}
		}
	case SyncLoose:
		for _, p := range peers {
			p.mu.Lock()
			c := p.resumeCount
			p.mu.Unlock()
			if c == 0 {
				return false
			}
		}
	}

	for _, p := range peers {
		p.mu.Lock()
		p.resumeCount = 0
		p.mu.Unlock()
	}
	return true
}

// WaitResume blocks in the Paused state (spec §5's "suspension point"),
// polling the control channel at pollInterval until every peer's resume
// predicate is satisfied (ok == true) or a TERMINATE arrives
// (ok == false, err == nil).
func (s *AdinNetSink) WaitResume(pollInterval time.Duration) (bool, error) {
	for {
		result, err := s.PollControl()
		if err != nil {
			return false, err
		}
		if result.Action == ActionTerminate {
			return false, nil
		}
		if s.ReadyForResume() {
			return true, nil
		}
		time.Sleep(pollInterval)
	}
}

// ControlAction ranks the three commands so PollControl can report the
// most urgent one observed across all peers in a single poll.
type ControlAction int

const (
	ActionNone ControlAction = iota
	ActionResume
	ActionPause
	ActionTerminate
)

type ControlResult struct {
	Action ControlAction
}
