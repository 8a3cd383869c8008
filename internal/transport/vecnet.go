package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"net"
)

// VecNetSink streams feature vectors to a single remote decoder using
// the vecnet wire protocol (spec §6): a 9-byte header once, then a
// length-prefixed float32 payload per vector, a zero-length i32 marker
// per segment end, and a -1 i32 marker at session end.
//
// Unlike AdinNetSink, vecnet has no control channel of its own in spec
// §4.4 — only adinnet peers answer PAUSE/RESUME/TERMINATE — so VecNetSink
// does not implement PollControl.
type VecNetSink struct {
	conn net.Conn
	w    *bufio.Writer

	headerSent bool
	veclen     int
	frameShift int
	outProb    bool
}

// NewVecNetSink dials addr and prepares to stream vectors of length
// veclen, computed at frameShiftMsec intervals; outProb marks whether
// each payload also carries output-probability scores appended.
func NewVecNetSink(addr string, veclen, frameShiftMsec int, outProb bool) (*VecNetSink, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: vecnet dial %s: %w", addr, err)
	}
	return &VecNetSink{
		conn:       conn,
		w:          bufio.NewWriter(conn),
		veclen:     veclen,
		frameShift: frameShiftMsec,
		outProb:    outProb,
	}, nil
}

func (v *VecNetSink) sendHeader() error {
	if v.headerSent {
		return nil
	}
	var buf [9]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(v.veclen))
	binary.BigEndian.PutUint32(buf[4:8], uint32(v.frameShift))
	if v.outProb {
		buf[8] = 1
	}
	if _, err := v.w.Write(buf[:]); err != nil {
		return fmt.Errorf("transport: vecnet header: %w", err)
	}
	v.headerSent = true
	return v.w.Flush()
}

// SendVector writes one feature vector, sending the session header first
// if this is the first call.
func (v *VecNetSink) SendVector(vec []float32) error {
	if err := v.sendHeader(); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(vec)))
	if _, err := v.w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("transport: vecnet vector length: %w", err)
	}
	payload := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.BigEndian.PutUint32(payload[i*4:], math.Float32bits(f))
	}
	if _, err := v.w.Write(payload); err != nil {
		return fmt.Errorf("transport: vecnet vector payload: %w", err)
	}
	return v.w.Flush()
}

// EndSegment writes the {0:i32} segment-end marker.
func (v *VecNetSink) EndSegment() error {
	if err := v.sendHeader(); err != nil {
		return err
	}
	var zero [4]byte
	if _, err := v.w.Write(zero[:]); err != nil {
		return fmt.Errorf("transport: vecnet segment end: %w", err)
	}
	return v.w.Flush()
}

// EndSession writes the {-1:i32} session-end marker and closes the
// connection.
func (v *VecNetSink) EndSession() error {
	var neg1 [4]byte
	binary.BigEndian.PutUint32(neg1[:], uint32(int32(-1)))
	_, _ = v.w.Write(neg1[:])
	_ = v.w.Flush()
	return v.conn.Close()
}
