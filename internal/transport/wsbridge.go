package transport

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSVecSink mirrors VecNetSink's framing over a WebSocket connection
// instead of a raw TCP socket, for browser-based monitoring clients that
// cannot open an arbitrary TCP port. The wire payloads are identical to
// vecnet's (spec §6): a 9-byte header, then one binary frame per feature
// vector, a {0:i32} frame at segment end, a {-1:i32} frame at session
// end. The raw TCP vecnet protocol remains normative; this is an additive
// transport for the same bytes.
//
// Grounded on the gorilla/websocket binary-frame duplex pattern used by
// the pack's voice-duplex bridges (see other_examples' NeboLoop
// internal/voice duplex connection, which frames outbound audio the
// same way: one binary WriteMessage per chunk, guarded by a write
// mutex since gorilla/websocket forbids concurrent writers).
type WSVecSink struct {
	conn *websocket.Conn
	mu   sync.Mutex

	headerSent bool
	veclen     int
	frameShift int
	outProb    bool
}

var upgrader = websocket.Upgrader{ //nolint:exhaustruct
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// UpgradeWSVecSink upgrades an inbound HTTP request to a WebSocket and
// wraps the resulting connection as a WSVecSink.
func UpgradeWSVecSink(w http.ResponseWriter, r *http.Request, veclen, frameShiftMsec int, outProb bool) (*WSVecSink, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: websocket upgrade: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second)) //nolint:errcheck
	return &WSVecSink{conn: conn, veclen: veclen, frameShift: frameShiftMsec, outProb: outProb}, nil
}

func (w *WSVecSink) sendHeader() error {
	if w.headerSent {
		return nil
	}
	var buf [9]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(w.veclen))
	binary.BigEndian.PutUint32(buf[4:8], uint32(w.frameShift))
	if w.outProb {
		buf[8] = 1
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, buf[:]); err != nil {
		return fmt.Errorf("transport: ws vecnet header: %w", err)
	}
	w.headerSent = true
	return nil
}

// SendVector writes one feature vector as a length-prefixed binary
// WebSocket frame, matching VecNetSink.SendVector's payload layout.
func (w *WSVecSink) SendVector(vec []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.sendHeader(); err != nil {
		return err
	}
	payload := make([]byte, 4+len(vec)*4)
	binary.BigEndian.PutUint32(payload[0:4], uint32(len(vec)))
	for i, f := range vec {
		binary.BigEndian.PutUint32(payload[4+i*4:], math.Float32bits(f))
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return fmt.Errorf("transport: ws vecnet vector: %w", err)
	}
	return nil
}

// EndSegment sends the {0:i32} segment-end marker frame.
func (w *WSVecSink) EndSegment() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.sendHeader(); err != nil {
		return err
	}
	var zero [4]byte
	if err := w.conn.WriteMessage(websocket.BinaryMessage, zero[:]); err != nil {
		return fmt.Errorf("transport: ws vecnet segment end: %w", err)
	}
	return nil
}

// EndSession sends the {-1:i32} session-end marker, matching
// VecNetSink.EndSession's payload exactly, and closes the connection.
func (w *WSVecSink) EndSession() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var neg1 [4]byte
	binary.BigEndian.PutUint32(neg1[:], uint32(int32(-1)))
	_ = w.conn.WriteMessage(websocket.BinaryMessage, neg1[:])
	return w.conn.Close()
}
