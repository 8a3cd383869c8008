package adriver

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// AdinNetDriver is the "-in adinnet" source: adintool listens on inport
// and a single remote adinnet client (typically another adintool in
// "-out adinnet" mode) connects and streams samples. Like the mic driver
// (and unlike the file driver) it is threaded: Accept and the read loop run on their own
// goroutine feeding the shared fifo, because a remote peer's segment
// boundaries don't line up with the consumer's Read calls.
type AdinNetDriver struct {
	ln     net.Listener
	q      *fifo
	conn   net.Conn
	pre    *Preprocessor
	peerEP string

	errCh chan error
}

// ListenAdinNet binds inport and spawns the accept+receive loop. It
// returns immediately; until a peer has connected and delivered samples,
// Read returns StatusWouldBlock rather than blocking.
func ListenAdinNet(inport int, params Params) (*AdinNetDriver, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", inport))
	if err != nil {
		return nil, fmt.Errorf("adriver: listen :%d: %w", inport, ErrConfigError)
	}

	d := &AdinNetDriver{
		ln:    ln,
		q:     newFIFO(params.SampleRate * 30),
		pre:   NewPreprocessor(params),
		errCh: make(chan error, 1),
	}
	go d.acceptLoop()
	return d, nil
}

func (d *AdinNetDriver) acceptLoop() {
	conn, err := d.ln.Accept()
	if err != nil {
		d.errCh <- DeviceError("adriver: accept on adinnet listener")
		return
	}
	d.conn = conn
	d.peerEP = conn.RemoteAddr().String()
	d.receiveLoop(conn)
}

// receiveLoop implements the wire contract in spec §6: a continuous run
// of little-endian int16 samples with no per-sample framing, chunked
// behind a 4-byte little-endian sample count (the record framing, not a
// per-sample one); a zero-length record ends the current utterance (Pop
// still drains what's buffered; the marker itself isn't queued); and a
// lone byte whose value is 0xFF (int8 -1), sent in place of the next
// record's length prefix, ends the session.
func (d *AdinNetDriver) receiveLoop(conn net.Conn) {
	defer conn.Close()
	header := make([]byte, 4)
	for {
		if _, err := io.ReadFull(conn, header[:1]); err != nil {
			d.errCh <- DeviceError("adriver: read adinnet header")
			d.q.Close()
			return
		}
		if header[0] == 0xFF {
			d.errCh <- ErrEndOfStream
			d.q.Close()
			return
		}
		if _, err := io.ReadFull(conn, header[1:4]); err != nil {
			d.errCh <- DeviceError("adriver: read adinnet header")
			d.q.Close()
			return
		}
		n := int(binary.LittleEndian.Uint32(header))
		if n == 0 {
			// End of segment: nothing further to drain, wait for the
			// next segment's first sample.
			continue
		}
		payload := make([]byte, n*2)
		if _, err := io.ReadFull(conn, payload); err != nil {
			d.errCh <- DeviceError("adriver: read adinnet payload")
			d.q.Close()
			return
		}
		samples := make([]int16, n)
		for i := 0; i < n; i++ {
			samples[i] = int16(binary.LittleEndian.Uint16(payload[i*2:]))
		}
		d.q.Push(samples)
	}
}

func (d *AdinNetDriver) Read(buf []int16) (int, Status, error) {
	select {
	case err := <-d.errCh:
		if err == ErrEndOfStream {
			return 0, StatusEOF, err
		}
		return 0, StatusTerminated, err
	default:
	}
	n, _ := d.q.Pop(buf)
	if n == 0 {
		if d.q.IsClosed() {
			return 0, StatusEOF, ErrEndOfStream
		}
		return 0, StatusWouldBlock, nil
	}
	n = d.pre.Apply(buf, n)
	return n, StatusOK, nil
}

func (d *AdinNetDriver) Pause() error  { return nil }
func (d *AdinNetDriver) Resume() error { return nil }

func (d *AdinNetDriver) Terminate() error {
	d.q.Close()
	if d.conn != nil {
		d.conn.Close()
	}
	return d.ln.Close()
}

func (d *AdinNetDriver) CurrentName() (string, bool) {
	if d.peerEP == "" {
		return "", false
	}
	return d.peerEP, true
}

func (d *AdinNetDriver) Threaded() bool { return true }
