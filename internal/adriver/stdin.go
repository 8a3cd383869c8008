package adriver

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
)

// StdinDriver reads raw headerless 16-bit little-endian PCM from standard
// input, the "-in stdin" source. It is synchronous: Read blocks on the
// underlying pipe exactly as the original's SP_STDIN driver does.
type StdinDriver struct {
	r          *bufio.Reader
	pre        *Preprocessor
	terminated bool
}

func OpenStdin(params Params) *StdinDriver {
	return newStdinDriver(os.Stdin, params)
}

// newStdinDriver builds a StdinDriver over an arbitrary io.Reader, so
// tests can substitute a pty master (github.com/creack/pty) in place of
// the real os.Stdin to exercise partial-read and blocking-read behavior
// against a genuine blocking fd rather than an os.Pipe, which buffers
// differently.
func newStdinDriver(r io.Reader, params Params) *StdinDriver {
	return &StdinDriver{r: bufio.NewReaderSize(r, 1<<16), pre: NewPreprocessor(params)}
}

func (d *StdinDriver) Read(buf []int16) (int, Status, error) {
	if d.terminated {
		return 0, StatusTerminated, ErrTerminatedByUser
	}
	raw := make([]byte, len(buf)*2)
	n, err := io.ReadFull(d.r, raw)
	samples := n / 2
	for i := 0; i < samples; i++ {
		buf[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	samples = d.pre.Apply(buf, samples)

	switch {
	case err == nil:
		return samples, StatusOK, nil
	case err == io.ErrUnexpectedEOF || err == io.EOF:
		if samples > 0 {
			return samples, StatusOK, nil
		}
		return 0, StatusEOF, ErrEndOfStream
	default:
		return samples, StatusOK, DeviceError("adriver: read stdin")
	}
}

func (d *StdinDriver) Pause() error  { return nil }
func (d *StdinDriver) Resume() error { return nil }

func (d *StdinDriver) Terminate() error {
	d.terminated = true
	return nil
}

func (d *StdinDriver) CurrentName() (string, bool) { return "stdin", true }
func (d *StdinDriver) Threaded() bool              { return false }
